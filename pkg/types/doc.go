// Package types defines the core data structures shared across the
// application: document records and trees, course plans and generated
// content, and course progression state.
package types
