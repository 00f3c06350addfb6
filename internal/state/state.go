// Package state persists learner identity and course progression as
// private JSON files under the state directory.
package state

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/coursecraft/coursecraft-mcp/pkg/types"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
)

const (
	profileFile = "profile.json"
	stateFile   = "course_state.json"

	secretBytes = 32
)

// Profile is the learner identity created at registration
type Profile struct {
	UserID    string    `json:"user_id"`
	Secret    string    `json:"secret"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store reads and writes state files. Files carry 0600 permissions since
// the profile holds a secret.
type Store struct {
	dir string
}

// NewStore creates a Store over the given directory, creating it as
// needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// CreateProfile generates and persists a new learner identity
func (s *Store) CreateProfile(email string) (*Profile, error) {
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating secret: %w", err)
	}

	p := &Profile{
		UserID:    uuid.NewString(),
		Secret:    hex.EncodeToString(secret),
		Email:     email,
		CreatedAt: time.Now(),
	}
	if err := s.writeJSON(profileFile, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Profile returns the stored learner identity, or ErrNotFound
func (s *Store) Profile() (*Profile, error) {
	var p Profile
	if err := s.readJSON(profileFile, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveCourseState persists the progression snapshot
func (s *Store) SaveCourseState(cs *types.CourseState) error {
	cs.UpdatedAt = time.Now()
	return s.writeJSON(stateFile, cs)
}

// CourseState returns the stored progression snapshot, or ErrNotFound
func (s *Store) CourseState() (*types.CourseState, error) {
	var cs types.CourseState
	if err := s.readJSON(stateFile, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

// ClearCourseState removes the progression snapshot and reports whether
// one existed. The profile is untouched.
func (s *Store) ClearCourseState() (bool, error) {
	err := os.Remove(filepath.Join(s.dir, stateFile))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("removing course state: %w", err)
	}
	return true, nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}
