// Package credentials stores named server remotes and their bearer tokens
// in a TOML file readable only by the current user.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrNotFound is returned when a named remote does not exist.
var ErrNotFound = errors.New("remote not found")

// File holds all named remotes and tracks which one is active.
type File struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Names returns the remote names in sorted order.
func (f File) Names() []string {
	names := make([]string, 0, len(f.Remotes))
	for n := range f.Remotes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Remote is a named server profile.
type Remote struct {
	URL         string `toml:"url"`
	Token       string `toml:"token,omitempty"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

// DefaultPath returns ~/.local/state/clubdesk/remotes.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "clubdesk", "remotes.toml"), nil
}

// Store reads and writes a remotes file.
type Store struct {
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the file. A missing file yields an empty config.
func (s *Store) Load() (File, error) {
	var f File
	if _, err := toml.DecodeFile(s.path, &f); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{Remotes: map[string]Remote{}}, nil
		}
		return File{}, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if f.Remotes == nil {
		f.Remotes = map[string]Remote{}
	}
	return f, nil
}

// Save writes f, creating the parent directory if needed.
func (s *Store) Save(f File) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	out, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()
	return toml.NewEncoder(out).Encode(f)
}

// Add adds or replaces the named remote. The first remote added becomes active.
func (s *Store) Add(name string, r Remote) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("remote name must not be empty")
	}
	if r.URL == "" {
		return errors.New("remote URL must not be empty")
	}
	f, err := s.Load()
	if err != nil {
		return err
	}
	f.Remotes[name] = r
	if f.Active == "" {
		f.Active = name
	}
	return s.Save(f)
}

// Remove deletes the named remote, clearing it as active if needed.
func (s *Store) Remove(name string) error {
	f, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := f.Remotes[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(f.Remotes, name)
	if f.Active == name {
		f.Active = ""
	}
	return s.Save(f)
}

// Use makes name the active remote. An empty name clears it.
func (s *Store) Use(name string) error {
	f, err := s.Load()
	if err != nil {
		return err
	}
	if name != "" {
		if _, ok := f.Remotes[name]; !ok {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
	}
	f.Active = name
	return s.Save(f)
}

// Resolve returns the named remote, or the active one when name is empty.
// ok is false when no name is given and no remote is active.
func (s *Store) Resolve(name string) (r Remote, ok bool, err error) {
	f, err := s.Load()
	if err != nil {
		return Remote{}, false, err
	}
	if name == "" {
		name = f.Active
	}
	if name == "" {
		return Remote{}, false, nil
	}
	r, ok = f.Remotes[name]
	if !ok {
		return Remote{}, false, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return r, true, nil
}

// MaskToken shows the first eight characters of a token.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + strings.Repeat("*", len(token)-8)
}
