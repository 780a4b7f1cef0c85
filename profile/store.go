package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound indicates no profile file matched a requested name.
	ErrNotFound = errors.New("profile not found")
	// ErrIncludeCycle indicates a profile includes itself, directly or
	// through other profiles.
	ErrIncludeCycle = errors.New("profile include cycle")
)

// Store resolves profile names to files on an ordered search path and loads
// them with include resolution.
//
// Create instances with [NewStore].
type Store struct {
	// Paths are the directories searched, in order.
	Paths []string
}

// NewStore creates a [Store] searching the given directories in order.
func NewStore(paths ...string) *Store {
	return &Store{
		Paths: paths,
	}
}

// Locate maps a profile name to a file path. A name that is itself an
// existing file is used verbatim; otherwise the search path is scanned for
// <name>.profile and the first match wins. Returns [ErrNotFound] when no
// file matches.
func (s *Store) Locate(name string) (string, error) {
	fi, err := os.Stat(name)
	if err == nil && !fi.IsDir() {
		return name, nil
	}

	for _, dir := range s.Paths {
		path := filepath.Join(dir, name+Suffix)

		_, err := os.Stat(path)
		if err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Load locates and parses the named profile, recursively merging the kernel
// and UST events of included profiles. Preload entries of included profiles
// are deliberately not merged in; only the profile's own preload list
// survives. Includes that cannot be loaded are logged and skipped.
func (s *Store) Load(name string) (*Profile, error) {
	return s.load(name, map[string]bool{})
}

func (s *Store) load(name string, visited map[string]bool) (*Profile, error) {
	if visited[name] {
		return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, name)
	}

	// visited tracks only the active include chain, so a profile reached
	// twice through different includes (a diamond) is not a cycle.
	visited[name] = true
	defer delete(visited, name)

	path, err := s.Locate(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // Profile path comes from the search path or the CLI.
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}

	p, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}

	p.Name = name
	p.Source = path

	for _, inc := range p.Includes {
		included, err := s.load(inc, visited)
		if err != nil {
			slog.Warn("skipping unresolvable include",
				"profile", name, "include", inc, "error", err)

			continue
		}

		p.Kernel = mergeUnique(p.Kernel, included.Kernel)
		p.UST = mergeUnique(p.UST, included.UST)
	}

	return p, nil
}

// Resolve loads every named profile and merges the results into one
// [EventSet]. Names that fail to load are reported and skipped; Resolve
// never fails, and the returned set may be empty.
func (s *Store) Resolve(names []string) *EventSet {
	set := &EventSet{}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		p, err := s.Load(name)
		if err != nil {
			slog.Warn("profile not found", "profile", name, "error", err)

			continue
		}

		set.Merge(p)
	}

	return set
}

// List walks every search directory recursively and returns all profiles
// found, keyed by name. The first occurrence of a name wins. Unreadable,
// unparseable, or empty files are silently skipped. Includes are not
// resolved; each profile shows its own events and its source path.
func (s *Store) List() map[string]*Profile {
	found := make(map[string]*Profile)

	for _, dir := range s.Paths {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), Suffix) {
				return nil
			}

			name := strings.TrimSuffix(d.Name(), Suffix)
			if _, ok := found[name]; ok {
				return nil
			}

			data, readErr := os.ReadFile(path) //nolint:gosec // Walking the configured search path.
			if readErr != nil || len(bytes.TrimSpace(data)) == 0 {
				return nil
			}

			p, parseErr := parse(data)
			if parseErr != nil || p.isEmpty() {
				return nil
			}

			p.Name = name
			p.Source = path
			found[name] = p

			return nil
		})
	}

	return found
}
