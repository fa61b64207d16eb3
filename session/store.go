package session

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/parley-dev/parley/config"
	"github.com/parley-dev/parley/errors"
)

// Sentinel kinds for storage failures.
var (
	// ErrUnreadable means a persisted session file exists but cannot be
	// parsed. The file is left untouched; callers are expected to fall back
	// to a fresh session under a different identifier.
	ErrUnreadable = stderrors.New("session unreadable")
	// ErrIO covers permission and disk failures; the current operation is
	// aborted but the process may continue.
	ErrIO = stderrors.New("session storage i/o")
)

// Store reads and writes session files in one sessions directory. All writes
// go through an atomic temp-file-then-rename commit, so a crash mid-write
// can never leave a half-written session behind.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the sessions directory this store operates on.
func (st *Store) Dir() string { return st.dir }

// Path returns the file a session of that name is persisted at.
func (st *Store) Path(name string) string {
	return filepath.Join(st.dir, name+".json")
}

// Exists reports whether a session with the given name has been persisted.
func (st *Store) Exists(name string) bool {
	info, err := os.Stat(st.Path(name))
	return err == nil && !info.IsDir()
}

// Open loads the persisted session of that name, or creates a fresh empty
// one with the given settings snapshot if none exists. A corrupt file is
// reported as ErrUnreadable and never overwritten; it never silently merges
// two sessions.
func (st *Store) Open(name string, settings config.Settings) (*Session, error) {
	data, err := os.ReadFile(st.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return New(name, settings), nil
		}
		return nil, errors.Mark(errors.Wrapf(err, "could not read session '%s'", name), ErrIO)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Mark(
			errors.Wrapf(err, "session file %s is corrupt", st.Path(name)), ErrUnreadable)
	}
	s.Touch()
	return &s, nil
}

// AppendTurn durably records completed turns. The whole session file is
// rewritten and committed atomically; either all given turns become durable
// or none do. Sequence numbers must continue the session's gapless order.
func (st *Store) AppendTurn(s *Session, turns ...Turn) error {
	next := s.LastSeq() + 1
	for _, t := range turns {
		if !t.Complete {
			return errors.New("refusing to persist incomplete turn seq=%d", t.Seq)
		}
		if t.Seq != next {
			return errors.New("turn seq %d breaks session order (last is %d)", t.Seq, next-1)
		}
		next++
	}
	s.Turns = append(s.Turns, turns...)
	s.Touch()
	return st.Save(s)
}

// Save commits the session's current state to disk atomically.
func (st *Store) Save(s *Session) error {
	if err := os.MkdirAll(st.dir, 0755); err != nil {
		return errors.Mark(errors.Wrapf(err, "could not create sessions directory"), ErrIO)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to serialize session '%s'", s.Name)
	}

	tmp, err := os.CreateTemp(st.dir, s.Name+".*.tmp")
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "could not create temp file"), ErrIO)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Mark(errors.Wrapf(err, "could not write session '%s'", s.Name), ErrIO)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Mark(errors.Wrapf(err, "could not close temp file"), ErrIO)
	}
	if err := os.Rename(tmpName, st.Path(s.Name)); err != nil {
		os.Remove(tmpName)
		return errors.Mark(errors.Wrapf(err, "could not commit session '%s'", s.Name), ErrIO)
	}
	return nil
}

// Clear deletes the persisted state for a session. Clearing a session that
// was never persisted is not an error.
func (st *Store) Clear(name string) error {
	if err := os.Remove(st.Path(name)); err != nil && !os.IsNotExist(err) {
		return errors.Mark(errors.Wrapf(err, "could not remove session '%s'", name), ErrIO)
	}
	return nil
}

var autoNamePattern = regexp.MustCompile(`^session-(\d+)\.json$`)

// NextIdentifier scans the sessions directory and returns a fresh
// auto-incremented name: session-N where N is one past the highest existing
// N. Deleted sessions leave gaps that are never reused.
func (st *Store) NextIdentifier() (string, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil && !os.IsNotExist(err) {
		return "", errors.Mark(errors.Wrapf(err, "could not scan sessions directory"), ErrIO)
	}

	max := 0
	for _, e := range entries {
		m := autoNamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("session-%d", max+1), nil
}

// Info is a summary of a persisted session, for listings.
type Info struct {
	Name         string
	Title        string
	TurnCount    int
	CreatedAt    int64
	LastAccessed int64
}

// List returns summaries of every readable persisted session, most recently
// accessed first. Unreadable files are skipped rather than failing the
// whole listing.
func (st *Store) List(pattern string) ([]Info, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Mark(errors.Wrapf(err, "could not read sessions directory"), ErrIO)
	}

	var infos []Info
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		name := e.Name()[:len(e.Name())-len(".json")]
		if pattern != "" {
			ok, err := doublestar.Match(pattern, name)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid session name pattern %q", pattern)
			}
			if !ok {
				continue
			}
		}

		data, err := os.ReadFile(st.Path(name))
		if err != nil {
			continue
		}
		var s Session
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:         s.Name,
			Title:        s.Settings.Title,
			TurnCount:    len(s.Turns),
			CreatedAt:    s.CreatedAt,
			LastAccessed: s.LastAccessed,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastAccessed > infos[j].LastAccessed
	})
	return infos, nil
}

// Rename moves a persisted session to a new name. The target must not
// already exist; sessions are never silently merged.
func (st *Store) Rename(oldName, newName string) error {
	if !st.Exists(oldName) {
		return errors.New("session '%s' does not exist", oldName)
	}
	if st.Exists(newName) {
		return errors.New("session '%s' already exists", newName)
	}

	data, err := os.ReadFile(st.Path(oldName))
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "could not read session '%s'", oldName), ErrIO)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Mark(
			errors.Wrapf(err, "session file %s is corrupt", st.Path(oldName)), ErrUnreadable)
	}
	s.Name = newName
	if err := st.Save(&s); err != nil {
		return err
	}
	return st.Clear(oldName)
}

// Clean removes sessions not accessed within the given age. With dryRun it
// only reports what would be removed. An optional glob pattern narrows the
// candidates by name.
func (st *Store) Clean(olderThan time.Duration, pattern string, dryRun bool) ([]string, error) {
	infos, err := st.List(pattern)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-olderThan).Unix()
	var removed []string
	for _, info := range infos {
		if info.LastAccessed >= cutoff {
			continue
		}
		if !dryRun {
			if err := st.Clear(info.Name); err != nil {
				return removed, err
			}
		}
		removed = append(removed, info.Name)
	}
	return removed, nil
}
