package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parley-dev/parley/errors"
)

// DirName is the dotdir parley keeps its state in, either at a project root
// or in the user's home directory.
const DirName = ".parley"

const (
	configFileName  = "config.yaml"
	sessionsDirName = "sessions"
	presetsDirName  = "presets"
	logsDirName     = "logs"
)

// Dir is a .parley directory and the well-known paths inside it.
type Dir struct {
	Root string
}

func (d Dir) ConfigFile() string { return filepath.Join(d.Root, configFileName) }

func (d Dir) SessionsDir() string { return filepath.Join(d.Root, sessionsDirName) }

func (d Dir) PresetsDir() string { return filepath.Join(d.Root, presetsDirName) }

func (d Dir) LogsDir() string { return filepath.Join(d.Root, logsDirName) }

func (d Dir) PresetFile(name string) string {
	return filepath.Join(d.PresetsDir(), name+".yaml")
}

func (d Dir) HasConfig() bool {
	info, err := os.Stat(d.ConfigFile())
	return err == nil && !info.IsDir()
}

// Create builds the directory structure (root plus sessions/ and presets/).
func (d Dir) Create() error {
	for _, p := range []string{d.Root, d.SessionsDir(), d.PresetsDir()} {
		if err := os.MkdirAll(p, 0755); err != nil {
			return errors.Wrapf(err, "could not create directory %s", p)
		}
	}
	return nil
}

// ListPresets returns the preset names available in this directory, sorted.
func (d Dir) ListPresets() ([]string, error) {
	entries, err := os.ReadDir(d.PresetsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "could not read presets directory %s", d.PresetsDir())
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// FindProjectDir walks up from start looking for a .parley directory, the
// same way version control roots are discovered.
func FindProjectDir(start string) (Dir, bool) {
	cur := start
	for {
		candidate := filepath.Join(cur, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return Dir{Root: candidate}, true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return Dir{}, false
		}
		cur = parent
	}
}

// GlobalDir returns the .parley directory in the user's home, if the home
// directory itself exists. The dotdir does not have to exist yet.
func GlobalDir(home string) (Dir, bool) {
	if home == "" {
		return Dir{}, false
	}
	return Dir{Root: filepath.Join(home, DirName)}, true
}
