package config

import (
	stderrors "errors"
	"os"
	"strconv"

	"github.com/parley-dev/parley/errors"
	"gopkg.in/yaml.v3"
)

// Sentinel kinds for resolution failures. Concrete errors are marked with
// one of these and name the offending layer.
var (
	// ErrNotFound means an explicitly requested preset or config file does
	// not exist in any applicable location.
	ErrNotFound = stderrors.New("config not found")
	// ErrMalformed means a layer was present but could not be parsed as the
	// settings schema.
	ErrMalformed = stderrors.New("config malformed")
)

// Options selects which layers participate in resolution. Cwd and Home
// anchor project and global discovery; Getenv defaults to os.Getenv and is
// injectable for tests.
type Options struct {
	ConfigFile string // explicit config file, final override layer
	Preset     string // named preset, project presets shadow global ones
	Cwd        string
	Home       string
	Getenv     func(string) string
}

// Layer records one source that contributed to the resolved settings, in
// application order.
type Layer struct {
	Name string // "defaults", "global", "environment", "project", "preset", "file"
	Path string // file path where applicable
}

// Resolve merges all applicable layers into the effective settings. Missing
// optional layers are skipped silently; a missing explicit preset or config
// file is ErrNotFound, and any unparseable layer is ErrMalformed.
func Resolve(opts Options) (Settings, []Layer, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	s := Defaults()
	layers := []Layer{{Name: "defaults"}}

	if global, ok := GlobalDir(opts.Home); ok && global.HasConfig() {
		if err := applyFile(&s, global.ConfigFile(), "global config"); err != nil {
			return Settings{}, nil, err
		}
		layers = append(layers, Layer{Name: "global", Path: global.ConfigFile()})
	}

	envPatch, envSet, err := patchFromEnv(getenv)
	if err != nil {
		return Settings{}, nil, err
	}
	if envSet {
		envPatch.apply(&s)
		layers = append(layers, Layer{Name: "environment"})
	}

	project, hasProject := FindProjectDir(opts.Cwd)
	if hasProject && project.HasConfig() {
		if err := applyFile(&s, project.ConfigFile(), "project config"); err != nil {
			return Settings{}, nil, err
		}
		layers = append(layers, Layer{Name: "project", Path: project.ConfigFile()})
	}

	if opts.Preset != "" {
		path, err := findPreset(opts.Preset, project, hasProject, opts.Home)
		if err != nil {
			return Settings{}, nil, err
		}
		if err := applyFile(&s, path, "preset '"+opts.Preset+"'"); err != nil {
			return Settings{}, nil, err
		}
		layers = append(layers, Layer{Name: "preset", Path: path})
	}

	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return Settings{}, nil, errors.Mark(
				errors.Wrapf(err, "config file %s does not resolve", opts.ConfigFile), ErrNotFound)
		}
		if err := applyFile(&s, opts.ConfigFile, "config file"); err != nil {
			return Settings{}, nil, err
		}
		layers = append(layers, Layer{Name: "file", Path: opts.ConfigFile})
	}

	return s, layers, nil
}

// ListPresets returns every preset visible from cwd/home with the directory
// it comes from; a project preset shadows a global preset of the same name.
func ListPresets(cwd, home string) (map[string]Dir, error) {
	found := map[string]Dir{}

	if global, ok := GlobalDir(home); ok {
		names, err := global.ListPresets()
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			found[n] = global
		}
	}
	if project, ok := FindProjectDir(cwd); ok {
		names, err := project.ListPresets()
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			found[n] = project
		}
	}
	return found, nil
}

func findPreset(name string, project Dir, hasProject bool, home string) (string, error) {
	if hasProject {
		path := project.PresetFile(name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	if global, ok := GlobalDir(home); ok {
		path := global.PresetFile(name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.Mark(
		errors.New("preset '%s' not found in project or global preset directories", name), ErrNotFound)
}

func applyFile(s *Settings, path, layerName string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "could not read %s", layerName)
	}
	var p Patch
	if err := yaml.Unmarshal(data, &p); err != nil {
		return errors.Mark(
			errors.Wrapf(err, "%s (%s) is not a valid settings file", layerName, path), ErrMalformed)
	}
	p.apply(s)
	return nil
}

// patchFromEnv builds the environment layer from PARLEY_* variables. Its
// precedence sits between the global and project layers.
func patchFromEnv(getenv func(string) string) (Patch, bool, error) {
	var p Patch
	set := false

	strVars := []struct {
		key string
		dst **string
	}{
		{"PARLEY_PROVIDER", &p.Provider},
		{"PARLEY_MODEL", &p.Model},
		{"PARLEY_SERVER_ADDRESS", &p.ServerAddress},
		{"PARLEY_SYSTEM_PROMPT", &p.SystemPrompt},
		{"PARLEY_TITLE", &p.Title},
	}
	for _, v := range strVars {
		if val := getenv(v.key); val != "" {
			s := val
			*v.dst = &s
			set = true
		}
	}

	if val := getenv("PARLEY_TEMPERATURE"); val != "" {
		t, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return Patch{}, false, errors.Mark(
				errors.New("PARLEY_TEMPERATURE %q is not a number", val), ErrMalformed)
		}
		p.Temperature = &t
		set = true
	}
	if val := getenv("PARLEY_MAX_TOKENS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return Patch{}, false, errors.Mark(
				errors.New("PARLEY_MAX_TOKENS %q is not an integer", val), ErrMalformed)
		}
		p.MaxTokens = &n
		set = true
	}

	return p, set, nil
}
