package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parley-dev/parley/errors"
)

// writeLayer drops a settings file at path, creating parents as needed.
func writeLayer(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Unexpected error creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Unexpected error writing %s: %v", path, err)
	}
}

func noEnv(string) string { return "" }

func TestResolveDefaultsOnly(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	s, layers, err := Resolve(Options{Cwd: cwd, Home: home, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Provider != "google" || s.Model != "gemini-2.5-flash" || s.MaxTokens != 65535 || s.Title != "CLI Chat" {
		t.Errorf("Expected built-in defaults, got %+v", s)
	}
	if s.Temperature != nil || s.SystemPrompt != "" || s.ServerAddress != "" || len(s.MCPServers) != 0 {
		t.Errorf("Expected optional fields unset, got %+v", s)
	}
	if len(layers) != 1 || layers[0].Name != "defaults" {
		t.Errorf("Expected only the defaults layer, got %+v", layers)
	}
}

func TestResolveCrossLayerFieldPreservation(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	project := filepath.Join(cwd, DirName)
	writeLayer(t, filepath.Join(project, "config.yaml"), "system_prompt: You are helpful.\n")
	writeLayer(t, filepath.Join(project, "presets", "coding.yaml"), "temperature: 0.3\n")

	s, _, err := Resolve(Options{Preset: "coding", Cwd: cwd, Home: home, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Temperature == nil || *s.Temperature != 0.3 {
		t.Errorf("Expected preset temperature 0.3, got %v", s.Temperature)
	}
	if s.SystemPrompt != "You are helpful." {
		t.Errorf("Expected project system prompt preserved, got %q", s.SystemPrompt)
	}
	if s.Model != "gemini-2.5-flash" {
		t.Errorf("Expected default model preserved, got %q", s.Model)
	}
}

func TestResolvePrecedenceOrder(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	writeLayer(t, filepath.Join(home, DirName, "config.yaml"), "model: global-model\ntitle: Global\n")
	writeLayer(t, filepath.Join(cwd, DirName, "config.yaml"), "model: project-model\n")

	getenv := func(key string) string {
		if key == "PARLEY_MODEL" {
			return "env-model"
		}
		return ""
	}

	s, layers, err := Resolve(Options{Cwd: cwd, Home: home, Getenv: getenv})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// The environment sits between global and project, so project wins.
	if s.Model != "project-model" {
		t.Errorf("Expected project layer to win, got %q", s.Model)
	}
	// A field the higher layers leave out keeps the global value.
	if s.Title != "Global" {
		t.Errorf("Expected global title preserved, got %q", s.Title)
	}

	names := make([]string, len(layers))
	for i, l := range layers {
		names[i] = l.Name
	}
	want := []string{"defaults", "global", "environment", "project"}
	if len(names) != len(want) {
		t.Fatalf("Expected layers %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected layer %d to be %s, got %s", i, want[i], names[i])
		}
	}
}

func TestResolveEnvironmentOverridesGlobal(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	writeLayer(t, filepath.Join(home, DirName, "config.yaml"), "provider: openai\n")

	getenv := func(key string) string {
		switch key {
		case "PARLEY_PROVIDER":
			return "anthropic"
		case "PARLEY_MAX_TOKENS":
			return "2048"
		}
		return ""
	}

	s, _, err := Resolve(Options{Cwd: cwd, Home: home, Getenv: getenv})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Provider != "anthropic" {
		t.Errorf("Expected environment to override global provider, got %q", s.Provider)
	}
	if s.MaxTokens != 2048 {
		t.Errorf("Expected max tokens 2048 from environment, got %d", s.MaxTokens)
	}
}

func TestResolveExplicitFileIsFinalLayer(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	writeLayer(t, filepath.Join(cwd, DirName, "config.yaml"), "model: project-model\ntemperature: 0.9\n")
	explicit := filepath.Join(t.TempDir(), "override.yaml")
	writeLayer(t, explicit, "model: explicit-model\n")

	s, _, err := Resolve(Options{ConfigFile: explicit, Cwd: cwd, Home: home, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Model != "explicit-model" {
		t.Errorf("Expected explicit file to win, got %q", s.Model)
	}
	if s.Temperature == nil || *s.Temperature != 0.9 {
		t.Errorf("Expected project temperature preserved, got %v", s.Temperature)
	}
}

func TestResolveMissingPresetIsNotFound(t *testing.T) {
	_, _, err := Resolve(Options{Preset: "nope", Cwd: t.TempDir(), Home: t.TempDir(), Getenv: noEnv})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing preset, got %v", err)
	}
}

func TestResolveMissingExplicitFileIsNotFound(t *testing.T) {
	_, _, err := Resolve(Options{
		ConfigFile: filepath.Join(t.TempDir(), "absent.yaml"),
		Cwd:        t.TempDir(),
		Home:       t.TempDir(),
		Getenv:     noEnv,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing explicit file, got %v", err)
	}
}

func TestResolveMalformedLayerNamesLayer(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()
	writeLayer(t, filepath.Join(cwd, DirName, "config.yaml"), "model: [not\n")

	_, _, err := Resolve(Options{Cwd: cwd, Home: home, Getenv: noEnv})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Expected ErrMalformed, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "project config") {
		t.Errorf("Expected error to name the offending layer, got %q", got)
	}
}

func TestResolveMalformedEnvValue(t *testing.T) {
	getenv := func(key string) string {
		if key == "PARLEY_TEMPERATURE" {
			return "toasty"
		}
		return ""
	}
	_, _, err := Resolve(Options{Cwd: t.TempDir(), Home: t.TempDir(), Getenv: getenv})
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed for bad env value, got %v", err)
	}
}

func TestProjectPresetShadowsGlobal(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	writeLayer(t, filepath.Join(home, DirName, "presets", "coding.yaml"), "temperature: 0.7\n")
	writeLayer(t, filepath.Join(cwd, DirName, "presets", "coding.yaml"), "temperature: 0.1\n")

	s, _, err := Resolve(Options{Preset: "coding", Cwd: cwd, Home: home, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s.Temperature == nil || *s.Temperature != 0.1 {
		t.Errorf("Expected project preset to shadow global, got %v", s.Temperature)
	}

	presets, err := ListPresets(cwd, home)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if dir, ok := presets["coding"]; !ok || dir.Root != filepath.Join(cwd, DirName) {
		t.Errorf("Expected listing to report the project copy, got %+v", presets)
	}
}

func TestPatchUnspecifiedFieldsNeverClear(t *testing.T) {
	temp := 0.5
	s := Settings{
		Provider:     "openai",
		Model:        "gpt-4o",
		Temperature:  &temp,
		MaxTokens:    100,
		SystemPrompt: "keep me",
		Title:        "Chat",
		MCPServers:   []MCPServer{{Name: "fs", Command: "mcp-fs"}},
	}

	Patch{}.apply(&s)

	if s.Provider != "openai" || s.Model != "gpt-4o" || s.SystemPrompt != "keep me" {
		t.Errorf("Empty patch must not clear values, got %+v", s)
	}
	if s.Temperature == nil || *s.Temperature != 0.5 {
		t.Errorf("Empty patch must not clear temperature, got %v", s.Temperature)
	}
	if len(s.MCPServers) != 1 {
		t.Errorf("Empty patch must not clear server list, got %+v", s.MCPServers)
	}
}

func TestPatchServerListReplacesWholesale(t *testing.T) {
	s := Settings{MCPServers: []MCPServer{{Name: "a", Command: "a"}, {Name: "b", Command: "b"}}}

	Patch{MCPServers: []MCPServer{{Name: "c", Command: "c"}}}.apply(&s)

	if len(s.MCPServers) != 1 || s.MCPServers[0].Name != "c" {
		t.Errorf("Expected whole-list replacement, got %+v", s.MCPServers)
	}
}
