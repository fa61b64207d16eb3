package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindProjectDirWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, DirName), 0755); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	dir, ok := FindProjectDir(nested)
	if !ok {
		t.Fatal("Expected project dir to be found from nested path")
	}
	if dir.Root != filepath.Join(root, DirName) {
		t.Errorf("Expected root %s, got %s", filepath.Join(root, DirName), dir.Root)
	}
}

func TestFindProjectDirAbsent(t *testing.T) {
	if _, ok := FindProjectDir(t.TempDir()); ok {
		t.Error("Expected no project dir in empty tree")
	}
}

func TestDirCreateAndListPresets(t *testing.T) {
	dir := Dir{Root: filepath.Join(t.TempDir(), DirName)}
	if err := dir.Create(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	names, err := dir.ListPresets()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("Expected no presets in fresh dir, got %v", names)
	}

	for _, n := range []string{"writing", "coding"} {
		if err := os.WriteFile(dir.PresetFile(n), []byte("temperature: 0.3\n"), 0644); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	// Non-yaml files are not presets.
	if err := os.WriteFile(filepath.Join(dir.PresetsDir(), "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	names, err = dir.ListPresets()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "coding" || names[1] != "writing" {
		t.Errorf("Expected sorted preset names [coding writing], got %v", names)
	}
}

func TestHasConfig(t *testing.T) {
	dir := Dir{Root: filepath.Join(t.TempDir(), DirName)}
	if dir.HasConfig() {
		t.Error("Expected no config before creation")
	}
	if err := dir.Create(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := os.WriteFile(dir.ConfigFile(), []byte("model: m\n"), 0644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !dir.HasConfig() {
		t.Error("Expected config to be detected")
	}
}
