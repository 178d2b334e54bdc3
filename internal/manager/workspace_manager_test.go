package manager

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProject(t *testing.T, baseDir, id string) {
	t.Helper()
	path := filepath.Join(baseDir, id, "modules/custom/site/site.services.yml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "services:\n  " + id + ".mailer:\n    class: Drupal\\site\\Mailer\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGetWorkspace(t *testing.T) {
	baseDir := t.TempDir()
	writeProject(t, baseDir, "alpha")

	wm := NewWorkspaceManager(baseDir, false)
	defer wm.CloseAll()

	w, err := wm.GetWorkspace("alpha")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := w.LookupByName("alpha.mailer"); !ok {
		t.Error("workspace should be scanned on first open")
	}

	// Second fetch returns the cached instance.
	w2, err := wm.GetWorkspace("alpha")
	if err != nil {
		t.Fatal(err)
	}
	if w2 != w {
		t.Error("expected the cached workspace")
	}

	if _, err := wm.GetWorkspace("no-such-project"); err == nil {
		t.Error("expected error for unknown project")
	}
}

func TestListProjects(t *testing.T) {
	baseDir := t.TempDir()
	writeProject(t, baseDir, "alpha")
	writeProject(t, baseDir, "beta")

	composer := `{"name": "acme/alpha", "description": "Main site"}`
	if err := os.WriteFile(filepath.Join(baseDir, "alpha", "composer.json"), []byte(composer), 0o644); err != nil {
		t.Fatal(err)
	}
	// A stray file must not show up as a project.
	if err := os.WriteFile(filepath.Join(baseDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	wm := NewWorkspaceManager(baseDir, false)
	defer wm.CloseAll()

	projects, err := wm.ListProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}

	byID := map[string]ProjectMetadata{}
	for _, p := range projects {
		byID[p.ID] = p
	}
	if byID["alpha"].Name != "acme/alpha" || byID["alpha"].Description != "Main site" {
		t.Errorf("composer metadata not applied: %+v", byID["alpha"])
	}
	if byID["beta"].Name != "beta" {
		t.Errorf("default name should be the directory name: %+v", byID["beta"])
	}

	// Cached list is served until the TTL passes.
	writeProject(t, baseDir, "gamma")
	projects, err = wm.ListProjects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 {
		t.Errorf("list should come from the cache, got %d entries", len(projects))
	}
}
