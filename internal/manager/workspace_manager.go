package manager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/syntlyx/drupal-lsp-server/pkg/workspace"
)

// ProjectMetadata represents the project information exposed by the API.
type ProjectMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

const (
	MaxOpenWorkspaces = 10
	ProjectListTTL    = 1 * time.Minute
)

// WorkspaceManager opens one workspace per Drupal root under a base
// directory and keeps the most recently used ones warm. Eviction
// closes the workspace, which stops its watcher and drops its index.
type WorkspaceManager struct {
	baseDir       string
	workspaces    *lru.Cache[string, *workspace.Workspace]
	mu            sync.RWMutex
	watch         bool
	cachedList    []ProjectMetadata
	lastListBuild time.Time
}

// NewWorkspaceManager creates a new WorkspaceManager.
func NewWorkspaceManager(baseDir string, watch bool) *WorkspaceManager {
	cache, _ := lru.NewWithEvict[string, *workspace.Workspace](MaxOpenWorkspaces, func(key string, value *workspace.Workspace) {
		value.Close()
	})

	return &WorkspaceManager{
		baseDir:    baseDir,
		workspaces: cache,
		watch:      watch,
	}
}

// GetWorkspace retrieves a workspace by project ID, scanning the
// project on first use.
func (wm *WorkspaceManager) GetWorkspace(projectID string) (*workspace.Workspace, error) {
	// lru.Get updates recency
	if w, ok := wm.workspaces.Get(projectID); ok {
		return w, nil
	}

	wm.mu.Lock()
	defer wm.mu.Unlock()

	// Double-check under lock
	if w, ok := wm.workspaces.Get(projectID); ok {
		return w, nil
	}

	projectDir := filepath.Join(wm.baseDir, projectID)
	if _, err := os.Stat(projectDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("project not found: %s", projectID)
	}

	cfg := workspace.DefaultConfig(projectDir)
	cfg.Watch = wm.watch
	cfg.ApplyEnv()

	w := workspace.New(cfg)
	if err := w.Open(); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to open workspace for project %s: %w", projectID, err)
	}

	wm.workspaces.Add(projectID, w)
	return w, nil
}

// ListProjects returns the available projects under the base dir.
func (wm *WorkspaceManager) ListProjects() ([]ProjectMetadata, error) {
	wm.mu.RLock()
	if time.Since(wm.lastListBuild) < ProjectListTTL && wm.cachedList != nil {
		list := make([]ProjectMetadata, len(wm.cachedList))
		copy(list, wm.cachedList)
		wm.mu.RUnlock()
		return list, nil
	}
	wm.mu.RUnlock()

	wm.mu.Lock()
	defer wm.mu.Unlock()

	if time.Since(wm.lastListBuild) < ProjectListTTL && wm.cachedList != nil {
		list := make([]ProjectMetadata, len(wm.cachedList))
		copy(list, wm.cachedList)
		return list, nil
	}

	entries, err := os.ReadDir(wm.baseDir)
	if err != nil {
		return nil, err
	}

	var projects []ProjectMetadata
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		meta := ProjectMetadata{
			ID:   id,
			Name: id,
		}

		// composer.json carries the site name when present.
		composerPath := filepath.Join(wm.baseDir, id, "composer.json")
		if data, err := os.ReadFile(composerPath); err == nil {
			var composer struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}
			if err := json.Unmarshal(data, &composer); err == nil {
				if composer.Name != "" {
					meta.Name = composer.Name
				}
				meta.Description = composer.Description
			}
		}
		projects = append(projects, meta)
	}

	wm.cachedList = projects
	wm.lastListBuild = time.Now()

	return projects, nil
}

// CloseAll closes all open workspaces.
func (wm *WorkspaceManager) CloseAll() {
	wm.workspaces.Purge()
}
