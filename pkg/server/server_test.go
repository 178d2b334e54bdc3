package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syntlyx/drupal-lsp-server/internal/manager"
)

func setupTestServer(t *testing.T) *Server {
	baseDir := t.TempDir()
	root := filepath.Join(baseDir, "site")
	files := map[string]string{
		"modules/custom/shop/shop.services.yml": "services:\n  shop.cart:\n    class: Drupal\\shop\\Cart\n",
		"modules/custom/shop/shop.routing.yml":  "shop.checkout:\n  path: '/checkout'\n  requirements:\n    _permission: 'access checkout'\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	mgr := manager.NewWorkspaceManager(baseDir, false)
	t.Cleanup(mgr.CloseAll)
	return NewServer(mgr)
}

func do(srv *Server, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, target, nil)
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	srv := setupTestServer(t)
	w := do(srv, "GET", "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListProjects(t *testing.T) {
	srv := setupTestServer(t)
	w := do(srv, "GET", "/v1/projects")
	assert.Equal(t, http.StatusOK, w.Code)

	var projects []manager.ProjectMetadata
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &projects))
	assert.Len(t, projects, 1)
	assert.Equal(t, "site", projects[0].ID)
}

func TestEntities(t *testing.T) {
	srv := setupTestServer(t)

	// No ?project falls back to the only project.
	w := do(srv, "GET", "/v1/entities")
	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Entities []entityView `json:"entities"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Entities, 2)

	w = do(srv, "GET", "/v1/entities?project=site&kind=route")
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Entities, 1)
	assert.Equal(t, "shop.checkout", resp.Entities[0].Name)
	assert.Equal(t, "custom", resp.Entities[0].Tier)

	w = do(srv, "GET", "/v1/entities?q=cart")
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Entities, 1)
	assert.Equal(t, "shop.cart", resp.Entities[0].Name)

	w = do(srv, "GET", "/v1/entities?kind=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEntityByName(t *testing.T) {
	srv := setupTestServer(t)

	w := do(srv, "GET", "/v1/entities/shop.cart")
	assert.Equal(t, http.StatusOK, w.Code)
	var e entityView
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "service", e.Kind)
	assert.Equal(t, "Drupal\\shop\\Cart", e.Class)

	w = do(srv, "GET", "/v1/entities/no.such.thing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNamesAndStatus(t *testing.T) {
	srv := setupTestServer(t)

	w := do(srv, "GET", "/v1/names?kind=service")
	assert.Equal(t, http.StatusOK, w.Code)
	var names struct {
		Names []string `json:"names"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &names))
	assert.Equal(t, []string{"shop.cart"}, names.Names)

	w = do(srv, "GET", "/v1/status")
	assert.Equal(t, http.StatusOK, w.Code)
	var status map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, true, status["populated"])
	assert.Equal(t, float64(2), status["total"])
}

func TestUnknownProject(t *testing.T) {
	srv := setupTestServer(t)
	w := do(srv, "GET", "/v1/entities?project=nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRescan(t *testing.T) {
	srv := setupTestServer(t)
	w := do(srv, "POST", "/v1/rescan?project=site")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp["total"])
}
