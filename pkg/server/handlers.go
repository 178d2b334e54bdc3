package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/syntlyx/drupal-lsp-server/pkg/common/errors"
	"github.com/syntlyx/drupal-lsp-server/pkg/index"
	"github.com/syntlyx/drupal-lsp-server/pkg/workspace"
)

func handleError(c *gin.Context, err error) {
	appErr := errors.MapError(err)
	c.JSON(appErr.Code, gin.H{"error": appErr.Message})
}

// entityView is the JSON shape of one indexed entity. Zero-valued
// attributes are omitted so a route does not carry empty service
// fields.
type entityView struct {
	Kind       string            `json:"kind"`
	Name       string            `json:"name"`
	Tier       string            `json:"tier"`
	SourceFile string            `json:"source_file"`
	SourceLine int               `json:"source_line"`
	Class      string            `json:"class,omitempty"`
	Parent     string            `json:"parent,omitempty"`
	Arguments  []string          `json:"arguments,omitempty"`
	Factory    string            `json:"factory,omitempty"`
	Alias      string            `json:"alias,omitempty"`
	Path       string            `json:"path,omitempty"`
	Controller string            `json:"controller,omitempty"`
	Permission string            `json:"permission,omitempty"`
	Title      string            `json:"title,omitempty"`
	RouteName  string            `json:"route_name,omitempty"`
	AppearsOn  []string          `json:"appears_on,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

func viewOf(e index.Entity) entityView {
	return entityView{
		Kind:       string(e.Kind),
		Name:       e.Name,
		Tier:       e.Tier.String(),
		SourceFile: e.SourceFile,
		SourceLine: e.SourceLine,
		Class:      e.Class,
		Parent:     e.Parent,
		Arguments:  e.Arguments,
		Factory:    e.Factory,
		Alias:      e.Alias,
		Path:       e.Path,
		Controller: e.Controller,
		Permission: e.Permission,
		Title:      e.Title,
		RouteName:  e.RouteName,
		AppearsOn:  e.AppearsOn,
		Extra:      e.Extra,
	}
}

// parseKind validates the optional ?kind= parameter. Empty means all
// kinds.
func parseKind(raw string) (index.Kind, error) {
	switch raw {
	case "":
		return "", nil
	case string(index.KindService), string(index.KindRoute), string(index.KindLink):
		return index.Kind(raw), nil
	}
	return "", errors.NewAppError(http.StatusBadRequest, "Unknown kind: "+raw, errors.ErrInvalidInput)
}

func (s *Server) workspaceFor(c *gin.Context) (*workspace.Workspace, bool) {
	projectID := c.Query("project")
	if projectID == "" {
		// Single-project setups get the first (often only) project.
		projects, err := s.manager.ListProjects()
		if err == nil && len(projects) > 0 {
			projectID = projects[0].ID
		}
	}
	if projectID == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Missing project ID", nil))
		return nil, false
	}

	w, err := s.manager.GetWorkspace(projectID)
	if err != nil {
		handleError(c, errors.NewAppError(http.StatusNotFound, err.Error(), errors.ErrNotFound))
		return nil, false
	}
	return w, true
}

// handleProjects returns a list of available projects.
func (s *Server) handleProjects(c *gin.Context) {
	projects, err := s.manager.ListProjects()
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// handleEntities lists indexed entities, optionally filtered by
// ?kind= and a ?q= substring over names.
func (s *Server) handleEntities(c *gin.Context) {
	w, ok := s.workspaceFor(c)
	if !ok {
		return
	}
	kind, err := parseKind(c.Query("kind"))
	if err != nil {
		handleError(c, err)
		return
	}
	if !w.IsPopulated() {
		handleError(c, errors.ErrNotPopulated)
		return
	}

	q := strings.ToLower(c.Query("q"))
	views := []entityView{}
	for _, e := range w.ListAll(kind) {
		if q != "" && !strings.Contains(strings.ToLower(e.Name), q) {
			continue
		}
		views = append(views, viewOf(e))
	}
	c.JSON(http.StatusOK, gin.H{"entities": views})
}

// handleEntity looks one name up across all kinds.
func (s *Server) handleEntity(c *gin.Context) {
	w, ok := s.workspaceFor(c)
	if !ok {
		return
	}
	if !w.IsPopulated() {
		handleError(c, errors.ErrNotPopulated)
		return
	}

	name := c.Param("name")
	e, found := w.LookupByName(name)
	if !found {
		handleError(c, errors.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, viewOf(e))
}

// handleNames provides fast name listing for autocomplete tooling.
func (s *Server) handleNames(c *gin.Context) {
	w, ok := s.workspaceFor(c)
	if !ok {
		return
	}
	kind, err := parseKind(c.Query("kind"))
	if err != nil {
		handleError(c, err)
		return
	}
	if kind == "" {
		kind = index.KindService
	}
	if !w.IsPopulated() {
		handleError(c, errors.ErrNotPopulated)
		return
	}

	names := w.ListAllNames(kind)
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"names": names})
}

// handleStatus reports per-kind counts and scan state.
func (s *Server) handleStatus(c *gin.Context) {
	w, ok := s.workspaceFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"root":      w.Config().Root,
		"populated": w.IsPopulated(),
		"total":     w.Index().Len(),
		"services":  len(w.ListAllNames(index.KindService)),
		"routes":    len(w.ListAllNames(index.KindRoute)),
		"links":     len(w.ListAllNames(index.KindLink)),
		"phpcs":     w.StyleAvailable(),
	})
}

// handleRescan rebuilds the project's index from disk.
func (s *Server) handleRescan(c *gin.Context) {
	w, ok := s.workspaceFor(c)
	if !ok {
		return
	}
	count := w.ScanAndPopulate()
	c.JSON(http.StatusOK, gin.H{"indexed": count, "total": w.Index().Len()})
}
