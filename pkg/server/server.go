package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syntlyx/drupal-lsp-server/internal/manager"
)

// Server holds the state for the REST inspection API.
type Server struct {
	manager *manager.WorkspaceManager
	router  *gin.Engine
}

// NewServer creates a new Server instance.
func NewServer(mgr *manager.WorkspaceManager) *Server {
	r := gin.Default()
	s := &Server{
		manager: mgr,
		router:  r,
	}
	s.setupRoutes()
	return s
}

// Run starts the server on the specified address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/v1/projects", s.handleProjects)
	s.router.GET("/v1/entities", s.handleEntities)
	s.router.GET("/v1/entities/:name", s.handleEntity)
	s.router.GET("/v1/names", s.handleNames)
	s.router.GET("/v1/status", s.handleStatus)
	s.router.POST("/v1/rescan", s.handleRescan)
}

// Health check
func (s *Server) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}
