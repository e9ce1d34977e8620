package api

import (
	"github.com/gin-gonic/gin"

	"github.com/strauser85/snap-sold-sub000/jobs"
	"github.com/strauser85/snap-sold-sub000/session"
)

// Server handles HTTP API requests for video creation.
type Server struct {
	processor *session.Processor
	store     jobs.Store
}

// NewServer creates a new API server instance.
func NewServer(proc *session.Processor, store jobs.Store) *Server {
	return &Server{processor: proc, store: store}
}

// NewRouter constructs a Gin engine with registered routes.
func (s *Server) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	s.RegisterVideoRoutes(r)
	s.RegisterHealthRoutes(r)
	return r
}
