package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/strauser85/snap-sold-sub000/types"
)

// RegisterVideoRoutes registers video creation endpoints.
func (s *Server) RegisterVideoRoutes(r *gin.Engine) {
	g := r.Group("/api/videos")
	g.POST("", s.handleCreateVideo)
	g.GET("/:id", s.handleGetJob)
	g.GET("/:id/frame", s.handlePreviewFrame)
	g.POST("/:id/stop", s.handleStopJob)
}

// CreateVideoResponse acknowledges an accepted request.
type CreateVideoResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// handleCreateVideo accepts a VideoRequest and starts processing it
// asynchronously. InputErrors are rejected immediately with 400; anything
// later shows up on the job record.
func (s *Server) handleCreateVideo(c *gin.Context) {
	var req types.VideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.processor.Validate(&req); err != nil {
		var ie *types.InputError
		if errors.As(err, &ie) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go func() {
		if err := s.processor.Process(context.Background(), req); err != nil {
			log.Printf("video processing failed for %s: %v", req.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, CreateVideoResponse{
		ID:      req.ID,
		Message: "video processing started",
	})
}

// handleGetJob returns the job record for a request.
func (s *Server) handleGetJob(c *gin.Context) {
	id := c.Param("id")

	job, ok, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// handlePreviewFrame composes the frame at time t against the job's
// schedules: which image is up and how much caption is revealed.
func (s *Server) handlePreviewFrame(c *gin.Context) {
	id := c.Param("id")

	t, err := strconv.ParseFloat(c.DefaultQuery("t", "0"), 64)
	if err != nil || t < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid t"})
		return
	}

	sess, ok := s.processor.Session(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	frame, ok := sess.Preview(t)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "session not yet prepared"})
		return
	}
	c.JSON(http.StatusOK, frame)
}

// handleStopJob cancels an in-flight session.
func (s *Server) handleStopJob(c *gin.Context) {
	id := c.Param("id")

	if !s.processor.Stop(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "stop requested"})
}
