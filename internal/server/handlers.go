package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/elliotttmiller/sentinel/internal/mission"
	"github.com/elliotttmiller/sentinel/internal/types"
)

// submitRequest is the body of POST /api/missions.
type submitRequest struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt" binding:"required"`
	AgentType string `json:"agent_type"`
}

// submitMission creates a pending mission row and starts its run
// asynchronously. The response returns immediately; progress is observable
// on the event stream.
func (s *Server) submitMission(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ID == "" {
		req.ID = types.NewID().String()
	}
	if req.AgentType == "" {
		req.AgentType = "default"
	}

	m := mission.NewMission(req.ID, req.Prompt, req.AgentType)
	if err := s.store.Save(c.Request.Context(), m); err != nil {
		s.renderError(c, err)
		return
	}

	go func() {
		if _, err := s.engine.Run(s.runCtx, m.ID, m.Prompt, m.AgentType); err != nil {
			s.logger.Error("mission run failed to start",
				slog.String("mission_id", m.ID),
				slog.String("error", err.Error()))
		}
	}()

	c.JSON(http.StatusAccepted, m)
}

func (s *Server) getMission(c *gin.Context) {
	m, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) listMissions(c *gin.Context) {
	filter := &mission.Filter{}

	if raw := c.Query("status"); raw != "" {
		status, err := mission.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("agent_type"); raw != "" {
		filter.AgentType = &raw
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}

	missions, err := s.store.List(c.Request.Context(), filter)
	if err != nil {
		s.renderError(c, err)
		return
	}

	total, err := s.store.Count(c.Request.Context(), filter)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"missions": missions, "total": total})
}

func (s *Server) cancelMission(c *gin.Context) {
	id := c.Param("id")
	if err := s.engine.Cancel(c.Request.Context(), id); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "cancelling": true})
}

// streamEvents subscribes the client to the live event stream over
// Server-Sent Events. The handler blocks until the client disconnects or
// the bus prunes the connection.
func (s *Server) streamEvents(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	conn := newSSEConn(c.Writer, flusher, c.Request.Context())
	s.bus.Subscribe(conn)
	s.logger.Info("observer connected", slog.String("connection_id", conn.ID()))

	<-c.Request.Context().Done()

	s.bus.Unsubscribe(conn)
	_ = conn.Close()
	s.logger.Info("observer disconnected", slog.String("connection_id", conn.ID()))
}

// listConnections exposes the bus's per-connection delivery diagnostics.
func (s *Server) listConnections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connections": s.bus.Diagnostics()})
}

// renderError maps the error taxonomy to HTTP status codes.
func (s *Server) renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case types.HasCode(err, types.MISSION_NOT_FOUND):
		status = http.StatusNotFound
	case types.HasCode(err, types.MISSION_INVALID),
		types.HasCode(err, types.ENGINE_INVALID_INPUT):
		status = http.StatusBadRequest
	case types.HasCode(err, types.MISSION_TERMINAL),
		types.HasCode(err, types.MISSION_ALREADY_ACTIVE):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
