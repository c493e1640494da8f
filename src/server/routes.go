package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/trendlab/pulse/src/cache"
	"github.com/trendlab/pulse/src/hub"
	"github.com/trendlab/pulse/src/service"
	"github.com/trendlab/pulse/src/types"
)

func (s *Server) routes() {
	s.app.Get("/healthz", s.handleHealth)
	s.app.Get("/ws/info", s.handleInfo)
	s.app.Get("/metrics", s.handleMetrics)
	s.app.Get("/topics", s.handleTopics)
	s.app.Get("/connections/:id", s.handleConnection)
	s.app.Get("/events/:type/latest", s.handleLatestEvent)
	s.app.Post("/events", s.handleSubmit)
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"connections":    s.hub.ClientCount(),
	})
}

func (s *Server) handleInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"websocket": true,
		"endpoint":  "/ws",
		"clients":   s.hub.ClientCount(),
		"topics":    len(s.hub.Topics()),
	})
}

func (s *Server) handleMetrics(c fiber.Ctx) error {
	return c.JSON(s.hub.Metrics())
}

func (s *Server) handleTopics(c fiber.Ctx) error {
	return c.JSON(s.hub.Topics())
}

func (s *Server) handleConnection(c fiber.Ctx) error {
	info := s.hub.Info(c.Params("id"))
	if info == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown connection"})
	}
	return c.JSON(info)
}

func (s *Server) handleLatestEvent(c fiber.Ctx) error {
	t := types.EventType(c.Params("type"))
	if !t.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown event type"})
	}
	if s.events == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "event cache not configured"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	ev, err := s.events.LatestEvent(ctx, t)
	if errors.Is(err, cache.ErrCacheMiss) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no recent event"})
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(t)).Msg("latest event read failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "event cache unavailable"})
	}
	return c.JSON(ev)
}

// submitRequest is the producer ingress payload. Timestamp is optional unix
// milliseconds; zero means "now".
type submitRequest struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	TopicID   string          `json:"topic_id,omitempty"`
}

func (s *Server) handleSubmit(c fiber.Ctx) error {
	var req submitRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	ev := types.Event{
		Type:    types.EventType(req.Type),
		Payload: req.Payload,
		UserID:  req.UserID,
		TopicID: req.TopicID,
	}
	if req.Timestamp > 0 {
		ev.Timestamp = time.UnixMilli(req.Timestamp)
	}

	err := s.svc.SubmitEvent(ev)
	switch {
	case errors.Is(err, service.ErrInvalidEventType):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, hub.ErrHubClosed):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "server is shutting down"})
	case err != nil:
		s.logger.Error().Err(err).Msg("event submit failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "submit failed"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": true})
}
