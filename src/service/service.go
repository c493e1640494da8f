package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/trendlab/pulse/src/cache"
	"github.com/trendlab/pulse/src/hub"
	"github.com/trendlab/pulse/src/monitor"
	"github.com/trendlab/pulse/src/types"
)

// ErrInvalidEventType is returned when a producer submits an event whose
// type is not in the known set.
var ErrInvalidEventType = errors.New("service: invalid event type")

// snapshotTimeout bounds each cache read while assembling initial data.
const snapshotTimeout = 3 * time.Second

// Snapshotter serves the catch-up payloads pushed to newly authenticated
// connections. *cache.EventKeeper implements it.
type Snapshotter interface {
	Snapshot(ctx context.Context, name string) (json.RawMessage, error)
}

// Service implements the client-facing protocol on top of the hub: the
// authenticate, subscribe, unsubscribe, and ping handlers, plus the producer
// entry point for new events.
type Service struct {
	hub       *hub.Hub
	snapshots Snapshotter
	logger    zerolog.Logger
}

// New wires the protocol handlers into the hub. snapshots may be nil, in
// which case newly authenticated connections get no initial data.
func New(h *hub.Hub, snapshots Snapshotter, logger zerolog.Logger) *Service {
	s := &Service{
		hub:       h,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "service").Logger(),
	}
	h.RegisterHandler(types.MsgAuthenticate, s.handleAuthenticate)
	h.RegisterHandler(types.MsgSubscribe, s.handleSubscribe)
	h.RegisterHandler(types.MsgUnsubscribe, s.handleUnsubscribe)
	h.RegisterHandler(types.MsgPing, s.handlePing)
	return s
}

// Hub returns the underlying hub.
func (s *Service) Hub() *hub.Hub { return s.hub }

// SubmitEvent validates and forwards a producer event into the dispatch
// engine. The timestamp defaults to now when unset.
func (s *Service) SubmitEvent(ev types.Event) error {
	if !ev.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEventType, ev.Type)
	}
	return s.hub.Submit(ev)
}

func (s *Service) handleAuthenticate(connID string, msg types.ClientMessage) error {
	if msg.UserID == "" {
		s.hub.SendToClient(connID, types.ServerMessage{
			Type:    types.MsgAuthenticated,
			Success: flag(false),
			Message: "user_id is required",
		})
		return nil
	}

	if err := s.hub.Authenticate(connID, msg.UserID); err != nil {
		return err
	}
	s.hub.SendToClient(connID, types.ServerMessage{
		Type:    types.MsgAuthenticated,
		Success: flag(true),
	})

	s.sendInitialData(connID)
	return nil
}

// sendInitialData pushes the catch-up snapshots to a connection that just
// authenticated. Missing snapshots are skipped; cache errors are logged and
// swallowed so authentication never depends on the cache being up.
func (s *Service) sendInitialData(connID string) {
	if s.snapshots == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	for _, name := range []string{cache.SnapshotTrending, cache.SnapshotRecentActivity} {
		data, err := s.snapshots.Snapshot(ctx, name)
		if errors.Is(err, cache.ErrCacheMiss) {
			continue
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("snapshot", name).Msg("initial data unavailable")
			continue
		}
		s.hub.SendToClient(connID, types.ServerMessage{
			Type:     types.MsgInitialData,
			DataType: name,
			Data:     data,
		})
	}
}

func (s *Service) handleSubscribe(connID string, msg types.ClientMessage) error {
	topics := cleanTopics(msg.Topics)
	if len(topics) > 0 {
		if err := s.hub.Subscribe(connID, topics...); err != nil {
			return err
		}
	}
	s.hub.SendToClient(connID, types.ServerMessage{
		Type:   types.MsgSubscribed,
		Topics: topics,
	})
	return nil
}

func (s *Service) handleUnsubscribe(connID string, msg types.ClientMessage) error {
	topics := cleanTopics(msg.Topics)
	if len(topics) > 0 {
		if err := s.hub.Unsubscribe(connID, topics...); err != nil {
			return err
		}
	}
	s.hub.SendToClient(connID, types.ServerMessage{
		Type:   types.MsgUnsubscribed,
		Topics: topics,
	})
	return nil
}

func (s *Service) handlePing(connID string, msg types.ClientMessage) error {
	reply := types.ServerMessage{
		Type:      types.MsgPong,
		Timestamp: msg.Timestamp,
	}
	if msg.Timestamp > 0 {
		latency := time.Since(time.UnixMilli(msg.Timestamp))
		s.hub.RecordLatency(latency)
		reply.LatencyMS = latency.Milliseconds()
	}
	s.hub.SendToClient(connID, reply)
	return nil
}

// RunSystemMetrics publishes one system metric event per interval, sampled
// from the monitor. Call in a goroutine; it returns when ctx is cancelled.
func (s *Service) RunSystemMetrics(ctx context.Context, m monitor.Monitor, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.publishSystemMetric(ctx, m)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) publishSystemMetric(ctx context.Context, m monitor.Monitor) {
	stats, err := m.Stats(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("system metric sample failed")
		return
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		s.logger.Error().Err(err).Msg("system metric payload marshal failed")
		return
	}

	err = s.SubmitEvent(types.Event{
		Type:      types.EventSystemMetric,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil && !errors.Is(err, hub.ErrHubClosed) {
		s.logger.Warn().Err(err).Msg("system metric submit failed")
	}
}

func cleanTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func flag(b bool) *bool { return &b }
