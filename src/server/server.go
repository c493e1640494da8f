package server

import (
	"context"
	"strings"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/trendlab/pulse/src/cache"
	"github.com/trendlab/pulse/src/hub"
	"github.com/trendlab/pulse/src/service"
	"github.com/trendlab/pulse/src/types"
)

var upgrader = websocket.FastHTTPUpgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Server exposes the WebSocket endpoint and the HTTP API around the hub:
// health, introspection, metrics, and the producer ingress.
type Server struct {
	app       *fiber.App
	hub       *hub.Hub
	svc       *service.Service
	events    *cache.EventKeeper
	httpSrv   *fasthttp.Server
	logger    zerolog.Logger
	startedAt time.Time
}

// New builds the server around an already-wired hub and service. events may
// be nil when no event cache is configured.
func New(h *hub.Hub, svc *service.Service, events *cache.EventKeeper, logger zerolog.Logger) *Server {
	s := &Server{
		app:       fiber.New(),
		hub:       h,
		svc:       svc,
		events:    events,
		logger:    logger.With().Str("component", "server").Logger(),
		startedAt: time.Now(),
	}
	s.routes()
	s.httpSrv = &fasthttp.Server{
		Handler: s.Handler(),
		Name:    "pulse",
	}
	return s
}

// Handler returns the root fasthttp handler: WebSocket upgrades on /ws,
// everything else through the Fiber app. Fiber v3 does not expose the raw
// *fasthttp.RequestCtx, so the upgrade is multiplexed in front of it.
func (s *Server) Handler() fasthttp.RequestHandler {
	appHandler := s.app.Handler()
	wsHandler := s.wsHandler()
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/ws" {
			wsHandler(ctx)
			return
		}
		appHandler(ctx)
	}
}

// Listen serves HTTP and WebSocket traffic on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("server listening")
	return s.httpSrv.ListenAndServe(addr)
}

// Shutdown stops accepting new connections and waits for in-flight requests
// up to the context deadline. Upgraded WebSocket connections are owned and
// closed by the hub.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.ShutdownWithContext(ctx)
}

// wsHandler returns the raw fasthttp handler for WebSocket upgrades.
func (s *Server) wsHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		upgrade := string(ctx.Request.Header.Peek("Upgrade"))
		if !strings.EqualFold(upgrade, "websocket") {
			ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
			ctx.SetContentType("application/json")
			ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
			return
		}

		connID := uuid.New().String()
		err := upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
			s.serveConn(connID, &wsConn{conn})
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("websocket upgrade failed")
		}
	}
}

// serveConn registers the connection and runs its pumps until it drops.
func (s *Server) serveConn(connID string, conn types.Conn) {
	client, err := s.hub.Register(connID, conn)
	if err != nil {
		s.logger.Warn().Err(err).Str("conn_id", connID).Msg("registration rejected")
		_ = conn.Close()
		return
	}
	go client.WritePump()
	client.ReadPump()
}

var _ types.Conn = (*wsConn)(nil)

// wsConn wraps fasthttp/websocket.Conn to satisfy types.Conn.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) WriteJSON(v any) error { return w.conn.WriteJSON(v) }
func (w *wsConn) ReadJSON(v any) error  { return w.conn.ReadJSON(v) }
func (w *wsConn) Close() error          { return w.conn.Close() }
