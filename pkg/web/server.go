// Package web exposes the presence engine over HTTP and WebSocket.
package web

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studybuddy/presence/pkg/hub"
	"github.com/studybuddy/presence/pkg/stage"
)

// Server is the presence HTTP server
type Server struct {
	app    *fiber.App
	port   string
	stage  *stage.App
	logger *slog.Logger
}

// NewServer creates a server for st. staticDir, when set, is served at /.
func NewServer(port, staticDir string, st *stage.App, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{port: port, stage: st, logger: logger}

	app := fiber.New(fiber.Config{
		AppName:               "Presence",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if staticDir != "" {
		app.Static("/", staticDir)
	}

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/state", s.handleState)
	api.Post("/speak", s.handleSpeak)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(st.Metrics.Registry(), promhttp.HandlerOpts{})))

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/presence", websocket.New(s.handlePresenceWS))

	s.app = app
	return s
}

// App returns the underlying fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens until the server is shut down
func (s *Server) Start() error {
	s.logger.Info("presence server listening", "addr", ":"+s.port)
	if err := s.app.Listen(":" + s.port); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Run starts the server and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := s.Shutdown(); err != nil {
			return err
		}
		return <-errCh
	}
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"clients": s.stage.Hub.ClientCount(),
		"running": s.stage.Hub.IsRunning(),
		"mounted": s.stage.Slot.Controller() != nil,
	})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.stage.Snapshot())
}

// handleSpeak is fire-and-forget: it always answers 202. Malformed
// bodies narrate nothing visible rather than failing.
func (s *Server) handleSpeak(c *fiber.Ctx) error {
	text, audioURL := parseSpeak(c.Body())
	s.stage.Speak(text, audioURL)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": true})
}

func (s *Server) handlePresenceWS(conn *websocket.Conn) {
	client := hub.NewClient(s.stage.Hub, conn,
		hub.OnRead(s.stage.HandleMessage),
		hub.OnJoin(s.stage.Greet),
	)
	client.Run()
}
