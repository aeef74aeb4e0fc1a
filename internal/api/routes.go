package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oselight/stripdeck/internal/assist"
	"github.com/oselight/stripdeck/internal/config"
	"github.com/oselight/stripdeck/internal/inference"
	"github.com/oselight/stripdeck/internal/storage/sqlite"
	"github.com/oselight/stripdeck/internal/strips"
	"github.com/oselight/stripdeck/internal/websocket"
	"github.com/oselight/stripdeck/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(
	board *strips.Board,
	assistService *assist.Service,
	inferenceClient *inference.Client,
	actionStorage *sqlite.ActionStorage,
	analysisStorage *sqlite.AnalysisStorage,
	wsServer *websocket.Server,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		handler:    NewHandler(board, assistService, inferenceClient, actionStorage, analysisStorage, wsServer, cfg, log),
		middleware: NewMiddleware(log),
		config:     cfg,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	// API routes
	router.Route("/api/v1", func(router chi.Router) {
		// Strip board routes
		router.Get("/strips", r.handler.GetStrips)
		router.Post("/strips", r.handler.CreateStrip)
		router.Get("/strips/{callsign}", r.handler.GetStripByCallsign)
		router.Delete("/strips/{callsign}", r.handler.RemoveStrip)
		router.Put("/strips/{callsign}/stage", r.handler.MoveStrip)
		router.Put("/strips/{callsign}/notes", r.handler.UpdateStripNotes)
		router.Put("/strips/{callsign}/squawk", r.handler.UpdateStripSquawk)

		// Assist routes
		router.Post("/assist/analyze", r.handler.AnalyzeBoard)
		router.Post("/assist/analyze/{callsign}", r.handler.AnalyzeStrip)
		router.Post("/assist/query", r.handler.Query)
		router.Post("/assist/command", r.handler.RelayCommand)
		router.Get("/assist/summary/{callsign}", r.handler.IncidentSummary)
		router.Get("/assist/history/{callsign}", r.handler.GetAnalysisHistory)

		// Audit log routes
		router.Get("/actions", r.handler.GetRecentActions)
		router.Get("/actions/{callsign}", r.handler.GetActionsByCallsign)
		router.Get("/analyses", r.handler.GetRecentAnalyses)
		router.Get("/analyses/{callsign}", r.handler.GetAnalysesByCallsign)

		// WebSocket route
		router.Get("/ws", r.handler.HandleWebSocket)

		// Health check
		router.Get("/health", r.handler.GetHealth)

		// Configuration
		router.Get("/config", r.handler.GetConfig)
	})

	// Serve static files from the configured directory
	staticHandler := NewStaticFileHandler(r.config.Server.StaticFilesDir, r.logger)
	router.Handle("/*", staticHandler)

	return router
}
