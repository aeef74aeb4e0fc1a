package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oselight/stripdeck/internal/assist"
	"github.com/oselight/stripdeck/internal/config"
	"github.com/oselight/stripdeck/internal/inference"
	"github.com/oselight/stripdeck/internal/storage/sqlite"
	"github.com/oselight/stripdeck/internal/strips"
	"github.com/oselight/stripdeck/internal/websocket"
	"github.com/oselight/stripdeck/pkg/logger"
)

const defaultAuditLimit = 50

// Handler contains the API handlers
type Handler struct {
	board           *strips.Board
	assistService   *assist.Service
	inferenceClient *inference.Client
	actionStorage   *sqlite.ActionStorage
	analysisStorage *sqlite.AnalysisStorage
	wsServer        *websocket.Server
	config          *config.Config
	logger          *logger.Logger
}

// NewHandler creates a new API handler. The storage arguments may be nil
// when audit storage is disabled.
func NewHandler(
	board *strips.Board,
	assistService *assist.Service,
	inferenceClient *inference.Client,
	actionStorage *sqlite.ActionStorage,
	analysisStorage *sqlite.AnalysisStorage,
	wsServer *websocket.Server,
	cfg *config.Config,
	log *logger.Logger,
) *Handler {
	return &Handler{
		board:           board,
		assistService:   assistService,
		inferenceClient: inferenceClient,
		actionStorage:   actionStorage,
		analysisStorage: analysisStorage,
		wsServer:        wsServer,
		config:          cfg,
		logger:          log.Named("api-handler"),
	}
}

// GetStrips returns the current strip board
func (h *Handler) GetStrips(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.board.Snapshot())
}

// GetStripByCallsign returns one strip
func (h *Handler) GetStripByCallsign(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")

	strip, ok := h.board.Snapshot().Find(callsign)
	if !ok {
		h.respondError(w, http.StatusNotFound, "strip not found")
		return
	}
	h.respondJSON(w, http.StatusOK, strip)
}

// CreateStrip adds a manually entered strip to the board
func (h *Handler) CreateStrip(w http.ResponseWriter, r *http.Request) {
	var strip strips.FlightStrip
	if err := json.NewDecoder(r.Body).Decode(&strip); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid strip payload")
		return
	}
	if strings.TrimSpace(strip.Callsign) == "" {
		h.respondError(w, http.StatusBadRequest, "callsign is required")
		return
	}

	strip.Callsign = strings.ToUpper(strings.TrimSpace(strip.Callsign))
	strip.UpdatedAt = time.Now().UTC()
	h.board.Upsert(strip)

	h.broadcastBoard()
	h.respondJSON(w, http.StatusCreated, strip)
}

// RemoveStrip deletes a strip from the board
func (h *Handler) RemoveStrip(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")

	if !h.board.Remove(callsign) {
		h.respondError(w, http.StatusNotFound, "strip not found")
		return
	}

	h.broadcastBoard()
	w.WriteHeader(http.StatusNoContent)
}

// MoveStrip moves a strip to another workflow stage
func (h *Handler) MoveStrip(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")

	var payload struct {
		Stage string `json:"stage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	stage, ok := strips.ParseStage(payload.Stage)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "unknown stage: "+payload.Stage)
		return
	}

	if err := h.board.MoveStrip(callsign, stage); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.broadcastBoard()
	h.respondJSON(w, http.StatusOK, map[string]string{"callsign": callsign, "stage": string(stage)})
}

// UpdateStripNotes replaces the free-text notes on a strip
func (h *Handler) UpdateStripNotes(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")

	var payload struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := h.board.UpdateNotes(callsign, payload.Notes); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.broadcastBoard()
	h.respondJSON(w, http.StatusOK, map[string]string{"callsign": callsign, "notes": payload.Notes})
}

// UpdateStripSquawk sets the squawk code on a strip
func (h *Handler) UpdateStripSquawk(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")

	var payload struct {
		Squawk string `json:"squawk"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := h.board.UpdateSquawk(callsign, payload.Squawk); err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.broadcastBoard()
	h.respondJSON(w, http.StatusOK, map[string]string{"callsign": callsign, "squawk": payload.Squawk})
}

// AnalyzeStrip runs behavior analysis for one flight
func (h *Handler) AnalyzeStrip(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")

	snapshot := h.board.Snapshot()
	strip, ok := snapshot.Find(callsign)
	if !ok {
		h.respondError(w, http.StatusNotFound, "strip not found")
		return
	}

	result := h.assistService.AnalyzeStrip(r.Context(), strip, snapshot)
	h.auditAnalysis(strip.Callsign, result)
	h.wsServer.Broadcast(&websocket.Message{
		Type: "analysis",
		Data: map[string]interface{}{
			"callsign": strip.Callsign,
			"result":   result,
		},
	})

	h.respondJSON(w, http.StatusOK, result)
}

// AnalyzeBoard runs behavior analysis across the whole board
func (h *Handler) AnalyzeBoard(w http.ResponseWriter, r *http.Request) {
	snapshot := h.board.Snapshot()
	results := h.assistService.AnalyzeBatch(r.Context(), snapshot)

	for callsign, result := range results {
		h.auditAnalysis(callsign, result)
	}
	h.wsServer.Broadcast(&websocket.Message{
		Type: "batch_analysis",
		Data: map[string]interface{}{
			"results": results,
		},
	})

	h.respondJSON(w, http.StatusOK, results)
}

// Query answers a natural-language question about the board
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Query) == "" {
		h.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	result := h.assistService.Query(r.Context(), payload.Query, h.board.Snapshot())
	h.respondJSON(w, http.StatusOK, result)
}

// RelayCommand translates a controller instruction into strip actions and
// applies them against the board
func (h *Handler) RelayCommand(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Instruction string `json:"instruction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Instruction) == "" {
		h.respondError(w, http.StatusBadRequest, "instruction is required")
		return
	}

	result := h.assistService.RelayCommand(r.Context(), payload.Instruction, h.board.Snapshot(), h.board)

	h.auditActions(result)
	if len(result.Applied) > 0 {
		h.broadcastBoard()
	}

	h.respondJSON(w, http.StatusOK, result)
}

// IncidentSummary produces a one-line handoff summary for a flight
func (h *Handler) IncidentSummary(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")

	snapshot := h.board.Snapshot()
	strip, ok := snapshot.Find(callsign)
	if !ok {
		h.respondError(w, http.StatusNotFound, "strip not found")
		return
	}

	analysis, cached := h.assistService.History().Lookup(strip.Callsign)
	if !cached {
		analysis = h.assistService.AnalyzeStrip(r.Context(), strip, snapshot)
		h.auditAnalysis(strip.Callsign, analysis)
	}

	summary := h.assistService.IncidentSummary(r.Context(), strip, analysis)
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"callsign": strip.Callsign,
		"summary":  summary,
		"analysis": analysis,
	})
}

// GetAnalysisHistory returns the cached analysis for a flight
func (h *Handler) GetAnalysisHistory(w http.ResponseWriter, r *http.Request) {
	callsign := chi.URLParam(r, "callsign")

	result, ok := h.assistService.History().Lookup(callsign)
	if !ok {
		h.respondError(w, http.StatusNotFound, "no cached analysis for "+strings.ToUpper(callsign))
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// GetRecentActions returns the most recent entries from the action audit log
func (h *Handler) GetRecentActions(w http.ResponseWriter, r *http.Request) {
	if h.actionStorage == nil {
		h.respondError(w, http.StatusServiceUnavailable, "audit storage disabled")
		return
	}

	records, err := h.actionStorage.GetRecentActions(h.queryLimit(r))
	if err != nil {
		h.logger.Error("Failed to query actions", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to query actions")
		return
	}
	h.respondJSON(w, http.StatusOK, records)
}

// GetActionsByCallsign returns audit entries for one flight
func (h *Handler) GetActionsByCallsign(w http.ResponseWriter, r *http.Request) {
	if h.actionStorage == nil {
		h.respondError(w, http.StatusServiceUnavailable, "audit storage disabled")
		return
	}

	callsign := strings.ToUpper(chi.URLParam(r, "callsign"))
	records, err := h.actionStorage.GetActionsByCallsign(callsign, h.queryLimit(r))
	if err != nil {
		h.logger.Error("Failed to query actions", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to query actions")
		return
	}
	h.respondJSON(w, http.StatusOK, records)
}

// GetRecentAnalyses returns the most recent entries from the analysis audit log
func (h *Handler) GetRecentAnalyses(w http.ResponseWriter, r *http.Request) {
	if h.analysisStorage == nil {
		h.respondError(w, http.StatusServiceUnavailable, "audit storage disabled")
		return
	}

	records, err := h.analysisStorage.GetRecentAnalyses(h.queryLimit(r))
	if err != nil {
		h.logger.Error("Failed to query analyses", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to query analyses")
		return
	}
	h.respondJSON(w, http.StatusOK, records)
}

// GetAnalysesByCallsign returns analysis audit entries for one flight
func (h *Handler) GetAnalysesByCallsign(w http.ResponseWriter, r *http.Request) {
	if h.analysisStorage == nil {
		h.respondError(w, http.StatusServiceUnavailable, "audit storage disabled")
		return
	}

	callsign := strings.ToUpper(chi.URLParam(r, "callsign"))
	records, err := h.analysisStorage.GetAnalysesByCallsign(callsign, h.queryLimit(r))
	if err != nil {
		h.logger.Error("Failed to query analyses", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to query analyses")
		return
	}
	h.respondJSON(w, http.StatusOK, records)
}

// GetHealth reports service health, including whether the inference
// endpoint is reachable
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	inferenceStatus := "down"
	if h.inferenceClient != nil && h.inferenceClient.Healthy(r.Context()) {
		inferenceStatus = "up"
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"inference": inferenceStatus,
		"strips":    len(h.board.Snapshot().Strips),
		"timestamp": time.Now().UTC(),
	})
}

// GetConfig returns the non-sensitive parts of the running configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"inference": map[string]interface{}{
			"base_url": h.config.Inference.BaseURL,
			"model":    h.config.Inference.Model,
		},
		"assist": h.config.Assist,
		"feed": map[string]interface{}{
			"enabled":          h.config.Feed.Enabled,
			"refresh_interval": h.config.Feed.RefreshIntervalSeconds,
		},
	})
}

// HandleWebSocket upgrades the connection and attaches it to the hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsServer.HandleConnection(w, r)
}

// auditAnalysis records an analysis result in the audit log, when enabled
func (h *Handler) auditAnalysis(callsign string, result assist.AnalysisResult) {
	if h.analysisStorage == nil {
		return
	}
	_, err := h.analysisStorage.StoreAnalysis(&sqlite.AnalysisRecord{
		Callsign:   strings.ToUpper(callsign),
		Status:     string(result.Status),
		Summary:    result.Summary,
		Confidence: result.Confidence,
		ProducedBy: string(result.ProducedBy),
		Timestamp:  result.Timestamp,
	})
	if err != nil {
		h.logger.Error("Failed to audit analysis", logger.Error(err))
	}
}

// auditActions records applied and skipped actions in the audit log, when
// enabled
func (h *Handler) auditActions(result assist.CommandResult) {
	if h.actionStorage == nil {
		return
	}

	now := time.Now().UTC()
	for _, a := range result.Applied {
		_, err := h.actionStorage.StoreAction(&sqlite.ActionRecord{
			Kind:      string(a.Kind),
			Callsign:  strings.ToUpper(a.Subject),
			Arguments: strings.Join(a.Arguments, ", "),
			Outcome:   "applied",
			Detail:    a.Description,
			Timestamp: now,
		})
		if err != nil {
			h.logger.Error("Failed to audit action", logger.Error(err))
		}
	}
	for _, sk := range result.Skipped {
		_, err := h.actionStorage.StoreAction(&sqlite.ActionRecord{
			Kind:      string(sk.Kind),
			Callsign:  strings.ToUpper(sk.Subject),
			Arguments: strings.Join(sk.Arguments, ", "),
			Outcome:   "skipped",
			Detail:    sk.Reason,
			Timestamp: now,
		})
		if err != nil {
			h.logger.Error("Failed to audit action", logger.Error(err))
		}
	}
}

// broadcastBoard pushes the current board to connected clients
func (h *Handler) broadcastBoard() {
	snapshot := h.board.Snapshot()
	h.wsServer.Broadcast(&websocket.Message{
		Type: "board",
		Data: map[string]interface{}{
			"strips":    snapshot.Strips,
			"timestamp": snapshot.TakenAt,
		},
	})
}

func (h *Handler) queryLimit(r *http.Request) int {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	return limit
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
