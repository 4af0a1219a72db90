package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/geoquiz/internal/domain"
	"github.com/geoquiz/internal/service"
	"github.com/geoquiz/internal/websocket"
)

// Handler provides HTTP handlers for the geoquiz API
type Handler struct {
	games    *service.GameService
	rankings *service.RankingService
	duels    *service.DuelService
	hub      *websocket.Hub
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	games *service.GameService,
	rankings *service.RankingService,
	duels *service.DuelService,
	hub *websocket.Hub,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		games:    games,
		rankings: rankings,
		duels:    duels,
		hub:      hub,
		logger:   logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Game results
		r.Post("/results", h.SubmitResult)
		r.Post("/results/batch", h.SubmitResultBatch)

		// Rankings
		r.Route("/rankings/{gameType}", func(r chi.Router) {
			r.Get("/", h.GetRankings)
			r.Get("/games", h.GetTopGames)
			r.Get("/predict", h.PredictRank)
			r.Get("/player/{userID}", h.GetUserRank)
		})

		// Duels
		r.Route("/duels", func(r chi.Router) {
			r.Post("/", h.CreateDuel)
			r.Get("/challenge/{token}", h.InspectDuel)
			r.Post("/challenge/{token}/complete", h.CompleteDuel)
			r.Get("/player/{userID}", h.ListUserDuels)
			r.Get("/{duelID}", h.GetDuel)
		})

		// Guests and users
		r.Post("/guests/{guestID}/migrate", h.MigrateGuest)
		r.Get("/users/{userID}/stats", h.GetUserStats)
		r.Get("/users/{userID}/level", h.GetUserLevel)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	}
	if channel := r.URL.Query().Get("channel"); channel != "" {
		stats["channel"] = channel
		stats["subscribers"] = h.hub.GetSubscriberCount(channel)
	}
	h.writeSuccess(w, stats)
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// SubmitResult handles a completed game submission
func (h *Handler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	var sub domain.GameSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	outcome, err := h.games.SubmitGame(r.Context(), sub)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSubmission) || errors.Is(err, domain.ErrInvalidRequest):
			h.writeError(w, http.StatusBadRequest, err)
		case isUnknownGameType(err):
			h.writeError(w, http.StatusBadRequest, err)
		default:
			h.logger.Error("failed to submit result", "error", err)
			h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    outcome,
	})
}

// SubmitResultBatch handles batch game submission
func (h *Handler) SubmitResultBatch(w http.ResponseWriter, r *http.Request) {
	var subs []domain.GameSubmission
	if err := json.NewDecoder(r.Body).Decode(&subs); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if len(subs) == 0 {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.games.SubmitGameBatch(r.Context(), subs); err != nil {
		h.logger.Error("failed to submit result batch", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, map[string]interface{}{
		"status":   "accepted",
		"received": len(subs),
	})
}

// rankingQuery builds a RankingQuery from URL parameters
func rankingQuery(r *http.Request) domain.RankingQuery {
	q := domain.RankingQuery{
		GameType:  chi.URLParam(r, "gameType"),
		Period:    domain.Period(r.URL.Query().Get("period")),
		PeriodKey: r.URL.Query().Get("periodKey"),
		SortMode:  domain.SortMode(r.URL.Query().Get("sortBy")),
	}
	if q.Period == "" {
		q.Period = domain.PeriodAllTime
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			q.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			q.Offset = o
		}
	}
	return q
}

// GetRankings returns one leaderboard page
func (h *Handler) GetRankings(w http.ResponseWriter, r *http.Request) {
	q := rankingQuery(r)
	if q.GameType == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	entries, err := h.rankings.GetRankings(r.Context(), q)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPeriod) || errors.Is(err, domain.ErrInvalidRequest) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.logger.Error("failed to get rankings", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, entries)
}

// GetUserRank returns a player's rank in a bucket; data is null when the
// player has no qualifying entry
func (h *Handler) GetUserRank(w http.ResponseWriter, r *http.Request) {
	q := rankingQuery(r)
	userID := chi.URLParam(r, "userID")
	if q.GameType == "" || userID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	userRank, err := h.rankings.GetUserRank(r.Context(), userID, q)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPeriod) || errors.Is(err, domain.ErrInvalidRequest) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.logger.Error("failed to get user rank", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, userRank)
}

// GetTopGames returns the per-game leaderboard of a period
func (h *Handler) GetTopGames(w http.ResponseWriter, r *http.Request) {
	gameType := chi.URLParam(r, "gameType")
	if gameType == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	period := domain.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = domain.PeriodAllTime
	}

	limit, offset := 0, 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	records, err := h.rankings.GetTopGames(r.Context(), gameType, period, limit, offset)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPeriod) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.logger.Error("failed to get top games", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, records)
}

// PredictRank returns the rank a hypothetical score would achieve
func (h *Handler) PredictRank(w http.ResponseWriter, r *http.Request) {
	gameType := chi.URLParam(r, "gameType")
	scoreStr := r.URL.Query().Get("score")
	if gameType == "" || scoreStr == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	score, err := strconv.ParseInt(scoreStr, 10, 64)
	if err != nil || score < 0 {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	prediction, err := h.rankings.PredictRank(r.Context(), gameType, score)
	if err != nil {
		h.logger.Error("failed to predict rank", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, prediction)
}

// CreateDuel encodes a challenger's result into a shareable invitation
func (h *Handler) CreateDuel(w http.ResponseWriter, r *http.Request) {
	var req service.CreateDuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	invite, err := h.duels.CreateChallenge(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) || isUnknownGameType(err) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.logger.Error("failed to create duel", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    invite,
	})
}

// InspectDuel decodes an invitation token
func (h *Handler) InspectDuel(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	invite, err := h.duels.InspectChallenge(token)
	if err != nil {
		// A broken or tampered link is a client problem, not a server one
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidChallenge)
		return
	}

	h.writeSuccess(w, invite)
}

// completeDuelRequest carries the accepter's finished leg
type completeDuelRequest struct {
	UserID      string `json:"user_id"`
	Score       int64  `json:"score"`
	TimeSeconds int64  `json:"time_seconds"`
}

// CompleteDuel resolves a duel from the accepter's result
func (h *Handler) CompleteDuel(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req completeDuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result, err := h.duels.CompleteChallenge(r.Context(), token, req.UserID, req.Score, req.TimeSeconds)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidChallenge) || errors.Is(err, domain.ErrInvalidRequest) {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		h.logger.Error("failed to complete duel", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, result)
}

// GetDuel returns a resolved duel by id
func (h *Handler) GetDuel(w http.ResponseWriter, r *http.Request) {
	duelID := chi.URLParam(r, "duelID")
	if duelID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result, err := h.duels.GetDuel(r.Context(), duelID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			h.writeError(w, http.StatusNotFound, err)
			return
		}
		h.logger.Error("failed to get duel", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, result)
}

// ListUserDuels returns a player's resolved duels
func (h *Handler) ListUserDuels(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	results, err := h.duels.ListUserDuels(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to list duels", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, results)
}

// migrateGuestRequest names the account claiming the guest's results
type migrateGuestRequest struct {
	UserID string `json:"user_id"`
}

// MigrateGuest re-attributes a guest's results to a claimed account
func (h *Handler) MigrateGuest(w http.ResponseWriter, r *http.Request) {
	guestID := chi.URLParam(r, "guestID")

	var req migrateGuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if guestID == "" || req.UserID == "" || guestID == req.UserID {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.rankings.MigrateGuestResults(r.Context(), guestID, req.UserID); err != nil {
		h.logger.Error("failed to migrate guest results", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "migrated"})
}

// GetUserStats returns a player's aggregate stats across game types
func (h *Handler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	summary, err := h.rankings.GetUserStats(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get user stats", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, summary)
}

// GetUserLevel returns a player's tier and progress toward the next one
func (h *Handler) GetUserLevel(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	progress, err := h.rankings.GetUserLevel(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get user level", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, progress)
}

// isUnknownGameType reports whether err wraps the unknown game type error
func isUnknownGameType(err error) bool {
	return errors.Is(err, domain.ErrUnknownGameType)
}
