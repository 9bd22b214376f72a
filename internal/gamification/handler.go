package gamification

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fluenta/backend/internal/leaderboard"
	"github.com/fluenta/backend/internal/models"
)

type Handler struct {
	service    *Service
	tracker    *Tracker
	aggregator *leaderboard.Aggregator
}

func NewHandler(service *Service, tracker *Tracker, aggregator *leaderboard.Aggregator) *Handler {
	return &Handler{service: service, tracker: tracker, aggregator: aggregator}
}

func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

// ── Activity ────────────────────────────────────────────

func (h *Handler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.RecordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Module == "" || req.ActivityType == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "module and activity_type are required"})
		return
	}

	result, err := h.service.RecordActivity(r.Context(), userID, req.Module, req.ActivityType, req.Metadata)
	if err != nil {
		if errors.Is(err, ErrInvalidActivity) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to record activity"})
		return
	}

	// Challenge bookkeeping runs after the recorder and must not undo
	// it: a tracker failure degrades to an empty summary.
	resp := models.ActivityResponse{ActivityResult: *result}
	summary, err := h.tracker.UpdateActivityChallengeProgress(r.Context(), userID, req.Module, req.ActivityType, ProgressAmount(req.Metadata))
	if err != nil {
		log.Printf("[gamification] challenge progress failed for user %d: %v", userID, err)
		resp.Challenges = models.ChallengeSummary{CompletedChallenges: []models.CompletedChallenge{}}
	} else {
		resp.Challenges = *summary
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Profile ─────────────────────────────────────────────

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get profile"})
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// ── Challenges ──────────────────────────────────────────

func (h *Handler) GetChallenges(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.tracker.CurrentChallenges(r.Context(), userID, time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get challenges"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Leaderboard ─────────────────────────────────────────

func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	query := r.URL.Query()
	period := stringQueryParam(query, "period", leaderboard.PeriodAllTime)
	category := stringQueryParam(query, "category", leaderboard.CategoryXP)
	module := query.Get("module")
	limit := intQueryParam(query, "limit", 20)

	resp, err := h.aggregator.Leaderboard(r.Context(), userID, period, category, module, limit)
	if err != nil {
		if errors.Is(err, leaderboard.ErrInvalidQuery) {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to get leaderboard"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Admin ───────────────────────────────────────────────

func (h *Handler) SyncLevels(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.SyncLevels(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Level sync failed"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ── Helpers ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func stringQueryParam(query url.Values, key, defaultVal string) string {
	if s := query.Get(key); s != "" {
		return s
	}
	return defaultVal
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return defaultVal
	}
	return v
}
