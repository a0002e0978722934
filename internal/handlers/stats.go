package handlers

import (
	"net/http"
	"strconv"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/larkvi/esgrade/internal/app"
)

type StatsHandler struct {
	service *app.Service
}

func NewStatsHandler(service *app.Service) *StatsHandler {
	return &StatsHandler{
		service: service,
	}
}

func (h *StatsHandler) HandleGlobalAverages(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.ValidateAuthAndRater(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	submittedOnly := r.URL.Query().Get("submitted_only") == "true"

	averages, err := h.service.GlobalAverages(submittedOnly)
	if err != nil {
		logger.Error.Printf("Failed to compute global averages: %v", err)
		http.Error(w, "Failed to compute averages", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"averages": averages,
	})
}

func (h *StatsHandler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.ValidateAuthAndRater(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var dimensionID *int64
	if raw := r.URL.Query().Get("dimension"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid dimension id", http.StatusBadRequest)
			return
		}
		dimensionID = &id
	}

	ranking, err := h.service.Ranking(dimensionID)
	if err != nil {
		logger.Error.Printf("Failed to compute ranking: %v", err)
		http.Error(w, "Failed to compute ranking", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ranking": ranking,
	})
}

func (h *StatsHandler) HandleScorecard(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.ValidateAuthAndRater(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid organization id", http.StatusBadRequest)
		return
	}

	org, scores, err := h.service.Scorecard(id)
	if err != nil {
		logger.Error.Printf("Failed to compute scorecard: %v", err)
		http.Error(w, "Failed to compute scorecard", http.StatusInternalServerError)
		return
	}
	if org == nil {
		http.Error(w, "Organization not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organization": org,
		"scores":       scores,
	})
}
