package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/larkvi/esgrade/internal/app"
	"github.com/larkvi/esgrade/internal/metrics"
	"github.com/larkvi/esgrade/internal/models"
)

type EvaluationHandler struct {
	service *app.Service
}

func NewEvaluationHandler(service *app.Service) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
	}
}

func (h *EvaluationHandler) HandleCreateOrUpdate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		metrics.APIRequestDuration.WithLabelValues(
			r.URL.Path,
			r.Method,
			"200",
		).Observe(duration)
	}()

	raterID, err := h.service.ValidateAuthAndRater(r)
	if err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var input models.EvaluationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Evals.CreateOrUpdate(raterID, &input)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	eval := result.Evaluation
	action := "update"
	status := http.StatusOK
	if result.Created {
		action = "create"
		status = http.StatusCreated
	}

	metrics.EvaluationsTotal.WithLabelValues(
		strconv.FormatInt(eval.OrganizationID, 10),
		eval.DimensionCode,
		action,
	).Inc()
	for _, resp := range eval.Responses {
		metrics.ResponseScoreHistogram.WithLabelValues(eval.DimensionCode).Observe(float64(resp.Score))
	}

	writeJSON(w, status, map[string]interface{}{
		"evaluation": eval,
	})
}

func (h *EvaluationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	raterID, err := h.service.ValidateAuthAndRater(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	evals, err := h.service.Evals.ListMine(raterID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluations": evals,
	})
}

func (h *EvaluationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	raterID, err := h.service.ValidateAuthAndRater(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid evaluation id", http.StatusBadRequest)
		return
	}

	eval, err := h.service.Evals.Get(raterID, id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluation": eval,
	})
}

func (h *EvaluationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	raterID, err := h.service.ValidateAuthAndRater(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid evaluation id", http.StatusBadRequest)
		return
	}

	eval, err := h.service.Evals.Submit(raterID, id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dimensionCode := strconv.FormatInt(eval.DimensionID, 10)
	if dim, err := h.service.Store.GetDimension(eval.DimensionID); err == nil && dim != nil {
		dimensionCode = dim.Code
	}
	metrics.EvaluationsTotal.WithLabelValues(
		strconv.FormatInt(eval.OrganizationID, 10),
		dimensionCode,
		"submit",
	).Inc()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluation": eval,
	})
}

func (h *EvaluationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	raterID, err := h.service.ValidateAuthAndRater(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid evaluation id", http.StatusBadRequest)
		return
	}

	if err := h.service.Evals.Delete(raterID, id); err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
