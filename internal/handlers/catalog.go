package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/larkvi/esgrade/internal/app"
	"github.com/larkvi/esgrade/internal/models"
)

// CatalogHandler serves the reference data: organizations, the three
// dimensions and their questions.
type CatalogHandler struct {
	service *app.Service
}

func NewCatalogHandler(service *app.Service) *CatalogHandler {
	return &CatalogHandler{
		service: service,
	}
}

func (h *CatalogHandler) HandleListOrganizations(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.ValidateAuthAndRater(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if r.URL.Query().Get("with_scores") == "true" {
		orgs, err := h.service.ListOrganizationsWithScores()
		if err != nil {
			logger.Error.Printf("Failed to list organizations with scores: %v", err)
			http.Error(w, "Failed to list organizations", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"organizations": orgs,
		})
		return
	}

	orgs, err := h.service.Store.ListOrganizations()
	if err != nil {
		logger.Error.Printf("Failed to list organizations: %v", err)
		http.Error(w, "Failed to list organizations", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organizations": orgs,
	})
}

func (h *CatalogHandler) HandleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.ValidateAuthAndRater(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var org models.Organization
	if err := json.NewDecoder(r.Body).Decode(&org); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := org.Validate(); err != nil {
		http.Error(w, "Organization name is required", http.StatusBadRequest)
		return
	}

	if err := h.service.Store.CreateOrganization(&org); err != nil {
		logger.Error.Printf("Failed to create organization: %v", err)
		http.Error(w, "Failed to create organization", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"organization": org,
	})
}

func (h *CatalogHandler) HandleListDimensions(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.ValidateAuthAndRater(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	dims, err := h.service.Store.ListDimensions()
	if err != nil {
		logger.Error.Printf("Failed to list dimensions: %v", err)
		http.Error(w, "Failed to list dimensions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dimensions": dims,
	})
}

func (h *CatalogHandler) HandleListQuestions(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.ValidateAuthAndRater(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid dimension id", http.StatusBadRequest)
		return
	}

	dim, err := h.service.Store.GetDimension(id)
	if err != nil {
		logger.Error.Printf("Failed to get dimension: %v", err)
		http.Error(w, "Failed to get dimension", http.StatusInternalServerError)
		return
	}
	if dim == nil {
		http.Error(w, "Dimension not found", http.StatusNotFound)
		return
	}

	questions, err := h.service.Store.ListQuestionsByDimension(id)
	if err != nil {
		logger.Error.Printf("Failed to list questions: %v", err)
		http.Error(w, "Failed to list questions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dimension": dim,
		"questions": questions,
	})
}
