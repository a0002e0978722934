package models

import (
	"github.com/go-playground/validator/v10"
)

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
)

// Evaluation is one rater's scoring pass over the questions of one
// dimension for their assigned organization. Unique per
// (rater_id, organization_id, dimension_id), enforced by the store.
type Evaluation struct {
	ID             int64  `db:"id" json:"id"`
	RaterID        string `db:"rater_id" json:"rater_id"`
	OrganizationID int64  `db:"organization_id" json:"organization_id"`
	DimensionID    int64  `db:"dimension_id" json:"dimension_id"`
	Status         string `db:"status" json:"status"`
	Comments       string `db:"comments" json:"comments,omitempty"`
	SubmittedAt    *int64 `db:"submitted_at" json:"submitted_at,omitempty"`
	CreatedAt      int64  `db:"created_at" json:"created_at"`
	UpdatedAt      int64  `db:"updated_at" json:"updated_at"`
}

func (e *Evaluation) Submitted() bool {
	return e.Status == StatusSubmitted
}

type EvaluationResponse struct {
	EvaluationID int64 `db:"evaluation_id" json:"evaluation_id"`
	QuestionID   int64 `db:"question_id" json:"question_id"`
	Score        int   `db:"score" json:"score"`
}

// RaterAssignment pins a rater to the single organization they may
// evaluate. organization_id is nil when the rater has no history.
type RaterAssignment struct {
	RaterID        string `db:"rater_id" json:"rater_id"`
	OrganizationID *int64 `db:"organization_id" json:"organization_id"`
}

// ResponseInput is one scored question in a create-or-update request.
type ResponseInput struct {
	QuestionID int64 `json:"question_id" validate:"required"`
	Score      int   `json:"score" validate:"required,min=1,max=5"`
}

// EvaluationInput is the create-or-update request body.
type EvaluationInput struct {
	OrganizationID int64           `json:"organization_id" validate:"required"`
	DimensionID    int64           `json:"dimension_id" validate:"required"`
	Responses      []ResponseInput `json:"responses" validate:"required,min=1,dive"`
	Comments       string          `json:"comments"`
}

func (in *EvaluationInput) Validate() error {
	validate := validator.New()
	return validate.Struct(in)
}

// EvaluationSummary is a list row: the evaluation joined with its
// organization and dimension, no responses.
type EvaluationSummary struct {
	Evaluation
	OrganizationName string `db:"organization_name" json:"organization_name"`
	City             string `db:"city" json:"city"`
	Region           string `db:"region" json:"region"`
	DimensionName    string `db:"dimension_name" json:"dimension_name"`
	DimensionCode    string `db:"dimension_code" json:"dimension_code"`
}

// ResponseDetail joins a response with its question text and scale labels
// so the caller can render the full form straight away.
type ResponseDetail struct {
	QuestionID   int64       `db:"question_id" json:"question_id"`
	Score        int         `db:"score" json:"score"`
	QuestionText string      `db:"question_text" json:"question_text"`
	OrderIndex   int         `db:"order_index" json:"order_index"`
	ScaleLabels  ScaleLabels `db:"scale_labels" json:"scale_labels"`
}

type EvaluationDetail struct {
	EvaluationSummary
	Responses []ResponseDetail `json:"responses"`
}
