package evals

import (
	"errors"
	"fmt"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/larkvi/esgrade/internal/models"
	"github.com/larkvi/esgrade/internal/store"
)

// Store abstracts the persistence operations the lifecycle engine needs,
// so it stays testable against an in-memory fake.
type Store interface {
	AssignmentStore

	GetOrganization(id int64) (*models.Organization, error)
	GetDimension(id int64) (*models.Dimension, error)

	GetEvaluationByKey(raterID string, organizationID, dimensionID int64) (*models.Evaluation, error)
	GetEvaluation(id int64, raterID string) (*models.Evaluation, error)
	ListEvaluations(raterID string) ([]models.EvaluationSummary, error)
	GetEvaluationDetail(id int64, raterID string) (*models.EvaluationDetail, error)
	CountResponses(evaluationID int64) (int, error)

	CreateEvaluationWithResponses(eval *models.Evaluation, responses []models.EvaluationResponse) error
	ReplaceEvaluationResponses(evaluationID int64, comments string, updatedAt int64, responses []models.EvaluationResponse) error
	MarkEvaluationSubmitted(id int64, submittedAt int64) error
	DeleteEvaluation(id int64) error
}

// Engine owns the evaluation state machine: absent -> draft -> submitted,
// with draft -> absent via delete. Drafts are editable in place; once
// submitted, an evaluation is read-only for good.
type Engine struct {
	store       Store
	assignments *Assignments
	now         func() time.Time
}

func NewEngine(s Store) *Engine {
	return &Engine{
		store:       s,
		assignments: NewAssignments(s),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) Assignments() *Assignments {
	return e.assignments
}

// CreateResult reports whether the call created a new draft or edited an
// existing one, so the transport can answer 201 vs 200.
type CreateResult struct {
	Evaluation *models.EvaluationDetail
	Created    bool
}

// CreateOrUpdate validates the input, binds the rater's assignment and
// writes the draft with all its responses in one transactional unit.
// Nothing is written if any single response is invalid.
func (e *Engine) CreateOrUpdate(raterID string, in *models.EvaluationInput) (*CreateResult, error) {
	if err := in.Validate(); err != nil {
		return nil, NewValidationError("invalid evaluation input: %v", err)
	}

	responses := dedupeResponses(in.Responses)

	org, err := e.store.GetOrganization(in.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organization: %w", err)
	}
	if org == nil {
		return nil, NewValidationError("unknown organization %d", in.OrganizationID)
	}

	dim, err := e.store.GetDimension(in.DimensionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dimension: %w", err)
	}
	if dim == nil {
		return nil, NewValidationError("unknown dimension %d", in.DimensionID)
	}

	if err := e.assignments.CheckBinding(raterID, in.OrganizationID); err != nil {
		return nil, err
	}

	existing, err := e.store.GetEvaluationByKey(raterID, in.OrganizationID, in.DimensionID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up evaluation: %w", err)
	}

	now := e.now().Unix()

	if existing != nil {
		if existing.Submitted() {
			return nil, ErrAlreadySubmitted
		}
		if err := e.store.ReplaceEvaluationResponses(existing.ID, in.Comments, now, responses); err != nil {
			switch {
			case errors.Is(err, store.ErrNotDraft):
				// submitted between our read and the guarded write
				return nil, ErrAlreadySubmitted
			case errors.Is(err, store.ErrUnknownQuestion):
				return nil, NewValidationError("%v", err)
			default:
				return nil, fmt.Errorf("failed to update draft: %w", err)
			}
		}
		detail, err := e.readBack(existing.ID, raterID)
		if err != nil {
			return nil, err
		}
		return &CreateResult{Evaluation: detail, Created: false}, nil
	}

	eval := &models.Evaluation{
		RaterID:        raterID,
		OrganizationID: in.OrganizationID,
		DimensionID:    in.DimensionID,
		Status:         models.StatusDraft,
		Comments:       in.Comments,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.store.CreateEvaluationWithResponses(eval, responses); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEvaluation):
			// lost the create race; the unique index kept the data sane
			return nil, ErrAlreadyExists
		case errors.Is(err, store.ErrAssignmentConflict):
			return nil, ErrOrganizationMismatch
		case errors.Is(err, store.ErrUnknownQuestion):
			return nil, NewValidationError("%v", err)
		default:
			return nil, fmt.Errorf("failed to create evaluation: %w", err)
		}
	}

	detail, err := e.readBack(eval.ID, raterID)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Evaluation: detail, Created: true}, nil
}

// Submit flips a draft to submitted. One-way: there is no unsubmit.
func (e *Engine) Submit(raterID string, id int64) (*models.Evaluation, error) {
	eval, err := e.store.GetEvaluation(id, raterID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up evaluation: %w", err)
	}
	if eval == nil {
		return nil, ErrNotFound
	}
	if eval.Submitted() {
		return nil, ErrAlreadySubmitted
	}

	count, err := e.store.CountResponses(id)
	if err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}
	if count == 0 {
		return nil, ErrEmptyEvaluation
	}

	now := e.now().Unix()
	if err := e.store.MarkEvaluationSubmitted(id, now); err != nil {
		if errors.Is(err, store.ErrNotDraft) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("failed to submit evaluation: %w", err)
	}

	eval.Status = models.StatusSubmitted
	eval.SubmittedAt = &now
	eval.UpdatedAt = now
	return eval, nil
}

// Delete removes a draft and its responses, then reconciles the rater's
// assignment. The reconciliation is best-effort: its failure is logged,
// not surfaced, since the delete itself already committed.
func (e *Engine) Delete(raterID string, id int64) error {
	eval, err := e.store.GetEvaluation(id, raterID)
	if err != nil {
		return fmt.Errorf("failed to look up evaluation: %w", err)
	}
	if eval == nil {
		return ErrNotFound
	}
	if eval.Submitted() {
		return ErrCannotDeleteSubmitted
	}

	if err := e.store.DeleteEvaluation(id); err != nil {
		if errors.Is(err, store.ErrNotDraft) {
			return ErrCannotDeleteSubmitted
		}
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}

	if err := e.assignments.ClearIfNoEvaluationsRemain(raterID); err != nil {
		logger.Error.Printf("Failed to reconcile assignment for rater %s: %v", raterID, err)
	}
	return nil
}

// Get returns one evaluation with its responses joined with question text
// and scale labels. Raters only ever see their own evaluations.
func (e *Engine) Get(raterID string, id int64) (*models.EvaluationDetail, error) {
	detail, err := e.store.GetEvaluationDetail(id, raterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluation: %w", err)
	}
	if detail == nil {
		return nil, ErrNotFound
	}
	return detail, nil
}

// ListMine returns the rater's evaluations newest first, without responses.
func (e *Engine) ListMine(raterID string) ([]models.EvaluationSummary, error) {
	evals, err := e.store.ListEvaluations(raterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return evals, nil
}

func (e *Engine) readBack(id int64, raterID string) (*models.EvaluationDetail, error) {
	detail, err := e.store.GetEvaluationDetail(id, raterID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back evaluation: %w", err)
	}
	if detail == nil {
		return nil, fmt.Errorf("evaluation %d vanished after write", id)
	}
	return detail, nil
}

// dedupeResponses folds the list into one response per question_id. The
// last score in input order wins; first-seen question order is kept.
func dedupeResponses(inputs []models.ResponseInput) []models.EvaluationResponse {
	index := make(map[int64]int, len(inputs))
	out := make([]models.EvaluationResponse, 0, len(inputs))
	for _, in := range inputs {
		if i, ok := index[in.QuestionID]; ok {
			out[i].Score = in.Score
			continue
		}
		index[in.QuestionID] = len(out)
		out = append(out, models.EvaluationResponse{
			QuestionID: in.QuestionID,
			Score:      in.Score,
		})
	}
	return out
}
