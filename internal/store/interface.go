package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/larkvi/esgrade/internal/models"
)

var (
	// ErrDuplicateEvaluation surfaces the unique index on
	// (rater_id, organization_id, dimension_id). The loser of a racing
	// create gets this instead of a second row.
	ErrDuplicateEvaluation = errors.New("evaluation already exists for rater, organization and dimension")
	// ErrAssignmentConflict means the rater is already bound to a
	// different organization; the enclosing transaction is rolled back.
	ErrAssignmentConflict = errors.New("rater is assigned to a different organization")
	// ErrNotDraft means the guarded UPDATE/DELETE matched no draft row:
	// the evaluation is gone or already submitted. Keeps submitted rows
	// immutable even when two requests race past the engine's read.
	ErrNotDraft = errors.New("evaluation is not an editable draft")
	// ErrUnknownQuestion surfaces the question_id foreign key on
	// evaluation_responses.
	ErrUnknownQuestion = errors.New("response references an unknown question")
)

type EvaluationStore interface {
	Close() error
	ApplyMigrations(dir string) error

	ListOrganizations() ([]models.Organization, error)
	GetOrganization(id int64) (*models.Organization, error)
	CreateOrganization(org *models.Organization) error
	ListDimensions() ([]models.Dimension, error)
	GetDimension(id int64) (*models.Dimension, error)
	GetDimensionByCode(code string) (*models.Dimension, error)
	ListQuestionsByDimension(dimensionID int64) ([]models.Question, error)

	GetAssignedOrganization(raterID string) (*int64, error)
	ClearAssignment(raterID string) error
	CountEvaluationsByRater(raterID string) (int, error)

	GetEvaluationByKey(raterID string, organizationID, dimensionID int64) (*models.Evaluation, error)
	GetEvaluation(id int64, raterID string) (*models.Evaluation, error)
	ListEvaluations(raterID string) ([]models.EvaluationSummary, error)
	GetEvaluationDetail(id int64, raterID string) (*models.EvaluationDetail, error)
	CountResponses(evaluationID int64) (int, error)

	CreateEvaluationWithResponses(eval *models.Evaluation, responses []models.EvaluationResponse) error
	ReplaceEvaluationResponses(evaluationID int64, comments string, updatedAt int64, responses []models.EvaluationResponse) error
	MarkEvaluationSubmitted(id int64, submittedAt int64) error
	DeleteEvaluation(id int64) error

	FetchResponseStats(filter StatFilter) ([]ResponseStatRow, error)
}

// BaseStore provides common functionality for different DB implementations.
// Dialects plug in a placeholder Converter, an id-returning insert and a
// unique-violation predicate.
type BaseStore struct {
	DB                    *sqlx.DB
	Converter             func(string) string
	InsertID              func(ext sqlx.Ext, query string, args []interface{}) (int64, error)
	IsUniqueViolation     func(error) bool
	IsForeignKeyViolation func(error) bool
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(fmt.Sprintf("%s/%s", dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

func (s *BaseStore) ListOrganizations() ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.DB.Select(&orgs, `
		SELECT id, name, city, region
		FROM organizations
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

func (s *BaseStore) GetOrganization(id int64) (*models.Organization, error) {
	var org models.Organization
	query := s.Converter(`
		SELECT id, name, city, region
		FROM organizations
		WHERE id = ?
	`)

	err := s.DB.Get(&org, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

func (s *BaseStore) CreateOrganization(org *models.Organization) error {
	query := s.Converter(`
		INSERT INTO organizations (name, city, region)
		VALUES (?, ?, ?)
	`)

	id, err := s.InsertID(s.DB, query, []interface{}{org.Name, org.City, org.Region})
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	org.ID = id
	return nil
}

func (s *BaseStore) ListDimensions() ([]models.Dimension, error) {
	var dims []models.Dimension
	err := s.DB.Select(&dims, `
		SELECT id, name, code
		FROM dimensions
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dimensions: %w", err)
	}
	return dims, nil
}

func (s *BaseStore) GetDimension(id int64) (*models.Dimension, error) {
	var dim models.Dimension
	query := s.Converter(`
		SELECT id, name, code
		FROM dimensions
		WHERE id = ?
	`)

	err := s.DB.Get(&dim, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dimension: %w", err)
	}
	return &dim, nil
}

func (s *BaseStore) GetDimensionByCode(code string) (*models.Dimension, error) {
	var dim models.Dimension
	query := s.Converter(`
		SELECT id, name, code
		FROM dimensions
		WHERE code = ?
	`)

	err := s.DB.Get(&dim, query, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dimension: %w", err)
	}
	return &dim, nil
}

func (s *BaseStore) ListQuestionsByDimension(dimensionID int64) ([]models.Question, error) {
	var questions []models.Question
	query := s.Converter(`
		SELECT id, dimension_id, text, order_index, scale_labels
		FROM questions
		WHERE dimension_id = ?
		ORDER BY order_index
	`)

	err := s.DB.Select(&questions, query, dimensionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

func (s *BaseStore) GetAssignedOrganization(raterID string) (*int64, error) {
	var assignment models.RaterAssignment
	query := s.Converter(`
		SELECT rater_id, organization_id
		FROM rater_assignments
		WHERE rater_id = ?
	`)

	err := s.DB.Get(&assignment, query, raterID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return assignment.OrganizationID, nil
}

func (s *BaseStore) ClearAssignment(raterID string) error {
	query := s.Converter(`
		UPDATE rater_assignments
		SET organization_id = NULL
		WHERE rater_id = ?
	`)

	if _, err := s.DB.Exec(query, raterID); err != nil {
		return fmt.Errorf("failed to clear assignment: %w", err)
	}
	return nil
}

func (s *BaseStore) CountEvaluationsByRater(raterID string) (int, error) {
	var count int
	query := s.Converter(`
		SELECT COUNT(*)
		FROM evaluations
		WHERE rater_id = ?
	`)

	if err := s.DB.Get(&count, query, raterID); err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return count, nil
}

func (s *BaseStore) GetEvaluationByKey(raterID string, organizationID, dimensionID int64) (*models.Evaluation, error) {
	var eval models.Evaluation
	query := s.Converter(`
		SELECT id, rater_id, organization_id, dimension_id, status, comments, submitted_at, created_at, updated_at
		FROM evaluations
		WHERE rater_id = ?
		AND organization_id = ?
		AND dimension_id = ?
	`)

	err := s.DB.Get(&eval, query, raterID, organizationID, dimensionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation by key: %w", err)
	}
	return &eval, nil
}

func (s *BaseStore) GetEvaluation(id int64, raterID string) (*models.Evaluation, error) {
	var eval models.Evaluation
	query := s.Converter(`
		SELECT id, rater_id, organization_id, dimension_id, status, comments, submitted_at, created_at, updated_at
		FROM evaluations
		WHERE id = ?
		AND rater_id = ?
	`)

	err := s.DB.Get(&eval, query, id, raterID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return &eval, nil
}

func (s *BaseStore) ListEvaluations(raterID string) ([]models.EvaluationSummary, error) {
	var evals []models.EvaluationSummary
	query := s.Converter(`
		SELECT
			e.id,
			e.rater_id,
			e.organization_id,
			e.dimension_id,
			e.status,
			e.comments,
			e.submitted_at,
			e.created_at,
			e.updated_at,
			o.name AS organization_name,
			o.city,
			o.region,
			d.name AS dimension_name,
			d.code AS dimension_code
		FROM evaluations e
		JOIN organizations o ON o.id = e.organization_id
		JOIN dimensions d ON d.id = e.dimension_id
		WHERE e.rater_id = ?
		ORDER BY e.created_at DESC, e.id DESC
	`)

	err := s.DB.Select(&evals, query, raterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return evals, nil
}

func (s *BaseStore) GetEvaluationDetail(id int64, raterID string) (*models.EvaluationDetail, error) {
	var summary models.EvaluationSummary
	query := s.Converter(`
		SELECT
			e.id,
			e.rater_id,
			e.organization_id,
			e.dimension_id,
			e.status,
			e.comments,
			e.submitted_at,
			e.created_at,
			e.updated_at,
			o.name AS organization_name,
			o.city,
			o.region,
			d.name AS dimension_name,
			d.code AS dimension_code
		FROM evaluations e
		JOIN organizations o ON o.id = e.organization_id
		JOIN dimensions d ON d.id = e.dimension_id
		WHERE e.id = ?
		AND e.rater_id = ?
	`)

	err := s.DB.Get(&summary, query, id, raterID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation detail: %w", err)
	}

	var responses []models.ResponseDetail
	query = s.Converter(`
		SELECT
			r.question_id,
			r.score,
			q.text AS question_text,
			q.order_index,
			q.scale_labels
		FROM evaluation_responses r
		JOIN questions q ON q.id = r.question_id
		WHERE r.evaluation_id = ?
		ORDER BY q.order_index
	`)

	if err := s.DB.Select(&responses, query, id); err != nil {
		return nil, fmt.Errorf("failed to get evaluation responses: %w", err)
	}

	return &models.EvaluationDetail{
		EvaluationSummary: summary,
		Responses:         responses,
	}, nil
}

func (s *BaseStore) CountResponses(evaluationID int64) (int, error) {
	var count int
	query := s.Converter(`
		SELECT COUNT(*)
		FROM evaluation_responses
		WHERE evaluation_id = ?
	`)

	if err := s.DB.Get(&count, query, evaluationID); err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return count, nil
}

// CreateEvaluationWithResponses binds the rater's assignment, inserts the
// draft and bulk-writes its responses in one transaction. Either all of it
// commits or none of it does.
func (s *BaseStore) CreateEvaluationWithResponses(eval *models.Evaluation, responses []models.EvaluationResponse) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.bindAssignmentTx(tx, eval.RaterID, eval.OrganizationID); err != nil {
		return err
	}

	query := s.Converter(`
		INSERT INTO evaluations (rater_id, organization_id, dimension_id, status, comments, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	id, err := s.InsertID(tx, query, []interface{}{
		eval.RaterID,
		eval.OrganizationID,
		eval.DimensionID,
		eval.Status,
		eval.Comments,
		eval.CreatedAt,
		eval.UpdatedAt,
	})
	if err != nil {
		if s.IsUniqueViolation != nil && s.IsUniqueViolation(err) {
			return ErrDuplicateEvaluation
		}
		return fmt.Errorf("failed to insert evaluation: %w", err)
	}
	eval.ID = id

	if err := s.insertResponsesTx(tx, id, responses); err != nil {
		return err
	}

	return tx.Commit()
}

// ReplaceEvaluationResponses updates a draft's comments and swaps its full
// response set atomically. The status guard keeps the write off submitted
// rows even when it races a submit.
func (s *BaseStore) ReplaceEvaluationResponses(evaluationID int64, comments string, updatedAt int64, responses []models.EvaluationResponse) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := s.Converter(`
		UPDATE evaluations
		SET comments = ?, updated_at = ?
		WHERE id = ?
		AND status = ?
	`)
	res, err := tx.Exec(query, comments, updatedAt, evaluationID, models.StatusDraft)
	if err != nil {
		return fmt.Errorf("failed to update evaluation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return ErrNotDraft
	}

	query = s.Converter(`DELETE FROM evaluation_responses WHERE evaluation_id = ?`)
	if _, err := tx.Exec(query, evaluationID); err != nil {
		return fmt.Errorf("failed to clear responses: %w", err)
	}

	if err := s.insertResponsesTx(tx, evaluationID, responses); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *BaseStore) MarkEvaluationSubmitted(id int64, submittedAt int64) error {
	query := s.Converter(`
		UPDATE evaluations
		SET status = ?, submitted_at = ?, updated_at = ?
		WHERE id = ?
		AND status = ?
	`)

	res, err := s.DB.Exec(query, models.StatusSubmitted, submittedAt, submittedAt, id, models.StatusDraft)
	if err != nil {
		return fmt.Errorf("failed to mark evaluation submitted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return ErrNotDraft
	}
	return nil
}

func (s *BaseStore) DeleteEvaluation(id int64) error {
	// responses go with it via ON DELETE CASCADE; submitted rows stay
	query := s.Converter(`DELETE FROM evaluations WHERE id = ? AND status = ?`)

	res, err := s.DB.Exec(query, id, models.StatusDraft)
	if err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return ErrNotDraft
	}
	return nil
}

func (s *BaseStore) FetchResponseStats(filter StatFilter) ([]ResponseStatRow, error) {
	query := `
		SELECT
			r.evaluation_id,
			r.score,
			e.dimension_id,
			d.name AS dimension_name,
			d.code AS dimension_code,
			e.organization_id,
			o.name AS organization_name,
			o.city,
			o.region
		FROM evaluation_responses r
		JOIN evaluations e ON e.id = r.evaluation_id
		JOIN dimensions d ON d.id = e.dimension_id
		JOIN organizations o ON o.id = e.organization_id
		WHERE 1=1
	`

	var args []interface{}
	if filter.DimensionID != nil {
		query += " AND e.dimension_id = ?"
		args = append(args, *filter.DimensionID)
	}
	if filter.OrganizationID != nil {
		query += " AND e.organization_id = ?"
		args = append(args, *filter.OrganizationID)
	}
	if filter.SubmittedOnly {
		query += " AND e.status = ?"
		args = append(args, models.StatusSubmitted)
	}
	query += " ORDER BY r.evaluation_id, r.question_id"

	var rows []ResponseStatRow
	if err := s.DB.Select(&rows, s.Converter(query), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch response stats: %w", err)
	}
	return rows, nil
}

// bindAssignmentTx creates the rater's assignment row or fills a cleared
// one, then verifies the bound organization inside the same transaction.
// A rater already bound elsewhere gets ErrAssignmentConflict.
func (s *BaseStore) bindAssignmentTx(tx *sqlx.Tx, raterID string, organizationID int64) error {
	query := s.Converter(`
		INSERT INTO rater_assignments (rater_id, organization_id)
		VALUES (?, ?)
		ON CONFLICT (rater_id) DO UPDATE
		SET organization_id = COALESCE(rater_assignments.organization_id, excluded.organization_id)
	`)
	if _, err := tx.Exec(query, raterID, organizationID); err != nil {
		return fmt.Errorf("failed to bind assignment: %w", err)
	}

	var bound int64
	query = s.Converter(`
		SELECT organization_id
		FROM rater_assignments
		WHERE rater_id = ?
	`)
	if err := tx.Get(&bound, query, raterID); err != nil {
		return fmt.Errorf("failed to verify assignment: %w", err)
	}
	if bound != organizationID {
		return ErrAssignmentConflict
	}
	return nil
}

func (s *BaseStore) insertResponsesTx(tx *sqlx.Tx, evaluationID int64, responses []models.EvaluationResponse) error {
	query := s.Converter(`
		INSERT INTO evaluation_responses (evaluation_id, question_id, score)
		VALUES (?, ?, ?)
	`)
	for _, r := range responses {
		if _, err := tx.Exec(query, evaluationID, r.QuestionID, r.Score); err != nil {
			if s.IsForeignKeyViolation != nil && s.IsForeignKeyViolation(err) {
				return fmt.Errorf("question %d: %w", r.QuestionID, ErrUnknownQuestion)
			}
			return fmt.Errorf("failed to insert response for question %d: %w", r.QuestionID, err)
		}
	}
	return nil
}
