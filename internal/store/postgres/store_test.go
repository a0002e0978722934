package postgres

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/larkvi/esgrade/internal/models"
	"github.com/larkvi/esgrade/internal/store"
)

// setupTestDB starts a throwaway Postgres container and applies migrations
func setupTestDB(t *testing.T) (*PostgresStore, func()) {
	ctx := context.Background()

	pg, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := NewPostgresStore(dsn)
	require.NoError(t, err, "Failed to create store")

	err = s.ApplyMigrations("../../../migrations")
	require.NoError(t, err, "Failed to apply migrations")

	cleanup := func() {
		s.Close()
		pg.Terminate(ctx)
	}

	return s, cleanup
}

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		log.Println("Skipping Postgres integration tests. Use -short=false to run them.")
		os.Exit(0)
	}
	log.Println("Starting Postgres store tests...")
	code := m.Run()
	log.Println("Finished Postgres store tests")
	os.Exit(code)
}

func TestEvaluationLifecycle(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	org := models.Organization{Name: "Aurora University", City: "Tromsø", Region: "North"}
	require.NoError(t, s.CreateOrganization(&org))
	require.NotZero(t, org.ID, "RETURNING id should populate the organization")

	dims, err := s.ListDimensions()
	require.NoError(t, err)
	require.Len(t, dims, 3)

	questions, err := s.ListQuestionsByDimension(dims[0].ID)
	require.NoError(t, err)
	require.Len(t, questions, 4)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC).Unix()

	eval := &models.Evaluation{
		RaterID:        "rater-1",
		OrganizationID: org.ID,
		DimensionID:    dims[0].ID,
		Status:         models.StatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	responses := []models.EvaluationResponse{
		{QuestionID: questions[0].ID, Score: 4},
		{QuestionID: questions[1].ID, Score: 5},
	}

	t.Run("create draft with responses", func(t *testing.T) {
		err := s.CreateEvaluationWithResponses(eval, responses)
		require.NoError(t, err)
		assert.NotZero(t, eval.ID)

		assigned, err := s.GetAssignedOrganization("rater-1")
		require.NoError(t, err)
		require.NotNil(t, assigned)
		assert.Equal(t, org.ID, *assigned)
	})

	t.Run("unique index maps to ErrDuplicateEvaluation", func(t *testing.T) {
		dup := &models.Evaluation{
			RaterID:        "rater-1",
			OrganizationID: org.ID,
			DimensionID:    dims[0].ID,
			Status:         models.StatusDraft,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err := s.CreateEvaluationWithResponses(dup, nil)
		assert.ErrorIs(t, err, store.ErrDuplicateEvaluation)
	})

	t.Run("assignment conflict rolls the transaction back", func(t *testing.T) {
		other := models.Organization{Name: "Baltic Institute"}
		require.NoError(t, s.CreateOrganization(&other))

		conflicting := &models.Evaluation{
			RaterID:        "rater-1",
			OrganizationID: other.ID,
			DimensionID:    dims[1].ID,
			Status:         models.StatusDraft,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err := s.CreateEvaluationWithResponses(conflicting, nil)
		assert.ErrorIs(t, err, store.ErrAssignmentConflict)

		count, err := s.CountEvaluationsByRater("rater-1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("submit and read back", func(t *testing.T) {
		require.NoError(t, s.MarkEvaluationSubmitted(eval.ID, now+60))

		got, err := s.GetEvaluation(eval.ID, "rater-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.StatusSubmitted, got.Status)
		require.NotNil(t, got.SubmittedAt)
		assert.Equal(t, now+60, *got.SubmittedAt)
	})

	t.Run("stats rows join catalog names", func(t *testing.T) {
		rows, err := s.FetchResponseStats(store.StatFilter{SubmittedOnly: true})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Aurora University", rows[0].OrganizationName)
		assert.Equal(t, "GOV", rows[0].DimensionCode)
	})

	t.Run("submitted evaluation rejects further writes", func(t *testing.T) {
		err := s.ReplaceEvaluationResponses(eval.ID, "rewritten after submit", now+90, nil)
		assert.ErrorIs(t, err, store.ErrNotDraft)

		err = s.DeleteEvaluation(eval.ID)
		assert.ErrorIs(t, err, store.ErrNotDraft)

		count, err := s.CountResponses(eval.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("unknown question id maps to ErrUnknownQuestion", func(t *testing.T) {
		bad := &models.Evaluation{
			RaterID:        "rater-2",
			OrganizationID: org.ID,
			DimensionID:    dims[2].ID,
			Status:         models.StatusDraft,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err := s.CreateEvaluationWithResponses(bad, []models.EvaluationResponse{
			{QuestionID: 99999, Score: 3},
		})
		assert.ErrorIs(t, err, store.ErrUnknownQuestion)
	})

	t.Run("delete cascades to responses", func(t *testing.T) {
		envQuestions, err := s.ListQuestionsByDimension(dims[2].ID)
		require.NoError(t, err)

		draft := &models.Evaluation{
			RaterID:        "rater-1",
			OrganizationID: org.ID,
			DimensionID:    dims[2].ID,
			Status:         models.StatusDraft,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		require.NoError(t, s.CreateEvaluationWithResponses(draft, []models.EvaluationResponse{
			{QuestionID: envQuestions[0].ID, Score: 3},
		}))

		require.NoError(t, s.DeleteEvaluation(draft.ID))

		count, err := s.CountResponses(draft.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
