package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/larkvi/esgrade/internal/evals"
	"github.com/larkvi/esgrade/internal/models"
	"github.com/larkvi/esgrade/internal/stats"
	"github.com/larkvi/esgrade/internal/store"
)

type Service struct {
	Config *Config
	Store  store.EvaluationStore
	Auth   *Auth
	Evals  *evals.Engine
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := NewStore(config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	auth, err := NewAuth(config)
	if err != nil {
		return nil, fmt.Errorf("failed to init auth: %w", err)
	}

	return &Service{
		Config: config,
		Store:  st,
		Auth:   auth,
		Evals:  evals.NewEngine(st),
	}, nil
}

// ValidateAuthAndRater extracts the verified rater identity from the
// request. With auth enabled the bearer token must match what the identity
// provider stored in Redis for that rater.
func (s *Service) ValidateAuthAndRater(r *http.Request) (string, error) {
	raterID := r.Header.Get(s.Config.API.RaterIDHeader)
	if raterID == "" {
		return "", fmt.Errorf("missing rater id header")
	}

	if !s.Config.Server.EnableAuth {
		return raterID, nil
	}

	authHeader := r.Header.Get(s.Auth.tokenHeader)
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("Invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	if err := s.Auth.ValidateToken(r.Context(), raterID, token); err != nil {
		return "", err
	}
	return raterID, nil
}

// GlobalAverages computes the per-dimension mean across every
// organization, optionally restricted to submitted evaluations.
func (s *Service) GlobalAverages(submittedOnly bool) ([]stats.DimensionAverage, error) {
	dims, err := s.Store.ListDimensions()
	if err != nil {
		return nil, err
	}
	rows, err := s.Store.FetchResponseStats(store.StatFilter{SubmittedOnly: submittedOnly})
	if err != nil {
		return nil, err
	}
	return stats.DimensionAverages(dims, rows), nil
}

// Ranking returns the top organizations by mean score, optionally within
// one dimension. Unknown dimension ids yield an empty ranking rather than
// an error, matching a filter that matches nothing.
func (s *Service) Ranking(dimensionID *int64) ([]stats.RankedOrganization, error) {
	var dimensionName string
	if dimensionID != nil {
		dim, err := s.Store.GetDimension(*dimensionID)
		if err != nil {
			return nil, err
		}
		if dim != nil {
			dimensionName = dim.Name
		}
	}

	rows, err := s.Store.FetchResponseStats(store.StatFilter{DimensionID: dimensionID})
	if err != nil {
		return nil, err
	}
	return stats.Ranking(rows, s.Config.Stats.RankingLimit, dimensionName), nil
}

// Scorecard builds the full dimension matrix for one organization. The
// organization result is nil when the id is unknown.
func (s *Service) Scorecard(organizationID int64) (*models.Organization, []stats.DimensionAverage, error) {
	org, err := s.Store.GetOrganization(organizationID)
	if err != nil {
		return nil, nil, err
	}
	if org == nil {
		return nil, nil, nil
	}

	dims, err := s.Store.ListDimensions()
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.Store.FetchResponseStats(store.StatFilter{OrganizationID: &organizationID})
	if err != nil {
		return nil, nil, err
	}
	return org, stats.Scorecard(dims, rows), nil
}

// OrganizationScores pairs an organization with its dimension matrix for
// the with-scores listing.
type OrganizationScores struct {
	models.Organization
	Scores []stats.DimensionAverage `json:"scores"`
}

// ListOrganizationsWithScores renders the complete organization x
// dimension matrix in one pass over the response rows.
func (s *Service) ListOrganizationsWithScores() ([]OrganizationScores, error) {
	orgs, err := s.Store.ListOrganizations()
	if err != nil {
		return nil, err
	}
	dims, err := s.Store.ListDimensions()
	if err != nil {
		return nil, err
	}
	rows, err := s.Store.FetchResponseStats(store.StatFilter{})
	if err != nil {
		return nil, err
	}

	byOrg := make(map[int64][]store.ResponseStatRow)
	for _, row := range rows {
		byOrg[row.OrganizationID] = append(byOrg[row.OrganizationID], row)
	}

	out := make([]OrganizationScores, 0, len(orgs))
	for _, org := range orgs {
		out = append(out, OrganizationScores{
			Organization: org,
			Scores:       stats.Scorecard(dims, byOrg[org.ID]),
		})
	}
	return out, nil
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Auth.Close(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
