package evals

import (
	"fmt"
)

// AssignmentStore is the slice of persistence the assignment manager needs.
type AssignmentStore interface {
	GetAssignedOrganization(raterID string) (*int64, error)
	ClearAssignment(raterID string) error
	CountEvaluationsByRater(raterID string) (int, error)
}

// Assignments manages the one-organization-per-rater binding. The binding
// is derived state: it is written only inside the create transaction and
// cleared here when the rater's evaluation history empties out, never
// mutated anywhere else.
type Assignments struct {
	store AssignmentStore
}

func NewAssignments(store AssignmentStore) *Assignments {
	return &Assignments{store: store}
}

// AssignedOrganization returns the rater's current organization, nil when
// the rater has no binding yet.
func (a *Assignments) AssignedOrganization(raterID string) (*int64, error) {
	return a.store.GetAssignedOrganization(raterID)
}

// CheckBinding fails with ErrOrganizationMismatch when the rater is already
// bound to a different organization. A nil binding passes: the actual bind
// happens transactionally together with the evaluation insert.
func (a *Assignments) CheckBinding(raterID string, organizationID int64) error {
	assigned, err := a.store.GetAssignedOrganization(raterID)
	if err != nil {
		return fmt.Errorf("failed to resolve assignment: %w", err)
	}
	if assigned != nil && *assigned != organizationID {
		return ErrOrganizationMismatch
	}
	return nil
}

// ClearIfNoEvaluationsRemain reconciles the binding after a deletion: a
// rater with zero evaluations left may pick a new organization.
func (a *Assignments) ClearIfNoEvaluationsRemain(raterID string) error {
	count, err := a.store.CountEvaluationsByRater(raterID)
	if err != nil {
		return fmt.Errorf("failed to count remaining evaluations: %w", err)
	}
	if count > 0 {
		return nil
	}
	if err := a.store.ClearAssignment(raterID); err != nil {
		return fmt.Errorf("failed to clear assignment: %w", err)
	}
	return nil
}
