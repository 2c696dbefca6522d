package homedir

import (
	"context"

	"github.com/cedadev/homedir-manager/model"
)

// MockPortalClient is a test double for the accounts portal. Unset functions
// fall back to benign defaults: an empty candidate list, a detail view that
// echoes the candidate back, and a successful transition.
type MockPortalClient struct {
	ListCandidatesFn     func(ctx context.Context) ([]model.Candidate, error)
	GetCandidateDetailFn func(ctx context.Context, candidate model.Candidate) (model.Candidate, error)
	SetLifecycleStateFn  func(ctx context.Context, candidate model.Candidate, state model.LifecycleState) error

	// Transitions records every SetLifecycleState call that succeeded.
	Transitions map[string]model.LifecycleState
}

func (m *MockPortalClient) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	if m.ListCandidatesFn != nil {
		return m.ListCandidatesFn(ctx)
	}
	return nil, nil
}

func (m *MockPortalClient) GetCandidateDetail(ctx context.Context, candidate model.Candidate) (model.Candidate, error) {
	if m.GetCandidateDetailFn != nil {
		return m.GetCandidateDetailFn(ctx, candidate)
	}
	return candidate, nil
}

func (m *MockPortalClient) SetLifecycleState(ctx context.Context, candidate model.Candidate, state model.LifecycleState) error {
	if m.SetLifecycleStateFn != nil {
		if err := m.SetLifecycleStateFn(ctx, candidate, state); err != nil {
			return err
		}
	}
	if m.Transitions == nil {
		m.Transitions = make(map[string]model.LifecycleState)
	}
	m.Transitions[candidate.Username] = state
	return nil
}
