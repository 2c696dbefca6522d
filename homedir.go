/*
Copyright 2025 Homedir Manager Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package homedir reclaims home directories of expired training accounts on
// a shared filesystem, coordinating each teardown with the accounts portal
// so that filesystem and lifecycle state never silently diverge. The
// irreversible step (replacing the home directory) always runs before the
// remote state change, and a post-replacement reporting failure is kept as
// its own reconcilable outcome rather than a generic error.
package homedir

import (
	"context"

	"github.com/cedadev/homedir-manager/model"
)

// PortalClient is the accounts portal capability the pipeline consumes. The
// portal is the system of record for account lifecycle state; see
// internal/portal for the HTTP implementation.
type PortalClient interface {
	// ListCandidates returns the accounts pending teardown, filtered
	// server-side to training accounts in lifecycle state AWAITING_CLEANUP.
	ListCandidates(ctx context.Context) ([]model.Candidate, error)
	// GetCandidateDetail fills in the portal's recorded home directory path
	// for a candidate.
	GetCandidateDetail(ctx context.Context, candidate model.Candidate) (model.Candidate, error)
	// SetLifecycleState reports a completed teardown; only DORMANT is ever
	// requested by this pipeline.
	SetLifecycleState(ctx context.Context, candidate model.Candidate, state model.LifecycleState) error
}
