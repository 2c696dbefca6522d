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

package homedir

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cedadev/homedir-manager/internal/notification"
	"github.com/cedadev/homedir-manager/model"
)

// candidateState tracks one candidate through the teardown state machine.
// The happy path is Discovered → Validated → Reclaimed → Reported; every
// other state is a terminal exit mapped to exactly one outcome.
type candidateState int

const (
	stateDiscovered candidateState = iota
	stateValidated
	stateReclaimed
	stateReported
	stateRejected
	stateSkippedByOperator
	stateDryRun
	stateFailedValidation
	stateFailedReclaim
	stateFailedReport
)

// ConfirmFunc is the careful-mode prompt. It returns whether to proceed with
// the candidate; a non-nil error aborts the remainder of the run.
type ConfirmFunc func(candidate model.Candidate) (bool, error)

// TeardownOptions carry the operator-facing switches from the CLI.
type TeardownOptions struct {
	// DryRun logs what would be done for each candidate without touching the
	// filesystem or the portal.
	DryRun bool
	// Confirm, when non-nil, is asked before each candidate is torn down.
	Confirm ConfirmFunc
}

// Teardown drives candidates through validate → reclaim → report. Candidates
// are processed strictly sequentially within a run; one candidate's failure
// never aborts the others. Concurrent runs are excluded by the redis run
// lock the CLI acquires before calling Run.
type Teardown struct {
	portal    PortalClient
	reclaimer *HomeDirectoryReclaimer
	opts      TeardownOptions
	runID     string
	log       *logrus.Entry
}

// NewTeardown assembles the orchestrator for one run.
func NewTeardown(portal PortalClient, reclaimer *HomeDirectoryReclaimer, opts TeardownOptions) *Teardown {
	runID := model.GenerateRunID()
	return &Teardown{
		portal:    portal,
		reclaimer: reclaimer,
		opts:      opts,
		runID:     runID,
		log:       logrus.WithField("run_id", runID),
	}
}

// RunID identifies this run in logs and as the run lock value.
func (t *Teardown) RunID() string {
	return t.runID
}

// Run fetches the candidate list once and processes every candidate in
// order, returning one TeardownOutcome per candidate. Only a failure to
// obtain the list itself (or an operator abort in careful mode) ends the run
// early; the outcomes accumulated up to that point are still returned.
func (t *Teardown) Run(ctx context.Context) ([]model.TeardownOutcome, error) {
	candidates, err := t.portal.ListCandidates(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetching teardown candidates")
	}
	t.log.WithField("candidates", len(candidates)).Info("fetched teardown candidates")

	outcomes := make([]model.TeardownOutcome, 0, len(candidates))
	for _, candidate := range candidates {
		outcome, err := t.processCandidate(ctx, candidate)
		outcomes = append(outcomes, outcome)
		if err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

// processCandidate walks one candidate through the state machine. The
// returned error is non-nil only for an operator abort; every step failure
// is absorbed into the outcome.
func (t *Teardown) processCandidate(ctx context.Context, candidate model.Candidate) (model.TeardownOutcome, error) {
	log := t.log.WithField("username", candidate.Username)

	state := stateDiscovered
	var cause error
	var abort error

	// Discovered → Validated | Rejected | FailedValidation. The detail fetch
	// and the home path cross-check belong to validation: nothing has been
	// mutated yet, so their failures must never look like reclaim failures.
	if err := ValidateUsername(candidate.Username); err != nil {
		state, cause = stateRejected, err
	} else if detailed, err := t.portal.GetCandidateDetail(ctx, candidate); err != nil {
		state, cause = stateFailedValidation, err
	} else if err := t.reclaimer.VerifyHomePath(detailed.Username, detailed.HomeDirectory); err != nil {
		state, cause = stateFailedValidation, err
	} else {
		candidate = detailed
		state = stateValidated
	}

	if state == stateValidated && t.opts.Confirm != nil {
		proceed, err := t.opts.Confirm(candidate)
		switch {
		case err != nil:
			state, cause = stateSkippedByOperator, err
			abort = model.ErrRunAborted
		case !proceed:
			state, cause = stateSkippedByOperator, errors.New("operator chose to skip")
		}
	}

	if state == stateValidated && t.opts.DryRun {
		log.Infof("[DRY RUN] would displace %s to quarantine, recreate it empty and mark %s %s",
			t.reclaimer.HomePath(candidate.Username), candidate.Username, model.StateDormant)
		state = stateDryRun
	}

	// Validated → Reclaimed | FailedReclaim. The portal is not told anything
	// on failure: the account stays AWAITING_CLEANUP and a later run retries.
	if state == stateValidated {
		if err := t.reclaimer.Reclaim(ctx, candidate.Username); err != nil {
			state, cause = stateFailedReclaim, err
		} else {
			state = stateReclaimed
		}
	}

	// Reclaimed → Reported | FailedReport. The filesystem work is done and
	// must not be redone, so a report failure is recorded for reconciliation
	// instead of being retried through the move step.
	if state == stateReclaimed {
		if err := t.portal.SetLifecycleState(ctx, candidate, model.StateDormant); err != nil {
			state, cause = stateFailedReport, err
		} else {
			state = stateReported
		}
	}

	return t.outcomeFor(log, candidate, state, cause), abort
}

// outcomeFor maps a terminal state to its outcome classification and logs it
// with the right severity: reconciliation-needed failures are errors,
// rejected candidates only warnings.
func (t *Teardown) outcomeFor(log *logrus.Entry, candidate model.Candidate, state candidateState, cause error) model.TeardownOutcome {
	outcome := model.TeardownOutcome{Username: candidate.Username}
	if cause != nil {
		outcome.Detail = cause.Error()
	}

	switch state {
	case stateReported:
		outcome.Result = model.OutcomeCompleted
		log.Info("teardown completed, account marked dormant")
	case stateRejected:
		outcome.Result = model.OutcomeSkippedNotTrainingAccount
		log.WithError(cause).Warn("candidate rejected by username validation")
	case stateSkippedByOperator:
		outcome.Result = model.OutcomeSkippedByOperator
		log.WithError(cause).Warn("candidate skipped by operator")
	case stateDryRun:
		outcome.Result = model.OutcomeDryRun
	case stateFailedValidation:
		outcome.Result = model.OutcomeFailedValidation
		log.WithError(cause).Error("candidate failed pre-reclaim checks")
	case stateFailedReclaim:
		outcome.Result = model.OutcomeFailedReclaim
		log.WithError(cause).Error("home directory reclaim failed, portal state left unchanged")
	case stateFailedReport:
		outcome.Result = model.OutcomeFailedReport
		log.WithError(cause).Error("portal report failed after reclaim, filesystem and portal state now diverge")
		notification.NotifyReconciliationNeeded(candidate.Username, fmt.Sprintf("run %s: %v", t.runID, cause))
	default:
		// Discovered, Validated and Reclaimed are never terminal.
		outcome.Result = model.OutcomeFailedValidation
		log.WithError(cause).Errorf("candidate ended in unexpected state %d", state)
	}
	return outcome
}
