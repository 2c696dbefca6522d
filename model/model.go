package model

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// LifecycleState is the accounts-portal-tracked status of an account. The
// portal is the system of record; this tool only ever moves recognized
// training accounts from AWAITING_CLEANUP to DORMANT.
type LifecycleState string

const (
	StateAwaitingCleanup LifecycleState = "AWAITING_CLEANUP"
	StateDormant         LifecycleState = "DORMANT"
)

// Candidate is one account the portal has flagged for home directory
// teardown. Produced by the portal client and read-only to the pipeline.
type Candidate struct {
	Username       string         `json:"username"`
	LifecycleState LifecycleState `json:"lifecycle_state"`
	// DetailURL is the portal's canonical URL for this user, used for the
	// detail fetch and the lifecycle state PATCH.
	DetailURL string `json:"url"`
	// HomeDirectory is the home path the portal (LDAP) has on record for the
	// account. Empty until the detail view has been fetched.
	HomeDirectory string `json:"home_directory,omitempty"`
}

// OutcomeResult classifies what happened to a single candidate during a run.
type OutcomeResult string

const (
	OutcomeCompleted                 OutcomeResult = "COMPLETED"
	OutcomeSkippedNotTrainingAccount OutcomeResult = "SKIPPED_NOT_TRAINING_ACCOUNT"
	OutcomeSkippedByOperator         OutcomeResult = "SKIPPED_BY_OPERATOR"
	OutcomeDryRun                    OutcomeResult = "DRY_RUN"
	OutcomeFailedValidation          OutcomeResult = "FAILED_VALIDATION"
	OutcomeFailedReclaim             OutcomeResult = "FAILED_RECLAIM"
	OutcomeFailedReport              OutcomeResult = "FAILED_REPORT"
)

// TeardownOutcome is the per-candidate record returned to the caller at the
// end of a run. Outcomes are ordered the same way the portal listed the
// candidates and are not persisted anywhere by the pipeline itself.
type TeardownOutcome struct {
	Username string        `json:"username"`
	Result   OutcomeResult `json:"result"`
	Detail   string        `json:"detail,omitempty"`
}

// RequiresReconciliation reports whether this outcome left the filesystem
// and the portal disagreeing about the account: the home directory was
// replaced but the portal still thinks the account is awaiting cleanup.
// These outcomes must be surfaced with higher severity than a simple skip.
func (o TeardownOutcome) RequiresReconciliation() bool {
	return o.Result == OutcomeFailedReport
}

// GenerateRunID generates a unique identifier for one pipeline run. It is
// used as the run lock value and attached to every log line of the run.
func GenerateRunID() string {
	return fmt.Sprintf("run_%s", uuid.New().String())
}

// quarantineTimestampLayout keeps nanosecond precision so that no two
// teardown attempts can ever derive the same quarantine path, even for the
// same username within one process lifetime.
const quarantineTimestampLayout = "20060102T150405.000000000Z"

// QuarantinePath derives the destination a displaced home directory is
// renamed to. The path is a pure function of the username and the
// processing timestamp; it is never reused and never overwritten.
func QuarantinePath(quarantineRoot, username string, ts time.Time) string {
	return filepath.Join(quarantineRoot, fmt.Sprintf("%s-%s", username, ts.UTC().Format(quarantineTimestampLayout)))
}

// QuarantinePrefix is the filename prefix every quarantine entry for the
// given username carries. The reclaimer uses it to detect an account that a
// previous run displaced but failed to recreate.
func QuarantinePrefix(username string) string {
	return username + "-"
}
