package model

import (
	"errors"
	"fmt"
)

// ErrNotTrainingAccount is returned by username validation for any account
// whose name is not exactly "train" followed by digits. It is the sole
// safeguard keeping the reclaimer away from persistent accounts, so
// validation rejects on any ambiguity.
var ErrNotTrainingAccount = errors.New("username is not a training account")

// ErrRunAborted is returned by the orchestrator when the operator aborts a
// careful-mode run. Candidates processed before the abort keep their
// outcomes; the rest are left untouched for a later run.
var ErrRunAborted = errors.New("run aborted by operator")

// ReclaimErrorCode identifies which gate of the home directory reclaim
// sequence failed.
type ReclaimErrorCode string

const (
	// ErrCodeHomeMissing: the home directory does not exist and no displaced
	// copy of it is present in quarantine. Prior inconsistent state which
	// must be surfaced, never silently repaired.
	ErrCodeHomeMissing ReclaimErrorCode = "HOME_MISSING"
	// ErrCodeHomePathMismatch: the home path the portal has on record does
	// not match the path constructed from the username.
	ErrCodeHomePathMismatch ReclaimErrorCode = "HOME_PATH_MISMATCH"
	// ErrCodeQuarantineCollision: the derived quarantine destination already
	// exists. The original home directory is left untouched.
	ErrCodeQuarantineCollision ReclaimErrorCode = "QUARANTINE_COLLISION"
	// ErrCodeDisplaceFailed: the rename into quarantine failed for a reason
	// other than a collision.
	ErrCodeDisplaceFailed ReclaimErrorCode = "DISPLACE_FAILED"
	// ErrCodeRecreateFailed: the home directory was displaced but the empty
	// replacement could not be created. The account is left in the
	// displaced-but-not-recreated state a later run resumes from.
	ErrCodeRecreateFailed ReclaimErrorCode = "RECREATE_FAILED"
)

// ReclaimError is a failure of one reclaim step for one account.
type ReclaimError struct {
	Code     ReclaimErrorCode
	Username string
	Err      error
}

func (e ReclaimError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: reclaim failed for %s", e.Code, e.Username)
	}
	return fmt.Sprintf("%s: reclaim failed for %s: %v", e.Code, e.Username, e.Err)
}

func (e ReclaimError) Unwrap() error {
	return e.Err
}

// PortalErrorCode classifies failures of the accounts portal client.
type PortalErrorCode string

const (
	// ErrCodePortalUnavailable: transport, auth or server-side failure.
	ErrCodePortalUnavailable PortalErrorCode = "UNAVAILABLE"
	// ErrCodePortalRejected: the portal understood the request and refused it.
	ErrCodePortalRejected PortalErrorCode = "REJECTED"
	// ErrCodePortalTimeout: the bounded per-call timeout elapsed.
	ErrCodePortalTimeout PortalErrorCode = "TIMEOUT"
)

// PortalError is a failure of one portal call.
type PortalError struct {
	Code PortalErrorCode
	Op   string
	Err  error
}

func (e PortalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: portal %s failed", e.Code, e.Op)
	}
	return fmt.Sprintf("%s: portal %s failed: %v", e.Code, e.Op, e.Err)
}

func (e PortalError) Unwrap() error {
	return e.Err
}
