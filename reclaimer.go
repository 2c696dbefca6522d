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
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cedadev/homedir-manager/config"
	"github.com/cedadev/homedir-manager/model"
)

// homeDirMode is the permission set for recreated home directories.
const homeDirMode = os.FileMode(0700)

// OwnerLookupFunc resolves the uid and gid a recreated home directory must
// be owned by.
type OwnerLookupFunc func(username string) (uid, gid int, err error)

// HomeDirectoryReclaimer displaces a training account's home directory into
// the quarantine area as a single rename and recreates an empty replacement
// with the account's ownership. It never copies, never deletes and never
// overwrites: displaced directories sit in quarantine until an out-of-band
// retention process removes them.
type HomeDirectoryReclaimer struct {
	homeRoot       string
	quarantineRoot string
	lookupOwner    OwnerLookupFunc
	now            func() time.Time
}

// NewHomeDirectoryReclaimer builds a reclaimer over the configured home and
// quarantine roots, resolving ownership through the local user database.
func NewHomeDirectoryReclaimer(cnf *config.Configuration) *HomeDirectoryReclaimer {
	return &HomeDirectoryReclaimer{
		homeRoot:       cnf.Reclaim.HomeRoot,
		quarantineRoot: cnf.Reclaim.QuarantineRoot,
		lookupOwner:    systemOwnerLookup,
		now:            time.Now,
	}
}

func systemOwnerLookup(username string) (int, int, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return 0, 0, err
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "parsing uid for %s", username)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "parsing gid for %s", username)
	}
	return uid, gid, nil
}

// HomePath is the home directory path constructed from the username.
func (r *HomeDirectoryReclaimer) HomePath(username string) string {
	return filepath.Join(r.homeRoot, username)
}

// VerifyHomePath cross-checks the home path the portal has on record against
// the constructed path. A divergence means LDAP and the filesystem layout
// disagree about the account and nothing must be touched.
func (r *HomeDirectoryReclaimer) VerifyHomePath(username, recordedPath string) error {
	expected := r.HomePath(username)
	if recordedPath == "" || filepath.Clean(recordedPath) != expected {
		return model.ReclaimError{
			Code:     model.ErrCodeHomePathMismatch,
			Username: username,
			Err:      errors.Errorf("portal records home %q, expected %q", recordedPath, expected),
		}
	}
	return nil
}

// Reclaim runs the displacement and recreation gates for one account. Each
// step must succeed before the next runs:
//
//  1. the home directory must exist (or already be displaced by a previous
//     partial run, in which case the move is skipped);
//  2. the home directory is renamed into quarantine under a unique
//     timestamped path, failing rather than overwriting;
//  3. an empty home directory is recreated at the original path with the
//     account's ownership.
//
// A RecreateFailed error leaves the account displaced-but-not-recreated: the
// home path absent and a quarantine entry present. A later Reclaim call
// detects that state and resumes at step 3 without a second move.
func (r *HomeDirectoryReclaimer) Reclaim(ctx context.Context, username string) error {
	// Cancellation is only honored before the displacement starts. Once the
	// rename has happened the account must reach recreation or surface a
	// RecreateFailed error; stopping between the two would hide the
	// intermediate state from the outcome report.
	if err := ctx.Err(); err != nil {
		return model.ReclaimError{Code: model.ErrCodeDisplaceFailed, Username: username, Err: err}
	}

	home := r.HomePath(username)

	info, err := os.Stat(home)
	switch {
	case err == nil:
		if !info.IsDir() {
			return model.ReclaimError{
				Code:     model.ErrCodeHomeMissing,
				Username: username,
				Err:      errors.Errorf("%s exists but is not a directory", home),
			}
		}
		if err := r.displace(username, home); err != nil {
			return err
		}
	case os.IsNotExist(err):
		if !r.isDisplaced(username) {
			return model.ReclaimError{
				Code:     model.ErrCodeHomeMissing,
				Username: username,
				Err:      errors.Errorf("home directory %s does not exist", home),
			}
		}
		logrus.WithField("username", username).Info("home already displaced, resuming at recreation")
	default:
		return model.ReclaimError{Code: model.ErrCodeDisplaceFailed, Username: username, Err: err}
	}

	return r.recreate(username, home)
}

// displace renames the home directory into quarantine. The destination path
// is unique per invocation; a pre-existing destination is a collision and
// the original home directory is left untouched.
func (r *HomeDirectoryReclaimer) displace(username, home string) error {
	dest := model.QuarantinePath(r.quarantineRoot, username, r.now())

	if _, err := os.Stat(dest); err == nil {
		return model.ReclaimError{
			Code:     model.ErrCodeQuarantineCollision,
			Username: username,
			Err:      errors.Errorf("quarantine path %s already exists", dest),
		}
	}

	if err := os.MkdirAll(r.quarantineRoot, 0700); err != nil {
		return model.ReclaimError{Code: model.ErrCodeDisplaceFailed, Username: username, Err: err}
	}

	logrus.WithFields(logrus.Fields{"username": username, "destination": dest}).Info("displacing home directory to quarantine")
	if err := os.Rename(home, dest); err != nil {
		return model.ReclaimError{Code: model.ErrCodeDisplaceFailed, Username: username, Err: err}
	}
	return nil
}

// isDisplaced reports whether quarantine already holds an entry for the
// account, meaning a previous run moved the home directory but failed before
// recreating it.
func (r *HomeDirectoryReclaimer) isDisplaced(username string) bool {
	entries, err := os.ReadDir(r.quarantineRoot)
	if err != nil {
		return false
	}
	prefix := model.QuarantinePrefix(username)
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			return true
		}
	}
	return false
}

// recreate makes the fresh empty home directory with the account's uid/gid.
// On any failure the partially created directory is removed again so the
// account stays in the detectable displaced-but-not-recreated state.
func (r *HomeDirectoryReclaimer) recreate(username, home string) error {
	uid, gid, err := r.lookupOwner(username)
	if err != nil {
		return model.ReclaimError{
			Code:     model.ErrCodeRecreateFailed,
			Username: username,
			Err:      errors.Wrapf(err, "looking up owner for %s", username),
		}
	}

	if err := os.Mkdir(home, homeDirMode); err != nil {
		return model.ReclaimError{Code: model.ErrCodeRecreateFailed, Username: username, Err: err}
	}

	if err := os.Chown(home, uid, gid); err != nil {
		_ = os.Remove(home)
		return model.ReclaimError{Code: model.ErrCodeRecreateFailed, Username: username, Err: err}
	}

	logrus.WithFields(logrus.Fields{"username": username, "home": home}).Info("recreated empty home directory")
	return nil
}
