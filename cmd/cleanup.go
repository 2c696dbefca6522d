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

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	homedir "github.com/cedadev/homedir-manager"
	redlock "github.com/cedadev/homedir-manager/internal/lock"
	"github.com/cedadev/homedir-manager/internal/notification"
	"github.com/cedadev/homedir-manager/internal/portal"
	"github.com/cedadev/homedir-manager/internal/redisdb"
	"github.com/cedadev/homedir-manager/model"
)

// runLockKey is the redis key guarding against overlapping scheduled runs.
const runLockKey = "homedir-manager:cleanup:lock"

// cleanupCommands defines the cleanup-training-accounts subcommand: one full
// pass of the teardown pipeline under the run lock.
func cleanupCommands(app *managerInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup-training-accounts",
		Short: "Reclaim home directories of training accounts awaiting cleanup",
		RunE:  runCleanup(app),
	}

	cmd.Flags().Bool("dry-run", false, "Show what would be done without executing")
	cmd.Flags().Bool("careful", false, "Prompt before each operation")

	return cmd
}

func runCleanup(app *managerInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cnf := app.cnf
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		careful, _ := cmd.Flags().GetBool("careful")

		if dryRun {
			fmt.Println("DRY RUN MODE: No actual changes will be made")
		}

		rdb, err := redisdb.NewRedisClient(cnf.Redis.Dns)
		if err != nil {
			return errors.Wrap(err, "connecting to redis")
		}

		opts := homedir.TeardownOptions{DryRun: dryRun}
		if careful {
			opts.Confirm = confirmCandidate
		}

		run := homedir.NewTeardown(portal.NewClient(cnf), homedir.NewHomeDirectoryReclaimer(cnf), opts)

		// The lock is the only thing standing between two overlapping cron
		// invocations, so a held lock means another run is active: bail out.
		ctx := context.Background()
		locker := redlock.NewLocker(rdb.Client(), runLockKey, run.RunID())
		if err := locker.Lock(ctx, time.Duration(cnf.Lock.TTLMinutes)*time.Minute); err != nil {
			return errors.Wrap(err, "another cleanup run appears to be active")
		}
		defer func() {
			if err := locker.Unlock(context.Background()); err != nil {
				logrus.Warn(err)
			}
		}()

		outcomes, runErr := run.Run(ctx)
		printOutcomes(outcomes)

		if runErr != nil {
			notification.NotifyError(runErr)
			return runErr
		}
		return nil
	}
}

// confirmCandidate is the careful-mode prompt: the operator has to type yes
// per account, can skip an account, or abort the remainder of the run.
func confirmCandidate(candidate model.Candidate) (bool, error) {
	fmt.Printf("\n%s\n", strings.Repeat("=", 50))
	fmt.Printf("User: %s\n", candidate.Username)
	fmt.Printf("Home Directory: %s\n", candidate.HomeDirectory)
	fmt.Printf("%s\n", strings.Repeat("=", 50))

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Type 'yes' to proceed with cleanup, 'skip' to skip, or 'abort' to exit: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "yes":
			return true, nil
		case "skip":
			return false, nil
		case "abort":
			fmt.Println("Operation aborted by operator")
			return false, errors.New("operation aborted by operator")
		}
	}
}

// printOutcomes writes the ordered run report to stdout and raises the
// severity of anything that needs reconciliation.
func printOutcomes(outcomes []model.TeardownOutcome) {
	if len(outcomes) == 0 {
		fmt.Println("No accounts to clean up")
		return
	}

	data, err := json.MarshalIndent(outcomes, "", "    ")
	if err != nil {
		logrus.Error(err)
		return
	}
	fmt.Println(string(data))

	for _, outcome := range outcomes {
		if outcome.RequiresReconciliation() {
			logrus.Errorf("account %s needs manual reconciliation: %s", outcome.Username, outcome.Detail)
		}
	}
}
