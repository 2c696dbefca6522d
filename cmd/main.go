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
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cedadev/homedir-manager/config"
)

// HomedirManager represents the CLI application, encapsulating the root
// Cobra command.
type HomedirManager struct {
	cmd *cobra.Command
}

// managerInstance holds the loaded configuration, shared by all subcommands.
type managerInstance struct {
	cnf *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the
// error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads and validates the configuration before any subcommand runs.
func preRun(app *managerInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		app.cnf = cnf
		return nil
	}
}

// NewCLI creates the command-line interface for the homedir manager. It sets
// up the root command and the cleanup and config subcommands.
func NewCLI() *HomedirManager {
	var configFile string
	app := &managerInstance{}

	var rootCmd = &cobra.Command{
		Use:   "homedir-manager",
		Short: "Reclaims home directories of expired training accounts",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./homedir.json", "Configuration file for the homedir manager")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(cleanupCommands(app))
	rootCmd.AddCommand(configCommands())

	return &HomedirManager{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during
// execution.
func (m HomedirManager) executeCLI() {
	if err := m.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
