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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_HOME_ROOT        = "/home"
	DEFAULT_QUARANTINE_DIR   = ".fast-remove"
	DEFAULT_PORTAL_TIMEOUT   = 5 // seconds
	DEFAULT_PORTAL_RETRIES   = 3
	DEFAULT_LOCK_TTL_MINUTES = 30
)

var ConfigStore atomic.Value

// PortalConfig holds everything needed to talk to the accounts portal:
// OAuth2 client-credentials auth plus the users data endpoint.
type PortalConfig struct {
	UsersEndpoint string   `json:"users_endpoint" envconfig:"HDM_PORTAL_USERS_ENDPOINT"`
	TokenEndpoint string   `json:"token_endpoint" envconfig:"HDM_PORTAL_TOKEN_ENDPOINT"`
	ClientID      string   `json:"client_id" envconfig:"HDM_PORTAL_CLIENT_ID"`
	ClientSecret  string   `json:"client_secret" envconfig:"HDM_PORTAL_CLIENT_SECRET"`
	Scopes        []string `json:"scopes" envconfig:"HDM_PORTAL_SCOPES"`
	// Timeout bounds every single portal call, in seconds.
	Timeout int `json:"timeout" envconfig:"HDM_PORTAL_TIMEOUT"`
	// MaxRetries caps the backoff retries on the candidate list fetch.
	MaxRetries uint64 `json:"max_retries" envconfig:"HDM_PORTAL_MAX_RETRIES"`
}

// ReclaimConfig locates the shared filesystem roots the reclaimer works on.
type ReclaimConfig struct {
	HomeRoot       string `json:"home_root" envconfig:"HDM_HOME_ROOT"`
	QuarantineRoot string `json:"quarantine_root" envconfig:"HDM_QUARANTINE_ROOT"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"HDM_REDIS_DNS"`
}

type LockConfig struct {
	// TTLMinutes is how long the run lock is held before expiring on its own.
	TTLMinutes int `json:"ttl_minutes" envconfig:"HDM_LOCK_TTL_MINUTES"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"HDM_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string        `json:"project_name" envconfig:"HDM_PROJECT_NAME"`
	Reclaim      ReclaimConfig `json:"reclaim"`
	Portal       PortalConfig  `json:"portal"`
	Redis        RedisConfig   `json:"redis"`
	Lock         LockConfig    `json:"lock"`
	Notification Notification  `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("hdm", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called homedir.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Homedir Manager"
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Reclaim.HomeRoot = strings.TrimSpace(cnf.Reclaim.HomeRoot)
	cnf.Reclaim.QuarantineRoot = strings.TrimSpace(cnf.Reclaim.QuarantineRoot)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Reclaim.HomeRoot == "" {
		log.Printf("Warning: Home root not specified in config. Setting default: %s", DEFAULT_HOME_ROOT)
		cnf.Reclaim.HomeRoot = DEFAULT_HOME_ROOT
	}

	if cnf.Reclaim.QuarantineRoot == "" {
		cnf.Reclaim.QuarantineRoot = filepath.Join(cnf.Reclaim.HomeRoot, DEFAULT_QUARANTINE_DIR)
		log.Printf("Warning: Quarantine root not specified in config. Setting default: %s", cnf.Reclaim.QuarantineRoot)
	}

	if cnf.Portal.Timeout <= 0 {
		cnf.Portal.Timeout = DEFAULT_PORTAL_TIMEOUT
	}

	if cnf.Portal.MaxRetries == 0 {
		cnf.Portal.MaxRetries = DEFAULT_PORTAL_RETRIES
	}

	if cnf.Lock.TTLMinutes <= 0 {
		cnf.Lock.TTLMinutes = DEFAULT_LOCK_TTL_MINUTES
	}

	return cnf.validate()
}

// validate enforces the required fields once defaults have been applied.
func (cnf *Configuration) validate() error {
	err := validation.ValidateStruct(&cnf.Portal,
		validation.Field(&cnf.Portal.UsersEndpoint, validation.Required, is.URL),
		validation.Field(&cnf.Portal.TokenEndpoint, validation.Required, is.URL),
		validation.Field(&cnf.Portal.ClientID, validation.Required),
		validation.Field(&cnf.Portal.ClientSecret, validation.Required),
	)
	if err != nil {
		return err
	}

	err = validation.ValidateStruct(&cnf.Reclaim,
		validation.Field(&cnf.Reclaim.HomeRoot, validation.Required, validation.By(absolutePath)),
		validation.Field(&cnf.Reclaim.QuarantineRoot, validation.Required, validation.By(absolutePath)),
	)
	if err != nil {
		return err
	}

	return validation.ValidateStruct(&cnf.Redis,
		validation.Field(&cnf.Redis.Dns, validation.Required),
	)
}

func absolutePath(value interface{}) error {
	path, ok := value.(string)
	if !ok || !filepath.IsAbs(path) {
		return errors.New("must be an absolute path")
	}
	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
