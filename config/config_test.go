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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "homedir.json")
	assert.NoError(t, os.WriteFile(file, []byte(contents), 0600))
	return file
}

const validConfig = `{
	"project_name": "JASMIN Homedir Manager",
	"reclaim": {
		"home_root": "/home/users",
		"quarantine_root": "/home/quarantine"
	},
	"portal": {
		"users_endpoint": "https://portal.example.com/api/v1/users/",
		"token_endpoint": "https://portal.example.com/oauth/token/",
		"client_id": "homedir-manager",
		"client_secret": "s3cret",
		"scopes": ["accounts:read", "accounts:write"]
	},
	"redis": {
		"dns": "localhost:6379"
	}
}`

func TestInitConfigFromFile(t *testing.T) {
	file := writeConfigFile(t, validConfig)

	assert.NoError(t, InitConfig(file))

	cnf, err := Fetch()
	assert.NoError(t, err)
	assert.Equal(t, "JASMIN Homedir Manager", cnf.ProjectName)
	assert.Equal(t, "/home/users", cnf.Reclaim.HomeRoot)
	assert.Equal(t, "/home/quarantine", cnf.Reclaim.QuarantineRoot)
	assert.Equal(t, "homedir-manager", cnf.Portal.ClientID)
	assert.Equal(t, []string{"accounts:read", "accounts:write"}, cnf.Portal.Scopes)

	// defaults applied for anything not specified
	assert.Equal(t, DEFAULT_PORTAL_TIMEOUT, cnf.Portal.Timeout)
	assert.Equal(t, uint64(DEFAULT_PORTAL_RETRIES), cnf.Portal.MaxRetries)
	assert.Equal(t, DEFAULT_LOCK_TTL_MINUTES, cnf.Lock.TTLMinutes)
}

func TestInitConfigDefaultQuarantineRoot(t *testing.T) {
	file := writeConfigFile(t, `{
		"reclaim": {"home_root": "/home/users"},
		"portal": {
			"users_endpoint": "https://portal.example.com/api/v1/users/",
			"token_endpoint": "https://portal.example.com/oauth/token/",
			"client_id": "homedir-manager",
			"client_secret": "s3cret"
		},
		"redis": {"dns": "localhost:6379"}
	}`)

	assert.NoError(t, InitConfig(file))

	cnf, err := Fetch()
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/users", DEFAULT_QUARANTINE_DIR), cnf.Reclaim.QuarantineRoot)
}

func TestInitConfigEnvOverrides(t *testing.T) {
	file := writeConfigFile(t, validConfig)
	t.Setenv("HDM_PORTAL_CLIENT_ID", "from-env")
	t.Setenv("HDM_HOME_ROOT", "/srv/training-homes")

	assert.NoError(t, InitConfig(file))

	cnf, err := Fetch()
	assert.NoError(t, err)
	assert.Equal(t, "from-env", cnf.Portal.ClientID)
	assert.Equal(t, "/srv/training-homes", cnf.Reclaim.HomeRoot)
}

func TestInitConfigRequiresPortalCredentials(t *testing.T) {
	file := writeConfigFile(t, `{
		"reclaim": {"home_root": "/home/users"},
		"portal": {
			"users_endpoint": "https://portal.example.com/api/v1/users/",
			"token_endpoint": "https://portal.example.com/oauth/token/"
		},
		"redis": {"dns": "localhost:6379"}
	}`)

	err := InitConfig(file)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "client_id")
}

func TestInitConfigRejectsRelativeRoots(t *testing.T) {
	file := writeConfigFile(t, `{
		"reclaim": {"home_root": "training-homes"},
		"portal": {
			"users_endpoint": "https://portal.example.com/api/v1/users/",
			"token_endpoint": "https://portal.example.com/oauth/token/",
			"client_id": "homedir-manager",
			"client_secret": "s3cret"
		},
		"redis": {"dns": "localhost:6379"}
	}`)

	err := InitConfig(file)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "absolute path")
}

func TestInitConfigRequiresRedis(t *testing.T) {
	file := writeConfigFile(t, `{
		"reclaim": {"home_root": "/home/users"},
		"portal": {
			"users_endpoint": "https://portal.example.com/api/v1/users/",
			"token_endpoint": "https://portal.example.com/oauth/token/",
			"client_id": "homedir-manager",
			"client_secret": "s3cret"
		}
	}`)

	err := InitConfig(file)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dns")
}
