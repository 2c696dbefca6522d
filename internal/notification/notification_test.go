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

package notification

import (
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/cedadev/homedir-manager/config"
)

func TestSendReconciliationAlert(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		Notification: config.Notification{
			Slack: config.SlackWebhook{WebhookUrl: "https://hooks.slack.com/services/T000/B000/XXX"},
		},
	})

	var body string
	httpmock.RegisterResponder("POST", "https://hooks.slack.com/services/T000/B000/XXX",
		func(req *http.Request) (*http.Response, error) {
			raw, err := io.ReadAll(req.Body)
			assert.NoError(t, err)
			body = string(raw)
			return httpmock.NewStringResponse(200, `{"ok": true}`), nil
		})

	err := SendReconciliationAlert("train007", "portal transition failed")
	assert.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Contains(t, body, "train007")
	assert.Contains(t, body, "Reconciliation Needed")
}

func TestSendReconciliationAlertWithoutWebhookIsNoop(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{})

	err := SendReconciliationAlert("train007", "portal transition failed")
	assert.NoError(t, err)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}
