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
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cedadev/homedir-manager/config"
	"github.com/cedadev/homedir-manager/internal/request"
)

// SlackNotification sends an error message to the configured Slack webhook.
// It formats the error details and the current time into a Slack message
// payload. A missing webhook URL makes this a no-op.
func SlackNotification(err error) {
	data := json.RawMessage(fmt.Sprintf(`{
		"blocks": [
			{
				"type": "header",
				"text": {
					"type": "plain_text",
					"text": "Error From Homedir Manager 🐞",
					"emoji": true
				}
			},
			{
				"type": "section",
				"fields": [
					{
						"type": "mrkdwn",
						"text": "*Error:*\n%v"
					},
					{
						"type": "mrkdwn",
						"text": "*Time:*\n%v"
					}
				]
			}
		]
	}`, err.Error(), time.Now().Format(time.RFC822)))

	if err := postToSlack(data); err != nil {
		log.Println(err)
	}
}

// SendReconciliationAlert reports an account whose home directory was
// replaced but whose portal state could not be updated. The filesystem work
// must not be redone, so the divergence has to reach a human (or an
// automated reconciler) rather than disappear into the logs.
func SendReconciliationAlert(username, detail string) error {
	data := json.RawMessage(fmt.Sprintf(`{
		"blocks": [
			{
				"type": "header",
				"text": {
					"type": "plain_text",
					"text": "Reconciliation Needed 🚨",
					"emoji": true
				}
			},
			{
				"type": "section",
				"fields": [
					{
						"type": "mrkdwn",
						"text": "*Account:*\n%s"
					},
					{
						"type": "mrkdwn",
						"text": "*Detail:*\n%s"
					},
					{
						"type": "mrkdwn",
						"text": "*Time:*\n%s"
					}
				]
			}
		]
	}`, username, detail, time.Now().Format(time.RFC822)))

	return postToSlack(data)
}

// NotifyReconciliationNeeded sends the reconciliation alert asynchronously
// so the orchestrator never blocks on Slack while other candidates wait.
func NotifyReconciliationNeeded(username, detail string) {
	go func() {
		logrus.WithFields(logrus.Fields{"username": username, "detail": detail}).
			Error("account needs reconciliation: home directory replaced but portal not updated")

		if err := SendReconciliationAlert(username, detail); err != nil {
			log.Println(err)
		}
	}()
}

// NotifyError sends an error notification through the configured channels.
// It logs the error locally and notifies Slack asynchronously.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)
		SlackNotification(systemError)
	}(systemError)
}

func postToSlack(data json.RawMessage) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Slack.WebhookUrl == "" {
		return nil
	}

	payload, err := request.ToJsonReq(&data)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", conf.Notification.Slack.WebhookUrl, payload)
	if err != nil {
		return err
	}

	var response map[string]interface{}
	_, err = request.Call(req, &response)
	return err
}
