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

package request

import (
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
)

func TestToJsonReq(t *testing.T) {
	payload := map[string]string{"lifecycle_state": "DORMANT"}

	buf, err := ToJsonReq(payload)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"lifecycle_state":"DORMANT"}`, buf.String())
}

func TestCall(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "http://portal.example.com/api/users/",
		httpmock.NewStringResponder(200, `{"status":"ok"}`))

	req, err := http.NewRequest("GET", "http://portal.example.com/api/users/", nil)
	assert.NoError(t, err)

	var response map[string]string
	resp, err := Call(req, &response)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
}
