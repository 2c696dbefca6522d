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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cedadev/homedir-manager/model"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{"train1", "train042", "train007", "train99999"}
	for _, username := range valid {
		t.Run(username, func(t *testing.T) {
			assert.NoError(t, ValidateUsername(username))
		})
	}

	invalid := []string{
		"",         // empty
		"train",    // no digits
		"trainer5", // letters after the prefix
		"TRAIN1",   // case-sensitive by design
		"Train42",  // mixed case
		"train 7",  // embedded space
		"7train",   // digits before the prefix
		"train07x", // trailing characters
		"xtrain07", // leading characters
		"train-7",  // separator
		"bob",      // unrelated account
		"train7\n", // trailing newline
	}
	for _, username := range invalid {
		t.Run(fmt.Sprintf("reject %q", username), func(t *testing.T) {
			err := ValidateUsername(username)
			assert.ErrorIs(t, err, model.ErrNotTrainingAccount)
		})
	}
}
