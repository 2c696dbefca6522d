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
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"

	"github.com/cedadev/homedir-manager/model"
)

// trainingUsernamePattern matches "train" followed by one or more digits and
// nothing else. Case-sensitive: TRAIN1 is not a training account.
var trainingUsernamePattern = regexp.MustCompile(`^train[0-9]+$`)

// ValidateUsername decides whether an account is eligible for teardown.
// It is the only check standing between the reclaimer and a persistent
// account's home directory, so anything that is not an exact match fails
// with ErrNotTrainingAccount. Pure function, no side effects.
func ValidateUsername(username string) error {
	err := validation.Validate(username,
		validation.Required.Error("username cannot be empty"),
		validation.Match(trainingUsernamePattern).Error("username must be 'train' followed by digits"),
	)
	if err != nil {
		return errors.Wrap(model.ErrNotTrainingAccount, err.Error())
	}
	return nil
}
