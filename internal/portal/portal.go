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

// Package portal implements the HTTP client for the accounts portal, the
// external system of record for account lifecycle state. It lists the
// training accounts awaiting cleanup and reports lifecycle transitions back.
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/cedadev/homedir-manager/config"
	"github.com/cedadev/homedir-manager/internal/request"
	"github.com/cedadev/homedir-manager/model"
)

// Client talks to the accounts portal over an OAuth2 client-credentials
// authenticated HTTP client. Every call is bounded by the configured
// per-call timeout; only the candidate list fetch is retried.
type Client struct {
	http          *http.Client
	usersEndpoint string
	timeout       time.Duration
	maxRetries    uint64
}

// NewClient builds a portal client from configuration. The OAuth2 token is
// fetched lazily on the first request and refreshed automatically.
func NewClient(cnf *config.Configuration) *Client {
	cc := clientcredentials.Config{
		ClientID:     cnf.Portal.ClientID,
		ClientSecret: cnf.Portal.ClientSecret,
		TokenURL:     cnf.Portal.TokenEndpoint,
		Scopes:       cnf.Portal.Scopes,
	}
	return NewClientWithHTTP(cc.Client(context.Background()), cnf)
}

// NewClientWithHTTP builds a portal client around an existing HTTP client.
// Used by tests to inject an unauthenticated client.
func NewClientWithHTTP(httpClient *http.Client, cnf *config.Configuration) *Client {
	return &Client{
		http:          httpClient,
		usersEndpoint: cnf.Portal.UsersEndpoint,
		timeout:       time.Duration(cnf.Portal.Timeout) * time.Second,
		maxRetries:    cnf.Portal.MaxRetries,
	}
}

// userResource is the portal's list representation of a user.
type userResource struct {
	Username       string `json:"username"`
	URL            string `json:"url"`
	LifecycleState string `json:"lifecycle_state"`
}

// userDetailResource is the portal's detail view, which carries the home
// directory path LDAP has on record for the account.
type userDetailResource struct {
	Username string `json:"username"`
	Account  struct {
		HomeDirectory string `json:"homeDirectory"`
	} `json:"account"`
}

// statusError is a non-2xx portal response, kept so classify can map status
// ranges onto the portal error taxonomy.
type statusError struct {
	StatusCode int
	Op         string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("portal %s returned status %d", e.Op, e.StatusCode)
}

// ListCandidates fetches the accounts pending teardown, filtered server-side
// to inactive training users in lifecycle state AWAITING_CLEANUP. Transient
// transport and server-side failures are retried with capped exponential
// backoff before the call fails with an UNAVAILABLE portal error; a failed
// list fetch aborts the whole run, so it is worth a few retries.
func (c *Client) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	listURL, err := url.Parse(c.usersEndpoint)
	if err != nil {
		return nil, model.PortalError{Code: model.ErrCodePortalUnavailable, Op: "list", Err: err}
	}
	query := listURL.Query()
	query.Set("user_type", "TRAINING")
	query.Set("lifecycle_state", string(model.StateAwaitingCleanup))
	query.Set("is_active", "false")
	listURL.RawQuery = query.Encode()

	var users []userResource
	operation := func() error {
		users = nil
		if err := c.do(ctx, http.MethodGet, listURL.String(), nil, &users); err != nil {
			var se *statusError
			if errors.As(err, &se) && se.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, classify("list", err)
	}

	candidates := make([]model.Candidate, 0, len(users))
	for _, u := range users {
		candidates = append(candidates, model.Candidate{
			Username:       u.Username,
			LifecycleState: model.LifecycleState(u.LifecycleState),
			DetailURL:      u.URL,
		})
	}
	return candidates, nil
}

// GetCandidateDetail fetches the portal's detail view for a candidate and
// returns a copy with the recorded home directory filled in.
func (c *Client) GetCandidateDetail(ctx context.Context, candidate model.Candidate) (model.Candidate, error) {
	if candidate.DetailURL == "" {
		return candidate, model.PortalError{
			Code: model.ErrCodePortalRejected,
			Op:   "detail",
			Err:  errors.Errorf("candidate %s has no detail URL", candidate.Username),
		}
	}

	var detail userDetailResource
	if err := c.do(ctx, http.MethodGet, candidate.DetailURL, nil, &detail); err != nil {
		return candidate, classify("detail", err)
	}

	candidate.HomeDirectory = detail.Account.HomeDirectory
	return candidate, nil
}

// SetLifecycleState reports a lifecycle transition back to the portal. The
// pipeline only ever transitions accounts to DORMANT, and only after the
// filesystem work for the account has fully succeeded.
func (c *Client) SetLifecycleState(ctx context.Context, candidate model.Candidate, state model.LifecycleState) error {
	if state != model.StateDormant {
		return model.PortalError{
			Code: model.ErrCodePortalRejected,
			Op:   "transition",
			Err:  errors.Errorf("unsupported lifecycle transition to %s", state),
		}
	}

	payload, err := request.ToJsonReq(map[string]model.LifecycleState{"lifecycle_state": state})
	if err != nil {
		return model.PortalError{Code: model.ErrCodePortalRejected, Op: "transition", Err: err}
	}

	if err := c.do(ctx, http.MethodPatch, candidate.DetailURL, payload, nil); err != nil {
		return classify("transition", err)
	}
	return nil
}

// do performs one bounded portal call and decodes the JSON response into out
// when out is non-nil.
func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{StatusCode: resp.StatusCode, Op: method}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// classify maps a raw call failure onto the portal error taxonomy. Timeouts
// are surfaced as their own code so the caller never has to guess whether
// the portal was slow or refusing.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.PortalError{Code: model.ErrCodePortalTimeout, Op: op, Err: err}
	}

	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden:
			return model.PortalError{Code: model.ErrCodePortalUnavailable, Op: op, Err: err}
		case se.StatusCode >= 400 && se.StatusCode < 500:
			return model.PortalError{Code: model.ErrCodePortalRejected, Op: op, Err: err}
		default:
			return model.PortalError{Code: model.ErrCodePortalUnavailable, Op: op, Err: err}
		}
	}

	return model.PortalError{Code: model.ErrCodePortalUnavailable, Op: op, Err: err}
}
