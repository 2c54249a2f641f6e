// SPDX-License-Identifier: Apache-2.0

// Package dciclient wraps the remote job-control service's HTTP API:
// topics, components, jobs, jobstates, files, pipelines, and identity.
// Every call goes through a retry helper that backs off exponentially on
// 5xx responses and gives up immediately on anything else.
package dciclient

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/redhat-cip/dci-pipeline/pkg/logging"
)

const (
	retryBase = 30 * time.Second
	retryCap  = 600 * time.Second
)

// Auth selects how a request is authenticated. A Client carries exactly
// one of these; component-listing calls may be issued with a different
// Auth (the pipeline-user) than job-creation calls (the remoteci).
type Auth struct {
	// Signature-based: remoteci client id + API secret.
	ClientID  string
	APISecret string

	// Password-based: used when a pipeline-user is configured for
	// component listing.
	Username string
	Password string
}

func (a Auth) signatureBased() bool {
	return a.ClientID != "" && a.APISecret != ""
}

// Client talks to one DCI-style remote-service instance under one Auth.
// Use WithAuth to get a client for the other auth mode against the same
// server, e.g. a remoteci client switching to a pipeline-user for
// component listing.
type Client struct {
	BaseURL string
	Auth    Auth
	HTTP    *http.Client
	Log     logging.Logger
}

// New returns a Client configured for signature-based (remoteci)
// authentication.
func New(baseURL, clientID, apiSecret string, log logging.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Auth:    Auth{ClientID: clientID, APISecret: apiSecret},
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
		Log:     log,
	}
}

// WithAuth returns a copy of c authenticating as a, e.g. to switch from
// the remoteci identity to a pipeline-user for component listing.
func (c *Client) WithAuth(a Auth) *Client {
	dup := *c
	dup.Auth = a
	return &dup
}

// errStatus is a non-2xx HTTP response. 5xx errStatus values are
// retryable; everything else is permanent.
type errStatus struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *errStatus) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Retryable reports whether the failing response should be retried by
// the caller, used by callers that want to classify errors per the
// permanent-vs-transient split of the error taxonomy.
func (e *errStatus) Retryable() bool {
	return e.Code >= 500
}

// do issues one HTTP request and retries it under an exponential backoff
// that starts at 30s, doubles each attempt, and caps at 600s, retrying
// indefinitely while the response is a 5xx. The backoff object is created
// fresh for every call, so the delay resets for the next distinct call.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	b, err := retry.NewExponential(retryBase)
	if err != nil {
		return fmt.Errorf("building retry backoff: %w", err)
	}
	b = retry.WithCappedDuration(retryCap, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := c.once(ctx, method, path, query, body, out)
		if err == nil {
			return nil
		}
		var st *errStatus
		if ok := asErrStatus(err, &st); ok && st.Retryable() {
			if c.Log != nil {
				c.Log.Warn("remote service returned a transient error, retrying",
					logging.NewField("method", method),
					logging.NewField("path", path),
					logging.NewField("status", st.Code))
			}
			return retry.RetryableError(err)
		}
		return err
	})
}

func asErrStatus(err error, target **errStatus) bool {
	st, ok := err.(*errStatus)
	if ok {
		*target = st
	}
	return ok
}

func (c *Client) once(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if err := c.sign(req); err != nil {
		return fmt.Errorf("signing request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		return &errStatus{Method: method, Path: path, Code: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response from %s %s: %w", method, path, err)
	}
	return nil
}

// sign attaches the configured authentication to req. Signature-based
// auth produces an HMAC over the canonical request; password-based auth
// uses HTTP basic auth.
func (c *Client) sign(req *http.Request) error {
	if c.Auth.signatureBased() {
		ts := strconv.FormatInt(nowUnix(), 10)
		canonical := strings.Join([]string{req.Method, req.URL.RequestURI(), ts}, "\n")
		mac := hmac.New(sha256.New, []byte(c.Auth.APISecret))
		if _, err := mac.Write([]byte(canonical)); err != nil {
			return err
		}
		sig := hex.EncodeToString(mac.Sum(nil))
		req.Header.Set("Client-Id", c.Auth.ClientID)
		req.Header.Set("Client-Timestamp", ts)
		req.Header.Set("Authorization", "DCI-HMAC-SHA256 "+sig)
		return nil
	}
	if c.Auth.Username != "" {
		req.SetBasicAuth(c.Auth.Username, c.Auth.Password)
		return nil
	}
	return fmt.Errorf("no authentication configured")
}

// uploadFile multipart-POSTs data as the "file" form field with the
// given filename and MIME type, used for log and JUnit uploads.
func (c *Client) uploadFile(ctx context.Context, path, filename, mimeType string, data []byte, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		return fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("writing multipart body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing multipart writer: %w", err)
	}

	b, backoffErr := retry.NewExponential(retryBase)
	if backoffErr != nil {
		return fmt.Errorf("building retry backoff: %w", backoffErr)
	}
	b = retry.WithCappedDuration(retryCap, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return fmt.Errorf("building upload request: %w", err)
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		if err := c.sign(req); err != nil {
			return fmt.Errorf("signing upload request: %w", err)
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return fmt.Errorf("uploading %s: %w", filename, err)
		}
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 300 {
			st := &errStatus{Method: http.MethodPost, Path: path, Code: resp.StatusCode, Body: string(respBody)}
			if st.Retryable() {
				return retry.RetryableError(st)
			}
			return st
		}
		if out != nil && len(respBody) > 0 {
			return json.Unmarshal(respBody, out)
		}
		return nil
	})
}

func nowUnix() int64 {
	return time.Now().Unix()
}
