// Package remote talks to the ataraxia account service. Client serves as the
// identity provider and the remote preference store of the device.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "ataraxia/internal/errors"
	"ataraxia/internal/model"
)

type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of c that authenticates as token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

func (c *Client) Register(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	var result AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"email":       email,
		"password":    password,
		"displayName": displayName,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var result AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var resp struct {
		User model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Exists reports whether the signed-in account has a stored record. The
// service keys records by the token subject, so userID only guards against a
// client without a session.
func (c *Client) Exists(ctx context.Context, userID string) (bool, error) {
	if err := c.requireSession(userID); err != nil {
		return false, err
	}
	req, err := c.newRequest(ctx, http.MethodHead, "/api/preferences", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("check preferences: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &apperrors.APIError{Status: resp.StatusCode, Code: "unexpected_status", Message: resp.Status}
	}
}

// Read returns the stored record, or nil when there is none.
func (c *Client) Read(ctx context.Context, userID string) (*model.PreferenceRecord, error) {
	if err := c.requireSession(userID); err != nil {
		return nil, err
	}
	var resp struct {
		Record *model.PreferenceRecord `json:"record"`
	}
	err := c.do(ctx, http.MethodGet, "/api/preferences", nil, &resp)
	if apiErr, ok := apperrors.AsAPIError(err); ok && apiErr.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resp.Record, nil
}

func (c *Client) Write(ctx context.Context, userID string, record model.PreferenceRecord, merge bool) error {
	if err := c.requireSession(userID); err != nil {
		return err
	}
	body := struct {
		model.LocalSnapshot
		MigratedAt *time.Time `json:"migratedAt,omitempty"`
	}{record.LocalSnapshot, record.MigratedAt}

	path := "/api/preferences?" + url.Values{"merge": {fmt.Sprint(merge)}}.Encode()
	return c.do(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) requireSession(userID string) error {
	if c.token == "" || userID == "" {
		return apperrors.Unauthorized("not signed in")
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var envelope apperrors.Envelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error == nil {
		return &apperrors.APIError{Status: resp.StatusCode, Code: "unexpected_status", Message: resp.Status}
	}
	envelope.Error.Status = resp.StatusCode
	return envelope.Error
}
