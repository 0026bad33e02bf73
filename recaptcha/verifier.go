// Package recaptcha validates client recaptcha tokens against the siteverify
// endpoint. [Verifier] satisfies domain.RecaptchaValidator.
package recaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the public siteverify URL.
const DefaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

var ErrMissingSecret = errors.New("recaptcha: secret is required")

type Config struct {
	Secret     string
	Endpoint   string
	HTTPClient *http.Client
	// MinScore rejects v3 responses scoring below it. Zero disables the check.
	MinScore float64
	// Action, when set, must match the action reported by v3 responses.
	Action string
}

type Verifier struct {
	secret     string
	endpoint   string
	httpClient *http.Client
	minScore   float64
	action     string
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, ErrMissingSecret
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Verifier{
		secret:     cfg.Secret,
		endpoint:   endpoint,
		httpClient: httpClient,
		minScore:   cfg.MinScore,
		action:     cfg.Action,
	}, nil
}

// Validate reports whether token is accepted. An empty token is rejected
// without a round trip; transport and decoding failures are returned as errors.
func (v *Verifier) Validate(ctx context.Context, token, remoteIP string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("recaptcha: siteverify request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("recaptcha: siteverify failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("recaptcha: decode siteverify response: %w", err)
	}
	if !out.Success {
		return false, nil
	}
	if v.minScore > 0 && out.Score < v.minScore {
		return false, nil
	}
	if v.action != "" && out.Action != v.action {
		return false, nil
	}
	return true, nil
}
