package recaptcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newSiteVerify(t *testing.T, reply func(r *http.Request) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		status, body := reply(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestValidateSendsFormAndAccepts(t *testing.T) {
	srv := newSiteVerify(t, func(r *http.Request) (int, any) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.PostForm.Get("secret") != "s3cret" || r.PostForm.Get("response") != "tok" || r.PostForm.Get("remoteip") != "10.0.0.1" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		return http.StatusOK, map[string]any{"success": true}
	})

	v, err := NewVerifier(Config{Secret: "s3cret", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	ok, err := v.Validate(context.Background(), "tok", "10.0.0.1")
	if err != nil || !ok {
		t.Fatalf("expected accept, ok=%v err=%v", ok, err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		body map[string]any
	}{
		{"unsuccessful", Config{}, map[string]any{"success": false, "error-codes": []string{"invalid-input-response"}}},
		{"low score", Config{MinScore: 0.5}, map[string]any{"success": true, "score": 0.2}},
		{"wrong action", Config{Action: "login"}, map[string]any{"success": true, "action": "signup"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newSiteVerify(t, func(*http.Request) (int, any) { return http.StatusOK, tc.body })
			cfg := tc.cfg
			cfg.Secret = "s3cret"
			cfg.Endpoint = srv.URL
			v, err := NewVerifier(cfg)
			if err != nil {
				t.Fatalf("NewVerifier: %v", err)
			}
			ok, err := v.Validate(context.Background(), "tok", "")
			if err != nil || ok {
				t.Fatalf("expected reject, ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestValidateEmptyTokenSkipsRoundTrip(t *testing.T) {
	calls := 0
	srv := newSiteVerify(t, func(*http.Request) (int, any) {
		calls++
		return http.StatusOK, map[string]any{"success": true}
	})
	v, _ := NewVerifier(Config{Secret: "s3cret", Endpoint: srv.URL})
	ok, err := v.Validate(context.Background(), "  ", "")
	if err != nil || ok || calls != 0 {
		t.Fatalf("expected silent reject, ok=%v err=%v calls=%d", ok, err, calls)
	}
}

func TestValidateServerError(t *testing.T) {
	srv := newSiteVerify(t, func(*http.Request) (int, any) {
		return http.StatusBadGateway, map[string]any{"error": "upstream"}
	})
	v, _ := NewVerifier(Config{Secret: "s3cret", Endpoint: srv.URL})
	if _, err := v.Validate(context.Background(), "tok", ""); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier(Config{}); err != ErrMissingSecret {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
