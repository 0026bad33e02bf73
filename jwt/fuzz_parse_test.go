package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

// FuzzParseSession feeds arbitrary strings to the session parser.
// Invalid inputs must be rejected with errors, never a panic.
func FuzzParseSession(f *testing.F) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.Fatal(err)
	}
	mgr, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		Issuer:        "fuzz-test",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		f.Fatal(err)
	}

	valid, err := mgr.CreateSession(SessionClaims{AccountID: "acc-1", SessionID: 1}, time.Now(), 5*time.Minute)
	if err != nil {
		f.Fatal(err)
	}
	unlock, _, err := mgr.CreateUnlock("acc-1", time.Now(), time.Hour)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add(unlock)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJhaWQiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := mgr.ParseSession(input)
		if err != nil {
			return
		}
		if claims == nil || claims.AccountID == "" {
			t.Fatal("ParseSession accepted a token without account id")
		}
	})
}
