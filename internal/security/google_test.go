package security_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tazhibayda/garage-service/internal/domain"
	"github.com/tazhibayda/garage-service/internal/security"
)

const testClientID = "test-client-id.apps.googleusercontent.com"

func genKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func jwksServer(t *testing.T, kid string, pub *rsa.PublicKey) *httptest.Server {
	t.Helper()
	n := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())
	body := fmt.Sprintf(`{"keys":[{"kty":"RSA","kid":%q,"use":"sig","alg":"RS256","n":%q,"e":%q}]}`, kid, n, e)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type tokenOpts struct {
	iss string
	aud string
	sub string
	exp time.Time
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, o tokenOpts) string {
	t.Helper()
	if o.iss == "" {
		o.iss = "https://accounts.google.com"
	}
	if o.aud == "" {
		o.aud = testClientID
	}
	if o.sub == "" {
		o.sub = "118341338090648553375"
	}
	if o.exp.IsZero() {
		o.exp = time.Now().Add(time.Hour)
	}
	claims := jwt.MapClaims{
		"iss":            o.iss,
		"aud":            o.aud,
		"sub":            o.sub,
		"email":          "a@b.com",
		"email_verified": true,
		"name":           "Test User",
		"iat":            time.Now().Unix(),
		"exp":            o.exp.Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newVerifier(t *testing.T, kid string, key *rsa.PrivateKey) *security.Verifier {
	srv := jwksServer(t, kid, &key.PublicKey)
	return security.NewVerifier(srv.URL, time.Hour, testClientID)
}

func TestVerify_ValidToken(t *testing.T) {
	key := genKey(t)
	v := newVerifier(t, "kidA", key)

	claims, err := v.Verify(context.Background(), signToken(t, key, "kidA", tokenOpts{sub: "u1"}))
	if err != nil {
		t.Fatal(err)
	}
	if claims.Sub != "u1" || claims.Email != "a@b.com" || !claims.EmailVerified {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestVerify_Malformed(t *testing.T) {
	v := newVerifier(t, "kidA", genKey(t))

	_, err := v.Verify(context.Background(), "akjshdiuqwhyeuiqwhdjihnaskd")
	if !errors.Is(err, domain.ErrMalformedToken) {
		t.Fatalf("err = %v, want malformed", err)
	}
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatal("malformed must collapse into ErrAuth")
	}
}

func TestVerify_WrongSigningKey(t *testing.T) {
	trusted := genKey(t)
	attacker := genKey(t)
	v := newVerifier(t, "kidA", trusted)

	_, err := v.Verify(context.Background(), signToken(t, attacker, "kidA", tokenOpts{}))
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("err = %v, want invalid signature", err)
	}
}

func TestVerify_UnknownKid(t *testing.T) {
	key := genKey(t)
	v := newVerifier(t, "kidA", key)

	_, err := v.Verify(context.Background(), signToken(t, key, "kidZ", tokenOpts{}))
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("err = %v, want invalid signature", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	key := genKey(t)
	v := newVerifier(t, "kidA", key)

	_, err := v.Verify(context.Background(), signToken(t, key, "kidA", tokenOpts{exp: time.Now().Add(-time.Hour)}))
	if !errors.Is(err, domain.ErrExpiredToken) {
		t.Fatalf("err = %v, want expired", err)
	}
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatal("expired must collapse into ErrAuth")
	}
}

func TestVerify_IssuerAndAudience(t *testing.T) {
	key := genKey(t)
	v := newVerifier(t, "kidA", key)

	_, err := v.Verify(context.Background(), signToken(t, key, "kidA", tokenOpts{iss: "https://evil.example.com"}))
	if !errors.Is(err, domain.ErrIssuerMismatch) {
		t.Fatalf("bad iss: err = %v", err)
	}

	_, err = v.Verify(context.Background(), signToken(t, key, "kidA", tokenOpts{aud: "someone-else"}))
	if !errors.Is(err, domain.ErrIssuerMismatch) {
		t.Fatalf("bad aud: err = %v", err)
	}

	// bare issuer form is also Google
	if _, err := v.Verify(context.Background(), signToken(t, key, "kidA", tokenOpts{iss: "accounts.google.com"})); err != nil {
		t.Fatalf("bare iss rejected: %v", err)
	}
}

func TestVerify_DeadlineSurfacesTimeout(t *testing.T) {
	key := genKey(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	v := security.NewVerifier(srv.URL, time.Hour, testClientID)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := v.Verify(ctx, signToken(t, key, "kidA", tokenOpts{}))
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("err = %v, want timeout", err)
	}
}
