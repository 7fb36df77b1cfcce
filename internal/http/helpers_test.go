package http_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	httpapi "github.com/tazhibayda/garage-service/internal/http"
	"github.com/tazhibayda/garage-service/internal/log"
	"github.com/tazhibayda/garage-service/internal/repo"
	"github.com/tazhibayda/garage-service/internal/security"
	"github.com/tazhibayda/garage-service/internal/service"
)

const (
	testSecret   = "test-secret"
	testClientID = "test-client-id.apps.googleusercontent.com"
	testKid      = "kidA"
)

type testEnv struct {
	T      *testing.T
	Ctx    context.Context
	Store  *repo.Store
	Key    *rsa.PrivateKey
	Router *gin.Engine
	Events *capturePub
}

type capturedEvent struct {
	Ctx context.Context
	Key string
}

// capturePub records published events so tests can assert on the
// context and routing key they were sent with.
type capturePub struct{ ch chan capturedEvent }

func (p *capturePub) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	select {
	case p.ch <- capturedEvent{Ctx: ctx, Key: key}:
	default:
	}
	return nil
}

func (p *capturePub) Close() error { return nil }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	mc, err := mongodb.RunContainer(ctx, testcontainers.WithImage("mongo:6"))
	if err != nil {
		t.Fatalf("mongo container: %v", err)
	}
	t.Cleanup(func() { _ = mc.Terminate(ctx) })

	uri, err := mc.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("mongo uri: %v", err)
	}

	if _, err := log.Init(false); err != nil {
		t.Fatalf("log init: %v", err)
	}

	store, err := repo.NewStore(ctx, uri, "garage_http_test")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(ctx) })
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatal(err)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	jwksSrv := newJWKS(t, testKid, &key.PublicKey)

	auth := &service.Auth{
		Verifier:   security.NewVerifier(jwksSrv.URL, time.Hour, testClientID),
		Users:      store,
		JWTSecret:  testSecret,
		SessionTTL: 15 * time.Minute,
	}
	garages := &service.Garages{Store: store}

	// Redis is not needed here: nil limiter; events go to the capture
	events := &capturePub{ch: make(chan capturedEvent, 8)}
	h := httpapi.NewHandler(auth, garages, store, nil, 0, events)

	gin.SetMode(gin.TestMode)
	r := httpapi.NewRouter(h, testSecret)

	return &testEnv{T: t, Ctx: ctx, Store: store, Key: key, Router: r, Events: events}
}

func newJWKS(t *testing.T, kid string, pub *rsa.PublicKey) *httptest.Server {
	t.Helper()
	n := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())
	body := fmt.Sprintf(`{"keys":[{"kty":"RSA","kid":%q,"use":"sig","alg":"RS256","n":%q,"e":%q}]}`, kid, n, e)
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// googleToken signs an ID token the way the test JWKS will accept.
func (e *testEnv) googleToken(sub, email string) string {
	e.T.Helper()
	claims := jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            testClientID,
		"sub":            sub,
		"email":          email,
		"email_verified": true,
		"name":           "Test User",
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKid
	s, err := tok.SignedString(e.Key)
	if err != nil {
		e.T.Fatal(err)
	}
	return s
}
