package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/notification-builder/internal/config"
	"github.com/ehr/notification-builder/internal/domain/excerpt"
	"github.com/ehr/notification-builder/internal/platform/auth"
	"github.com/ehr/notification-builder/internal/platform/fhir"
	"github.com/ehr/notification-builder/internal/testutil"
	"github.com/ehr/notification-builder/pkg/fhirmodels"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

func testConfig() *config.Config {
	return &config.Config{
		Env:            "development",
		FHIRBaseURL:    fhirmodels.DefaultFHIRBase,
		BodyLimit:      "10M",
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"http://localhost:3000"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()
	e, err := newServer(cfg, zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	return e
}

func encode(t *testing.T, b *fhir.Bundle) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := fhir.Encode(&buf, b, false); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func signToken(t *testing.T, roles ...string) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "gesundheitsamt-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestServer_Health(t *testing.T) {
	e := newTestServer(t, testConfig())

	for _, path := range []string{"/health", "/health/db"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestServer_ExcerptAndMetrics(t *testing.T) {
	e := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/fhir/Bundle/$excerpt", encode(t, testutil.LaboratoryBundle(fhirmodels.TierNominal)))
	req.Header.Set(echo.HeaderContentType, "application/fhir+json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected security headers on the response")
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `notification_transformations_total`) ||
		!strings.Contains(body, `strategy="laboratory-nominal-to-non-nominal"`) {
		t.Errorf("expected the transformation to be counted, got:\n%s", body)
	}
}

func TestServer_ArchiveDisabled(t *testing.T) {
	e := newTestServer(t, testConfig())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/excerpts", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without an archive, got %d", rec.Code)
	}
}

func TestServer_Authentication(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	cfg.AuthSigningKey = testSigningKey
	e := newTestServer(t, cfg)

	body := func() *bytes.Buffer { return encode(t, testutil.DiseaseBundle(fhirmodels.TierNominal)) }

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"wrong role", signToken(t, auth.RoleArchiveReader), http.StatusForbidden},
		{"processor", signToken(t, auth.RoleProcessor), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/fhir/Bundle/$copy", body())
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected /health to stay public, got %d", rec.Code)
	}
}

func TestRunTransform(t *testing.T) {
	var out bytes.Buffer
	in := encode(t, testutil.LaboratoryBundle(fhirmodels.TierNonNominal))

	if err := runTransform(context.Background(), operationExcerpt, in, &out, fhirmodels.DefaultFHIRBase, true, zerolog.Nop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := fhir.Decode(&out)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if b.Meta.Profile[0] != fhirmodels.ProfileBundleLaboratoryAnonymous {
		t.Errorf("unexpected profile %v", b.Meta.Profile)
	}
}

func TestRunTransform_Errors(t *testing.T) {
	var out bytes.Buffer
	err := runTransform(context.Background(), operationCopy, strings.NewReader("{"), &out, fhirmodels.DefaultFHIRBase, false, zerolog.Nop())
	if err == nil {
		t.Error("expected malformed input to fail")
	}

	in := encode(t, testutil.LaboratoryBundle(fhirmodels.TierAnonymous))
	err = runTransform(context.Background(), operationExcerpt, in, &out, fhirmodels.DefaultFHIRBase, false, zerolog.Nop())
	if !errors.Is(err, excerpt.ErrNoStrategy) {
		t.Errorf("expected ErrNoStrategy, got %v", err)
	}
	if out.Len() != 0 {
		t.Error("expected no output on failure")
	}
}

func TestRootCommand(t *testing.T) {
	root := rootCmd()
	want := map[string]bool{"serve": false, "excerpt": false, "copy": false, "migrate": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected subcommand %q", name)
		}
	}
}

func TestTransformCommand_File(t *testing.T) {
	var stdout bytes.Buffer
	root := rootCmd()
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(encode(t, testutil.MinimalDiseaseBundle(fhirmodels.TierNominal)))
	root.SetArgs([]string{"copy", "-"})

	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := fhir.Decode(&stdout)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(b.Entry) != 4 {
		t.Errorf("expected 4 entries, got %d", len(b.Entry))
	}
}
