package httpfront

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dexatek/cdu-gateway/internal/database"
	"github.com/dexatek/cdu-gateway/pkg/models"
)

// testCertAndKey generates a throwaway self-signed certificate/key pair in
// PEM form, standing in for a real provisioned server certificate.
func testCertAndKey(t *testing.T) (certPEM, keyPEM string) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "gateway-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}))
	return certPEM, keyPEM
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.New(dbPath)
	if err != nil {
		t.Fatalf("new database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestHostWithoutPort(t *testing.T) {
	cases := map[string]string{
		"example.com:8080": "example.com",
		"example.com":      "example.com",
		"[::1]:443":        "[::1]",
		"[::1]":            "[::1]",
	}
	for in, want := range cases {
		if got := hostWithoutPort(in); got != want {
			t.Errorf("hostWithoutPort(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPortSuffix(t *testing.T) {
	cases := map[string]string{
		":443": "",
		":8443": ":8443",
	}
	for in, want := range cases {
		if got := portSuffix(in); got != want {
			t.Errorf("portSuffix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandleHTTPRedirectsSessionCreation(t *testing.T) {
	db := newTestDB(t)
	f := New(db, http.NotFoundHandler(), ":80", ":8443", StaticCertPaths{})

	req := httptest.NewRequest(http.MethodPost, sessionCreationPath, nil)
	req.SetBasicAuth("admin", "secret")
	req.Host = "gateway.example.com"
	rec := httptest.NewRecorder()

	f.handleHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTemporaryRedirect)
	}
	want := "https://gateway.example.com:8443" + sessionCreationPath
	if got := rec.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func TestHandleHTTPRejectsEverythingElse(t *testing.T) {
	db := newTestDB(t)
	f := New(db, http.NotFoundHandler(), ":80", ":8443", StaticCertPaths{})

	// POST to the session path without credentials: no redirect, falls
	// through to 404 since design/042_CDU_Gateway_HTTP_Front_End.md §4.L gives the HTTP listener no other
	// job than the one redirect case.
	req := httptest.NewRequest(http.MethodPost, sessionCreationPath, nil)
	rec := httptest.NewRecorder()
	f.handleHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unauthenticated POST: status = %d, want 404", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/redfish/v1", nil)
	rec2 := httptest.NewRecorder()
	f.handleHTTP(rec2, req2)
	if rec2.Code != http.StatusNotFound {
		t.Errorf("GET ServiceRoot over plain HTTP: status = %d, want 404", rec2.Code)
	}
}

func TestBuildTLSConfigFallsBackToStaticCertNotFound(t *testing.T) {
	db := newTestDB(t)
	f := New(db, http.NotFoundHandler(), ":80", ":8443", StaticCertPaths{})

	if _, err := f.buildTLSConfig(context.Background()); err == nil {
		t.Fatal("expected an error when neither J nor a static fallback has a certificate")
	}
}

func TestBuildTLSConfigUsesStoredCertificate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cert, key := testCertAndKey(t)
	if err := db.UpsertCertificate(ctx, &models.Certificate{
		Kind:    models.CertificateServer,
		CertPEM: cert,
		KeyPEM:  key,
	}); err != nil {
		t.Fatalf("upsert certificate: %v", err)
	}

	f := New(db, http.NotFoundHandler(), ":80", ":8443", StaticCertPaths{})
	tlsCfg, err := f.buildTLSConfig(ctx)
	if err != nil {
		t.Fatalf("buildTLSConfig: %v", err)
	}
	got, err := tlsCfg.GetCertificate(nil)
	if err != nil {
		t.Fatalf("GetCertificate: %v", err)
	}
	if got == nil {
		t.Fatal("GetCertificate returned nil certificate")
	}
}
