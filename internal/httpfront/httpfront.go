// Package httpfront implements the dual HTTP/HTTPS front end (component L):
// an HTTP listener that only ever answers with a redirect-to-HTTPS for
// session creation, and an HTTPS listener serving the full Redfish surface
// with its server certificate sourced from the accounts/sessions/certs
// store (falling back to static files)
// (design/042_CDU_Gateway_HTTP_Front_End.md §4.L).
package httpfront

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dexatek/cdu-gateway/internal/database"
	"github.com/dexatek/cdu-gateway/pkg/models"
)

// sessionCreationPath is the one resource the plain-HTTP listener redirects
// instead of rejecting outright (design/042_CDU_Gateway_HTTP_Front_End.md §4.L: "if the request is a POST
// /redfish/v1/SessionService/Sessions with Basic auth, it returns 307").
const sessionCreationPath = "/redfish/v1/SessionService/Sessions"

// listenerTimeouts are the http.Server field values applied to every
// listener this package starts.
const (
	readTimeout  = 30 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 120 * time.Second
)

// StaticCertPaths names the fallback certificate/key files used when
// component J holds no server certificate row (design/042_CDU_Gateway_HTTP_Front_End.md §4.L: "falling back
// to static file paths when rows are empty").
type StaticCertPaths struct {
	CertFile string
	KeyFile  string
}

// Front owns the HTTP and HTTPS listeners. Both are started by Run and
// stopped together by Shutdown (design/045_CDU_Gateway_Concurrency_Model.md §5: "1 HTTP
// listener goroutine, 1 HTTPS listener goroutine").
type Front struct {
	db     *database.DB
	static StaticCertPaths

	httpAddr  string
	httpsAddr string

	httpServer  *http.Server
	httpsServer *http.Server
}

// New builds a Front serving redfishHandler over HTTPS on httpsAddr, with a
// redirect-only listener on httpAddr. db supplies the server certificate,
// root trust anchor, and SecurityPolicy row; static is consulted when db
// holds no certificate yet.
func New(db *database.DB, redfishHandler http.Handler, httpAddr, httpsAddr string, static StaticCertPaths) *Front {
	f := &Front{db: db, static: static, httpAddr: httpAddr, httpsAddr: httpsAddr}

	f.httpServer = &http.Server{
		Addr:         httpAddr,
		Handler:      http.HandlerFunc(f.handleHTTP),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	f.httpsServer = &http.Server{
		Addr:         httpsAddr,
		Handler:      redfishHandler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return f
}

// handleHTTP implements the plain-HTTP listener's one special case: a
// Basic-authenticated POST to the session-creation resource is redirected
// to the HTTPS listener instead of being served or rejected. Everything
// else gets a plain 404, since design/042_CDU_Gateway_HTTP_Front_End.md §4.L gives the HTTP listener no
// other job ("HTTPS-only session creation").
func (f *Front) handleHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && r.URL.Path == sessionCreationPath {
		if _, _, ok := r.BasicAuth(); ok {
			target := "https://" + hostWithoutPort(r.Host) + portSuffix(f.httpsAddr) + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusTemporaryRedirect)
			return
		}
	}
	http.NotFound(w, r)
}

// hostWithoutPort strips a :port suffix from host, if present, so the
// redirect target can carry the HTTPS listener's own port instead.
func hostWithoutPort(host string) string {
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
		if host[i] == ']' {
			break
		}
	}
	return host
}

// portSuffix renders addr's port as ":port", or "" for the default HTTPS
// port so the redirect URL stays canonical.
func portSuffix(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			if addr[i+1:] == "443" {
				return ""
			}
			return addr[i:]
		}
	}
	return ""
}

// Run starts both listeners in their own goroutines and blocks until ctx
// is cancelled, then shuts both down gracefully. errs receives any
// listener startup failure (other than the expected http.ErrServerClosed).
func (f *Front) Run(ctx context.Context, errs chan<- error) {
	tlsConfig, err := f.buildTLSConfig(ctx)
	if err != nil {
		errs <- fmt.Errorf("httpfront: building TLS config: %w", err)
		return
	}
	f.httpsServer.TLSConfig = tlsConfig

	go func() {
		slog.Info("httpfront: HTTP listener starting", "addr", f.httpAddr)
		if err := f.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("httpfront: HTTP listener: %w", err)
		}
	}()

	go func() {
		slog.Info("httpfront: HTTPS listener starting", "addr", f.httpsAddr)
		// Cert/key paths are ignored when TLSConfig.GetCertificate is set;
		// ListenAndServeTLS still requires non-empty arguments.
		if err := f.httpsServer.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("httpfront: HTTPS listener: %w", err)
		}
	}()

	<-ctx.Done()
	f.Shutdown()
}

// Shutdown gracefully stops both listeners by calling server.Shutdown(ctx)
// on each in turn.
func (f *Front) Shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := f.httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("httpfront: HTTP listener forced shutdown", "error", err)
	}
	if err := f.httpsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("httpfront: HTTPS listener forced shutdown", "error", err)
	}
}

// buildTLSConfig loads the server certificate (from J, falling back to
// static files) and, when SecurityPolicy.VerifyCertificate is set, the
// root trust anchor for client-certificate verification (design/042_CDU_Gateway_HTTP_Front_End.md §4.L).
// The server certificate is resolved on every handshake via
// GetCertificate so a certificate rotated through the Redfish
// TrustedCertificates/HTTPS-Certificates resource takes effect without a
// listener restart.
func (f *Front) buildTLSConfig(ctx context.Context) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			return f.loadServerCertificate(context.Background())
		},
	}

	policy, err := f.db.GetSecurityPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading security policy: %w", err)
	}
	if policy != nil && policy.VerifyCertificate {
		pool, err := f.loadRootPool(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading root trust anchor: %w", err)
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}

func (f *Front) loadServerCertificate(ctx context.Context) (*tls.Certificate, error) {
	row, err := f.db.GetCertificate(ctx, models.CertificateServer)
	if err != nil {
		return nil, err
	}
	if row != nil && row.CertPEM != "" && row.KeyPEM != "" {
		cert, err := tls.X509KeyPair([]byte(row.CertPEM), []byte(row.KeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parsing stored server certificate: %w", err)
		}
		return &cert, nil
	}

	if f.static.CertFile == "" || f.static.KeyFile == "" {
		return nil, errors.New("no server certificate in store and no static fallback configured")
	}
	cert, err := tls.LoadX509KeyPair(f.static.CertFile, f.static.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading static fallback certificate: %w", err)
	}
	return &cert, nil
}

func (f *Front) loadRootPool(ctx context.Context) (*x509.CertPool, error) {
	row, err := f.db.GetCertificate(ctx, models.CertificateRoot)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	if row != nil && row.CertPEM != "" {
		if !pool.AppendCertsFromPEM([]byte(row.CertPEM)) {
			return nil, errors.New("stored root certificate is not valid PEM")
		}
		return pool, nil
	}

	if f.static.CertFile == "" {
		return nil, errors.New("no root certificate in store and no static fallback configured")
	}
	pem, err := os.ReadFile(f.static.CertFile)
	if err != nil {
		return nil, fmt.Errorf("reading static fallback root certificate: %w", err)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("static fallback root certificate is not valid PEM")
	}
	return pool, nil
}
