// Package server exposes the marketplace over HTTP: catalog listing,
// publishing, and the payment-gated download endpoint.
package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"payper/internal/blobstore"
	"payper/internal/gate"
	"payper/internal/ledger"
	"payper/internal/store"
)

const (
	apiTokenEnvKey    = "PAYPER_API_TOKEN"
	allowRemoteEnvKey = "PAYPER_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
)

// Options bundle the collaborators and policy for a server.
type Options struct {
	Store            store.AssetStore
	Blobs            blobstore.Store
	Ledger           ledger.Client
	Gate             gate.Options
	MinConfirmations uint64
	Version          string
	DBPath           string
	Uploads          UploadOptions
}

// UploadOptions bound multipart upload handling.
type UploadOptions struct {
	MaxUploadBytes     int64
	MultipartMaxMemory int64
}

// Server wraps HTTP handlers for the payper API.
type Server struct {
	addr      string
	store     store.AssetStore
	gate      *gate.Gate
	publisher *gate.Publisher
	catalog   *gate.Catalog
	opts      Options
	logger    *slog.Logger
	apiToken  string
}

// New creates a new server instance.
func New(addr string, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Uploads.MaxUploadBytes <= 0 {
		opts.Uploads.MaxUploadBytes = 100 << 20
	}
	if opts.Uploads.MultipartMaxMemory <= 0 {
		opts.Uploads.MultipartMaxMemory = 8 << 20
	}
	if opts.Gate.Currency == "" {
		opts.Gate.Currency = "ETH"
	}

	policy := ledger.PolicyForDepth(opts.MinConfirmations)

	return &Server{
		addr:      addr,
		store:     opts.Store,
		gate:      gate.New(opts.Store, opts.Blobs, opts.Ledger, policy, opts.Gate, logger),
		publisher: gate.NewPublisher(opts.Store, opts.Blobs, logger),
		catalog:   gate.NewCatalog(opts.Store),
		opts:      opts,
		logger:    logger,
		apiToken:  strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
	}
}

// Handler returns the server's HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
