package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Public catalog.
	mux.HandleFunc("GET /api/files", s.handleListFiles)

	// Publishing.
	mux.Handle("POST /api/upload", s.withAuth(http.HandlerFunc(s.handleUpload)))

	// Payment-gated download.
	mux.HandleFunc("POST /api/download/{file_id}", s.handleDownload)

	return s.withRequestLogging(mux)
}
