package server

import (
	"errors"
	"net/http"

	"payper/internal/api"
)

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	listings, err := s.catalog.List(r.Context())
	if err != nil {
		s.log().Error("catalog listing failed", "error", err)
		s.writeError(w, r, storeFailure(errors.New(msgDBError)))
		return
	}

	files := make([]api.FileSummary, 0, len(listings))
	for _, l := range listings {
		files = append(files, api.FileSummary{
			ID:        l.ID,
			FileName:  l.FileName,
			Price:     l.Price,
			Size:      l.SizeBytes,
			CreatedAt: l.CreatedAt,
		})
	}

	s.writeJSON(w, http.StatusOK, files)
}
