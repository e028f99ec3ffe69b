package server

import (
	"net/http"

	"payper/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.Info(r.Context())
	if err != nil {
		s.writeError(w, r, storeFailure(err))
		return
	}

	resp := api.InfoResponse{
		Name:            "payper",
		Version:         s.opts.Version,
		Currency:        s.opts.Gate.Currency,
		ChainID:         s.opts.Gate.ChainID,
		SchemaVersion:   info.SchemaVersion,
		AssetCount:      info.AssetCount,
		RedemptionCount: info.RedemptionCount,
		DBPath:          s.opts.DBPath,
	}

	s.writeJSON(w, http.StatusOK, resp)
}
