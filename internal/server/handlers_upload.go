package server

import (
	"errors"
	"net/http"
	"strings"

	"payper/internal/api"
	"payper/internal/gate"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.Uploads.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.Uploads.MultipartMaxMemory); err != nil {
		s.writeError(w, r, classifyMultipartError(err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, badRequestCode(errors.New(msgMissingFields), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	price := strings.TrimSpace(r.FormValue("price"))
	wallet := strings.TrimSpace(r.FormValue("wallet"))
	if price == "" || wallet == "" {
		s.writeError(w, r, badRequestCode(errors.New(msgMissingFields), ErrCodeMissingRequired))
		return
	}

	asset, err := s.publisher.Publish(r.Context(), gate.PublishInput{
		FileName:     header.Filename,
		Price:        price,
		SellerWallet: wallet,
	}, file)
	if err != nil {
		s.writePublishError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.PublishResponse{Success: true, AssetID: asset.ID})
}

func (s *Server) writePublishError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gate.ErrInvalidInput):
		s.writeError(w, r, badRequestCode(err, publishErrorCode(err)))
	case errors.Is(err, gate.ErrStorage):
		s.writeError(w, r, makeAPIError(http.StatusInternalServerError, "internal", ErrCodeUploadFailed, errors.New(msgUploadFailed)))
	default:
		s.writeError(w, r, internalError(errors.New(msgUploadFailed)))
	}
}

func publishErrorCode(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "wallet"):
		return ErrCodeInvalidWallet
	case strings.Contains(msg, "amount"), strings.Contains(msg, "price"):
		return ErrCodeInvalidPrice
	default:
		return ErrCodeInvalidArgument
	}
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(errors.New("request body too large"), ErrCodeRequestTooLarge)
	}
	return badRequestCode(errors.New(msgMissingFields), ErrCodeInvalidArgument)
}
