package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"payper/internal/api"
	"payper/internal/gate"
)

const proofJSONMaxBody = 64 << 10 // 64 KiB

// handleDownload drives the gate state machine for one request: no proof
// yields the priced challenge, a proof is verified against the ledger and
// on success the asset bytes are streamed.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	assetID := strings.TrimSpace(r.PathValue("file_id"))
	if assetID == "" {
		s.writeError(w, r, notFoundCode(errors.New(msgFileNotFound), ErrCodeAssetNotFound))
		return
	}

	proof := extractProof(r)
	if proof == "" {
		s.issueChallenge(w, r, assetID)
		return
	}

	content, err := s.gate.Redeem(r.Context(), assetID, proof)
	if err != nil {
		s.writeGateError(w, r, err)
		return
	}
	defer content.Reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", content.FileName))
	if content.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.SizeBytes, 10))
	}
	if _, err := io.Copy(w, content.Reader); err != nil {
		// Headers are out; all we can do is log the broken stream.
		s.log().Error("asset stream interrupted", "asset_id", assetID, "error", err)
	}
}

func (s *Server) issueChallenge(w http.ResponseWriter, r *http.Request, assetID string) {
	challenge, err := s.gate.Challenge(r.Context(), assetID)
	if err != nil {
		s.writeGateError(w, r, err)
		return
	}

	offers := make([]api.Offer, 0, len(challenge.Offers))
	for _, offer := range challenge.Offers {
		offers = append(offers, api.Offer{
			Amount:    offer.Amount,
			Recipient: offer.Recipient,
			Currency:  offer.Currency,
		})
	}

	s.log().Debug("issuing payment challenge", "asset_id", assetID)
	s.writeJSON(w, http.StatusPaymentRequired, api.ChallengeResponse{
		Error:        msgPaymentRequired,
		FileName:     challenge.FileName,
		SellerWallet: challenge.SellerWallet,
		FileSize:     challenge.FileSize,
		Offers:       offers,
	})
}

func (s *Server) writeGateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, gate.ErrAssetNotFound):
		s.writeError(w, r, notFoundCode(errors.New(msgFileNotFound), ErrCodeAssetNotFound))
	case errors.Is(err, gate.ErrVerificationFailed):
		s.writeError(w, r, badRequestCode(errors.New(msgVerificationFailed), ErrCodeVerificationFailed))
	case errors.Is(err, gate.ErrStorage):
		s.writeError(w, r, storeFailure(errors.New(msgDBError)))
	default:
		s.writeError(w, r, internalError(errors.New(msgDBError)))
	}
}

// extractProof pulls the payment proof from the X-Payment header, falling
// back to a txHash field in a JSON body. A malformed body is treated as
// no proof, matching how clients probe for the challenge.
func extractProof(r *http.Request) string {
	if proof := strings.TrimSpace(r.Header.Get(api.PaymentHeader)); proof != "" {
		return proof
	}
	if r.Body == nil {
		return ""
	}

	var payload struct {
		TxHash string `json:"txHash"`
	}
	body := io.LimitReader(r.Body, proofJSONMaxBody)
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.TxHash)
}
