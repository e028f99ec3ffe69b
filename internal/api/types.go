package api

import (
	"fmt"
	"time"
)

// ErrorResponse is the standard error shape for API responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// Offer describes one acceptable payment: how much, to whom, in what.
type Offer struct {
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
	Currency  string `json:"currency"`
}

// ChallengeResponse is the 402 payload for a gated asset. The bare
// top-level Amount/Recipient/Currency fields exist only to decode the
// legacy single-offer shape some gateways emit; servers always populate
// Offers.
type ChallengeResponse struct {
	Error        string  `json:"error"`
	FileName     string  `json:"fileName"`
	SellerWallet string  `json:"sellerWallet"`
	FileSize     int64   `json:"fileSize"`
	Offers       []Offer `json:"offers"`

	Amount    string `json:"amount,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// PrimaryOffer returns the authoritative offer: offers[0] when present,
// otherwise the challenge object itself read as a bare offer.
func (c *ChallengeResponse) PrimaryOffer() (Offer, error) {
	if len(c.Offers) > 0 {
		offer := c.Offers[0]
		if offer.Amount == "" || offer.Recipient == "" {
			return Offer{}, fmt.Errorf("challenge offer is incomplete")
		}
		return offer, nil
	}
	if c.Amount == "" || c.Recipient == "" {
		return Offer{}, fmt.Errorf("challenge carries no usable offer")
	}
	return Offer{Amount: c.Amount, Recipient: c.Recipient, Currency: c.Currency}, nil
}

// FileSummary is one public catalog entry.
type FileSummary struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	Price     string    `json:"price"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// PublishResponse acknowledges a successful upload.
type PublishResponse struct {
	Success bool   `json:"success"`
	AssetID string `json:"assetId"`
}

// InfoResponse reports server identity and store counts.
type InfoResponse struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Currency        string `json:"currency"`
	ChainID         int64  `json:"chain_id"`
	SchemaVersion   int    `json:"schema_version"`
	AssetCount      int64  `json:"asset_count"`
	RedemptionCount int64  `json:"redemption_count"`
	DBPath          string `json:"db_path,omitempty"`
}
