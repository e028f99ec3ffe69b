package api

import (
	"encoding/json"
	"testing"
)

func TestPrimaryOfferFromOffersArray(t *testing.T) {
	payload := []byte(`{
		"error": "Payment Required",
		"fileName": "report.pdf",
		"sellerWallet": "0xAAAA567890123456789012345678901234567890",
		"fileSize": 1000,
		"offers": [{"amount": "5", "recipient": "0xAAAA567890123456789012345678901234567890", "currency": "ETH"}]
	}`)

	var challenge ChallengeResponse
	if err := json.Unmarshal(payload, &challenge); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	offer, err := challenge.PrimaryOffer()
	if err != nil {
		t.Fatalf("PrimaryOffer: %v", err)
	}
	if offer.Amount != "5" || offer.Currency != "ETH" {
		t.Fatalf("unexpected offer %+v", offer)
	}
}

func TestPrimaryOfferLegacyBareShape(t *testing.T) {
	payload := []byte(`{
		"error": "Payment Required",
		"amount": "2.5",
		"recipient": "0xBBBB567890123456789012345678901234567890"
	}`)

	var challenge ChallengeResponse
	if err := json.Unmarshal(payload, &challenge); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	offer, err := challenge.PrimaryOffer()
	if err != nil {
		t.Fatalf("PrimaryOffer: %v", err)
	}
	if offer.Amount != "2.5" || offer.Recipient != "0xBBBB567890123456789012345678901234567890" {
		t.Fatalf("unexpected offer %+v", offer)
	}
}

func TestPrimaryOfferRejectsEmptyChallenge(t *testing.T) {
	var challenge ChallengeResponse
	if _, err := challenge.PrimaryOffer(); err == nil {
		t.Fatal("challenge without any offer must be rejected")
	}

	challenge.Offers = []Offer{{Currency: "ETH"}}
	if _, err := challenge.PrimaryOffer(); err == nil {
		t.Fatal("incomplete offers[0] must be rejected")
	}
}
