package paystack

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

const (
	EventChargeSuccess            = "charge.success"
	EventTransferSuccess          = "transfer.success"
	EventTransferFailed           = "transfer.failed"
	EventTransferReversed         = "transfer.reversed"
	EventDedicatedAccountAssigned = "dedicated_account.assigned"
)

// Webhook is the envelope of every delivery; Data is decoded per event.
type Webhook struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Metadata tolerates the processor sending "" or a JSON-encoded string instead of an object.
type Metadata map[string]any

func (m *Metadata) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*m = nil
			return nil
		}
		b = []byte(s)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		*m = nil
		return nil
	}
	*m = raw
	return nil
}

// String returns the metadata value for key if it is a string.
func (m Metadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

type Customer struct {
	Email        string   `json:"email"`
	CustomerCode string   `json:"customer_code"`
	Metadata     Metadata `json:"metadata"`
}

type Authorization struct {
	AuthorizationCode         string `json:"authorization_code"`
	Bin                       string `json:"bin"`
	Last4                     string `json:"last4"`
	ExpMonth                  string `json:"exp_month"`
	ExpYear                   string `json:"exp_year"`
	Channel                   string `json:"channel"`
	CardType                  string `json:"card_type"`
	Bank                      string `json:"bank"`
	Reusable                  bool   `json:"reusable"`
	Signature                 string `json:"signature"`
	ReceiverBankAccountNumber string `json:"receiver_bank_account_number"`
	ReceiverBank              string `json:"receiver_bank"`
}

// ChargeData is the payload of charge.success and of charge API responses.
type ChargeData struct {
	ID            int64         `json:"id"`
	Reference     string        `json:"reference"`
	Status        string        `json:"status"`
	Amount        int64         `json:"amount"` // kobo
	Currency      string        `json:"currency"`
	Channel       string        `json:"channel"`
	DisplayText   string        `json:"display_text"`
	URL           string        `json:"url"`
	USSDCode      string        `json:"ussd_code"`
	Message       string        `json:"message"`
	GatewayResp   string        `json:"gateway_response"`
	Metadata      Metadata      `json:"metadata"`
	Customer      Customer      `json:"customer"`
	Authorization Authorization `json:"authorization"`
}

type Recipient struct {
	RecipientCode string   `json:"recipient_code"`
	Metadata      Metadata `json:"metadata"`
}

type TransferData struct {
	Reference    string    `json:"reference"`
	TransferCode string    `json:"transfer_code"`
	Status       string    `json:"status"`
	Amount       int64     `json:"amount"` // kobo
	Reason       string    `json:"reason"`
	Recipient    Recipient `json:"recipient"`
}

type Bank struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type DedicatedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	Bank          Bank   `json:"bank"`
	Assigned      bool   `json:"assigned"`
}

type DedicatedAccountData struct {
	Customer         Customer         `json:"customer"`
	DedicatedAccount DedicatedAccount `json:"dedicated_account"`
}

// KoboToNaira converts a minor-unit amount to naira.
func KoboToNaira(kobo int64) decimal.Decimal {
	return decimal.New(kobo, -2)
}

// NairaToKobo converts naira to kobo, truncating sub-kobo fractions.
func NairaToKobo(naira decimal.Decimal) int64 {
	return naira.Shift(2).IntPart()
}
