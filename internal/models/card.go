package models

import "time"

// Card is a saved processor authorization. Raw card data is never stored.
type Card struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	AuthorizationCode string    `json:"-"`
	Signature         string    `json:"-"`
	Last4             string    `json:"last4"`
	Bin               string    `json:"bin"`
	CardType          string    `json:"card_type"`
	Bank              string    `json:"bank"`
	ExpMonth          string    `json:"exp_month"`
	ExpYear           string    `json:"exp_year"`
	Reusable          bool      `json:"reusable"`
	Email             string    `json:"email"`
	CreatedAt         time.Time `json:"created_at"`
}

type AccountStatus string

const (
	AccountPending  AccountStatus = "pending"
	AccountAssigned AccountStatus = "assigned"
)

// VirtualAccount is the dedicated bank account a user deposits into by transfer.
type VirtualAccount struct {
	UserID        string        `json:"user_id"`
	CustomerCode  string        `json:"customer_code"`
	AccountNumber string        `json:"account_number,omitempty"`
	AccountName   string        `json:"account_name,omitempty"`
	BankName      string        `json:"bank_name,omitempty"`
	Status        AccountStatus `json:"status"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
