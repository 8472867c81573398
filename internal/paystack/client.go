package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrRequest is wrapped by every error the processor returns for a request it rejected.
var ErrRequest = errors.New("paystack rejected request")

type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(secretKey, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SecretKey is also the webhook signing secret.
func (c *Client) SecretKey() string { return c.secretKey }

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends a JSON request and decodes the envelope's data into out.
// Charge endpoints answer 400 with a populated data object for declined
// charges, so data is decoded whenever present.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paystack %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	hasData := len(env.Data) > 0 && string(env.Data) != "null"
	if out != nil && hasData {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("paystack %s %s: status %d: %s", method, path, resp.StatusCode, env.Message)
	}
	if !env.Status && !hasData {
		return fmt.Errorf("%w: %s", ErrRequest, env.Message)
	}
	return nil
}

type CardDetails struct {
	Number      string `json:"number"`
	CVV         string `json:"cvv"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
}

type USSD struct {
	Type string `json:"type"`
}

type ChargeRequest struct {
	Email     string         `json:"email"`
	Amount    string         `json:"amount"` // kobo
	Reference string         `json:"reference,omitempty"`
	Card      *CardDetails   `json:"card,omitempty"`
	USSD      *USSD          `json:"ussd,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Charge starts a charge. The returned data's Status says what the caller must do next.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (ChargeData, error) {
	var out ChargeData
	err := c.do(ctx, http.MethodPost, "/charge", req, &out)
	return out, err
}

// SubmitKind names the follow-up a pending charge asked for.
type SubmitKind string

const (
	SubmitOTP   SubmitKind = "otp"
	SubmitPhone SubmitKind = "phone"
	SubmitPIN   SubmitKind = "pin"
)

// Submit continues a pending charge with the value the processor asked for.
func (c *Client) Submit(ctx context.Context, kind SubmitKind, value, reference string) (ChargeData, error) {
	var out ChargeData
	body := map[string]string{string(kind): value, "reference": reference}
	err := c.do(ctx, http.MethodPost, "/charge/submit_"+string(kind), body, &out)
	return out, err
}

type CustomerRequest struct {
	Email     string         `json:"email"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Phone     string         `json:"phone,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (Customer, error) {
	var out Customer
	err := c.do(ctx, http.MethodPost, "/customer", req, &out)
	return out, err
}

// CreateDedicatedAccount requests a virtual account for a customer. Some banks
// assign asynchronously and report through dedicated_account.assigned.
func (c *Client) CreateDedicatedAccount(ctx context.Context, customerCode, preferredBank string) (DedicatedAccount, error) {
	var out DedicatedAccount
	body := map[string]string{"customer": customerCode}
	if preferredBank != "" {
		body["preferred_bank"] = preferredBank
	}
	err := c.do(ctx, http.MethodPost, "/dedicated_account", body, &out)
	return out, err
}
