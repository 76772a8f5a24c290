package cinetpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BilMam/soccer-spot-reserve-sub002/pkg/config"
	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
)

// Status is the provider-side transaction status reported by the check
// endpoint. The webhook body may claim anything; only this value is trusted.
type Status string

const (
	StatusAccepted Status = "ACCEPTED"
	StatusRefused  Status = "REFUSED"
	StatusPending  Status = "PENDING"
)

const defaultTimeout = 10 * time.Second

// Client talks to the CinetPay checkout and transfer APIs.
type Client struct {
	baseURL         string
	transferBaseURL string
	apiKey          string
	siteID          string
	transferLogin   string
	transferSecret  string
	httpClient      *http.Client
}

// New builds a CinetPay client with bounded request timeouts.
func New(cfg config.CinetPayConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cinetpay base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		transferBaseURL: strings.TrimRight(cfg.TransferBaseURL, "/"),
		apiKey:          cfg.APIKey,
		siteID:          cfg.SiteID,
		transferLogin:   cfg.TransferLogin,
		transferSecret:  cfg.TransferSecret,
		httpClient:      &http.Client{Timeout: timeout},
	}, nil
}

type checkRequest struct {
	APIKey        string `json:"apikey"`
	SiteID        string `json:"site_id"`
	TransactionID string `json:"transaction_id"`
}

type checkResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status   string `json:"status"`
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// CheckTransaction fetches the authoritative status for a transaction from the
// provider's own status-check endpoint. Transport failures and timeouts come
// back as retryable verification errors.
func (c *Client) CheckTransaction(ctx context.Context, transactionID string) (Status, error) {
	if transactionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	payload := checkRequest{APIKey: c.apiKey, SiteID: c.siteID, TransactionID: transactionID}
	var parsed checkResponse
	if err := c.postJSON(ctx, c.baseURL+"/payment/check", payload, &parsed); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeVerification, err, "check transaction")
	}

	switch strings.ToUpper(parsed.Data.Status) {
	case string(StatusAccepted):
		return StatusAccepted, nil
	case string(StatusRefused), "FAILED", "CANCELLED":
		return StatusRefused, nil
	default:
		// WAITING_FOR_CUSTOMER and any unrecognized value stay pending.
		return StatusPending, nil
	}
}

// TransferRequest describes an outbound mobile-money transfer.
type TransferRequest struct {
	Phone               string
	Amount              int64
	Currency            string
	ClientTransactionID string
	Description         string
}

// TransferResult carries the provider transfer reference on success.
type TransferResult struct {
	TransferID string
}

type transferRequestBody struct {
	Login               string `json:"login"`
	Secret              string `json:"secret"`
	Phone               string `json:"prefix_phone"`
	Amount              int64  `json:"amount"`
	Currency            string `json:"currency"`
	ClientTransactionID string `json:"client_transaction_id"`
	Description         string `json:"description"`
}

type transferResponseBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TransactionID string `json:"transaction_id"`
		Treatment     string `json:"treatment_status"`
	} `json:"data"`
}

// Transfer sends funds to the given mobile-money contact. A non-success
// provider code is a dependency error the caller records on the payout row.
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	if req.Phone == "" {
		return TransferResult{}, pkgerrors.New(pkgerrors.CodePrecondition, "payout phone is required")
	}
	if req.Amount <= 0 {
		return TransferResult{}, pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}

	payload := transferRequestBody{
		Login:               c.transferLogin,
		Secret:              c.transferSecret,
		Phone:               req.Phone,
		Amount:              req.Amount,
		Currency:            req.Currency,
		ClientTransactionID: req.ClientTransactionID,
		Description:         req.Description,
	}
	var parsed transferResponseBody
	if err := c.postJSON(ctx, c.transferBaseURL+"/transfer/money", payload, &parsed); err != nil {
		return TransferResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute transfer")
	}
	if parsed.Code != "0" && !strings.EqualFold(parsed.Code, "OPERATION_SUCCES") {
		return TransferResult{}, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("transfer rejected: %s %s", parsed.Code, parsed.Message))
	}
	return TransferResult{TransferID: parsed.Data.TransactionID}, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
