package pluggy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://api.pluggy.ai"
	defaultTimeout = 180 * time.Second // Large transaction fetches can be slow

	authPath         = "/auth"
	connectTokenPath = "/connect_token"
	itemsPath        = "/items"
	accountsPath     = "/accounts"
	transactionsPath = "/transactions"
	billsPath        = "/bills"

	// API keys issued by /auth are valid for 2 hours; refresh early.
	apiKeyTTL = 90 * time.Minute

	transactionPageSize = 500
)

// Client handles communication with the Pluggy Open Finance API. Requests
// authenticate with a short-lived API key obtained from client credentials;
// the key is cached and refreshed transparently.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string

	mu           sync.Mutex
	apiKey       string
	apiKeyIssued time.Time
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Pluggy API client. baseURL may be empty to use the
// production endpoint.
func NewClient(clientID, clientSecret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type authRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type authResponse struct {
	APIKey string `json:"apiKey"`
}

// validAPIKey returns a usable API key, authenticating when the cached one
// is missing or stale.
func (c *Client) validAPIKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.apiKey != "" && time.Since(c.apiKeyIssued) < apiKeyTTL {
		return c.apiKey, nil
	}

	body, err := json.Marshal(authRequest{ClientID: c.clientID, ClientSecret: c.clientSecret})
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp.StatusCode, respBody)
	}

	var auth authResponse
	if err := json.Unmarshal(respBody, &auth); err != nil {
		return "", fmt.Errorf("failed to unmarshal auth response: %w", err)
	}
	if auth.APIKey == "" {
		return "", fmt.Errorf("auth response carried no API key")
	}

	c.apiKey = auth.APIKey
	c.apiKeyIssued = time.Now()
	return c.apiKey, nil
}

func apiError(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		return fmt.Errorf("API request failed with status %d: %s", status, string(body))
	}
	return fmt.Errorf("API error (status %d): %s", status, errResp.Message)
}

// doJSON issues an authenticated request and decodes the response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody, out interface{}) error {
	apiKey, err := c.validAPIKey(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if reqBody != nil {
		raw, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// Item represents one authenticated bank login session at the provider
type Item struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	Connector *Connector `json:"connector,omitempty"`
	CreatedAt string     `json:"createdAt"`
	UpdatedAt string     `json:"updatedAt"`
}

// Connector describes the institution behind an item
type Connector struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// BankName returns the institution name, or a placeholder when absent
func (i *Item) BankName() string {
	if i.Connector == nil || i.Connector.Name == "" {
		return "Instituição desconhecida"
	}
	return i.Connector.Name
}

// AccountResponse represents the API response for account data
type AccountResponse struct {
	Total   int       `json:"total"`
	Results []Account `json:"results"`
}

// Account represents an account from the Pluggy API
type Account struct {
	ID            string      `json:"id"`
	ItemID        string      `json:"itemId"`
	Type          string      `json:"type"` // "BANK" or "CREDIT"
	Subtype       string      `json:"subtype"`
	Name          string      `json:"name"`
	MarketingName string      `json:"marketingName"`
	CurrencyCode  string      `json:"currencyCode"`
	BalanceString string      `json:"balance"` // API returns balance as string
	CreditData    *CreditData `json:"creditData,omitempty"`
	CreatedAt     string      `json:"createdAt"`
	UpdatedAt     string      `json:"updatedAt"`
}

// IsCreditCard reports whether this account is a credit card instrument
func (a *Account) IsCreditCard() bool {
	return a.Type == "CREDIT"
}

// GetBalance returns the balance as a float64
func (a *Account) GetBalance() (float64, error) {
	if a.BalanceString == "" {
		return 0, nil
	}
	balance, err := strconv.ParseFloat(a.BalanceString, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse balance '%s': %w", a.BalanceString, err)
	}
	return balance, nil
}

// CreditData represents credit card-specific account data
type CreditData struct {
	Brand                      string   `json:"brand"`
	Level                      string   `json:"level"`
	CreditLimitString          *string  `json:"creditLimit"`
	AvailableCreditLimitString *string  `json:"availableCreditLimit"`
	BalanceCloseDay            *int     `json:"balanceCloseDay"`
	BalanceDueDay              *int     `json:"balanceDueDay"`
	MinimumPayment             *float64 `json:"minimumPayment"`
}

// GetCreditLimit returns the credit limit as a float64 if present
func (c *CreditData) GetCreditLimit() (*float64, error) {
	return parseOptionalFloat(c.CreditLimitString, "creditLimit")
}

// GetAvailableCreditLimit returns the available limit as a float64 if present
func (c *CreditData) GetAvailableCreditLimit() (*float64, error) {
	return parseOptionalFloat(c.AvailableCreditLimitString, "availableCreditLimit")
}

func parseOptionalFloat(s *string, field string) (*float64, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s '%s': %w", field, *s, err)
	}
	return &v, nil
}

// TransactionResponse represents the API response for transaction data
type TransactionResponse struct {
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
	Page       int           `json:"page"`
	Results    []Transaction `json:"results"`
}

// Transaction represents a transaction from the Pluggy API
type Transaction struct {
	ID            string  `json:"id"`
	AccountID     string  `json:"accountId"`
	Description   string  `json:"description"`
	Category      *string `json:"category"`
	CurrencyCode  string  `json:"currencyCode"`
	AmountString  string  `json:"amount"`  // API returns amount as string
	BalanceString *string `json:"balance"` // Running balance, may be absent
	DateString    string  `json:"date"`    // ISO 8601
	Type          string  `json:"type"`    // "DEBIT" or "CREDIT"
	Status        string  `json:"status"`  // "PENDING" or "POSTED"
}

// GetAmount returns the amount as a float64
func (t *Transaction) GetAmount() (float64, error) {
	if t.AmountString == "" {
		return 0, nil
	}
	amount, err := strconv.ParseFloat(t.AmountString, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount '%s': %w", t.AmountString, err)
	}
	return amount, nil
}

// GetBalance returns the running balance as a float64 if present
func (t *Transaction) GetBalance() (*float64, error) {
	return parseOptionalFloat(t.BalanceString, "balance")
}

// GetDate parses and returns the transaction date
func (t *Transaction) GetDate() (*time.Time, error) {
	if t.DateString == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, t.DateString)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, t.DateString)
		if err != nil {
			parsed, err = time.Parse("2006-01-02", t.DateString)
			if err != nil {
				return nil, fmt.Errorf("failed to parse date '%s': %w", t.DateString, err)
			}
		}
	}
	return &parsed, nil
}

// BillResponse represents the API response for credit card bills
type BillResponse struct {
	Total   int    `json:"total"`
	Results []Bill `json:"results"`
}

// Bill represents a credit card bill from the Pluggy API
type Bill struct {
	ID                   string  `json:"id"`
	AccountID            string  `json:"accountId"`
	DueDateString        string  `json:"dueDate"`
	CloseDateString      *string `json:"closeDate"`
	TotalAmountString    string  `json:"totalAmount"`
	OpenAmountString     *string `json:"openAmount"`
	PaidAmountString     *string `json:"paidAmount"`
	MinimumPaymentString *string `json:"minimumPayment"`
	Status               string  `json:"status"` // OPEN, CLOSED, PAID, OVERDUE, UPCOMING
}

// GetTotalAmount returns the total amount as a float64
func (b *Bill) GetTotalAmount() (float64, error) {
	if b.TotalAmountString == "" {
		return 0, nil
	}
	amount, err := strconv.ParseFloat(b.TotalAmountString, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse totalAmount '%s': %w", b.TotalAmountString, err)
	}
	return amount, nil
}

// GetOpenAmount returns the open amount as a float64 if present
func (b *Bill) GetOpenAmount() (*float64, error) {
	return parseOptionalFloat(b.OpenAmountString, "openAmount")
}

// GetPaidAmount returns the paid amount as a float64 if present
func (b *Bill) GetPaidAmount() (*float64, error) {
	return parseOptionalFloat(b.PaidAmountString, "paidAmount")
}

// GetMinimumPayment returns the minimum payment as a float64 if present
func (b *Bill) GetMinimumPayment() (*float64, error) {
	return parseOptionalFloat(b.MinimumPaymentString, "minimumPayment")
}

// GetDueDate parses and returns the due date
func (b *Bill) GetDueDate() (*time.Time, error) {
	if b.DueDateString == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, b.DueDateString)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", b.DueDateString)
		if err != nil {
			return nil, fmt.Errorf("failed to parse dueDate '%s': %w", b.DueDateString, err)
		}
	}
	return &parsed, nil
}

// GetCloseDate parses and returns the close date if present
func (b *Bill) GetCloseDate() (*time.Time, error) {
	if b.CloseDateString == nil || *b.CloseDateString == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, *b.CloseDateString)
	if err != nil {
		parsed, err = time.Parse("2006-01-02", *b.CloseDateString)
		if err != nil {
			return nil, fmt.Errorf("failed to parse closeDate '%s': %w", *b.CloseDateString, err)
		}
	}
	return &parsed, nil
}

// ConnectTokenResponse carries the short-lived token handed to the widget
type ConnectTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// GetItem fetches a single item by its ID
func (c *Client) GetItem(ctx context.Context, itemID string) (*Item, error) {
	var item Item
	if err := c.doJSON(ctx, http.MethodGet, itemsPath+"/"+itemID, nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes an item from the provider, revoking the bank session
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	return c.doJSON(ctx, http.MethodDelete, itemsPath+"/"+itemID, nil, nil, nil)
}

// ListAccounts fetches all accounts belonging to an item
func (c *Client) ListAccounts(ctx context.Context, itemID string) (*AccountResponse, error) {
	q := url.Values{}
	q.Set("itemId", itemID)

	var resp AccountResponse
	if err := c.doJSON(ctx, http.MethodGet, accountsPath, q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTransactions fetches transactions for an account, walking all pages.
// from may be empty to fetch the provider's full history.
func (c *Client) ListTransactions(ctx context.Context, accountID string, from string) ([]Transaction, error) {
	var all []Transaction
	page := 1
	for {
		q := url.Values{}
		q.Set("accountId", accountID)
		q.Set("pageSize", strconv.Itoa(transactionPageSize))
		q.Set("page", strconv.Itoa(page))
		if from != "" {
			q.Set("from", from)
		}

		var resp TransactionResponse
		if err := c.doJSON(ctx, http.MethodGet, transactionsPath, q, nil, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Results...)

		if resp.TotalPages == 0 || page >= resp.TotalPages {
			return all, nil
		}
		page++
	}
}

// ListBills fetches all bills for a credit card account
func (c *Client) ListBills(ctx context.Context, accountID string) (*BillResponse, error) {
	q := url.Values{}
	q.Set("accountId", accountID)

	var resp BillResponse
	if err := c.doJSON(ctx, http.MethodGet, billsPath, q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateConnectToken issues a short-lived token for the connect widget.
// itemID may be empty for a fresh connection, or set to re-authenticate an
// existing item.
func (c *Client) CreateConnectToken(ctx context.Context, itemID string) (*ConnectTokenResponse, error) {
	body := map[string]string{}
	if itemID != "" {
		body["itemId"] = itemID
	}

	var resp ConnectTokenResponse
	if err := c.doJSON(ctx, http.MethodPost, connectTokenPath, nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
