package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DarajaConfig holds the STK push credentials and endpoints.
type DarajaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	BaseURL        string // e.g. https://api.safaricom.co.ke
	Timeout        time.Duration
}

// DarajaClient talks to the real provider. It carries no simulation
// branches; use SandboxClient for that.
type DarajaClient struct {
	cfg  DarajaConfig
	http *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewDarajaClient(cfg DarajaConfig) (*DarajaClient, error) {
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" || cfg.ShortCode == "" || cfg.Passkey == "" {
		return nil, fmt.Errorf("missing daraja credentials")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &DarajaClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (d *DarajaClient) token(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.accessToken != "" && time.Now().Before(d.tokenExpiry) {
		return d.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		d.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(d.cfg.ConsumerKey, d.cfg.ConsumerSecret)

	resp, err := d.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode token: %v", ErrUnavailable, err)
	}

	d.accessToken = body.AccessToken
	// Tokens last ~1h; refresh a minute early.
	d.tokenExpiry = time.Now().Add(58 * time.Minute)
	return d.accessToken, nil
}

// password builds the base64(shortcode+passkey+timestamp) credential the
// STK endpoints require.
func (d *DarajaClient) password(ts string) string {
	return base64.StdEncoding.EncodeToString([]byte(d.cfg.ShortCode + d.cfg.Passkey + ts))
}

func (d *DarajaClient) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	tok, err := d.token(ctx)
	if err != nil {
		return nil, 0, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return body, resp.StatusCode, nil
}

func (d *DarajaClient) InitiateSTKPush(ctx context.Context, phone string, amount decimal.Decimal, reference string) (*InitiateResult, error) {
	ts := time.Now().Format("20060102150405")

	payload := map[string]any{
		"BusinessShortCode": d.cfg.ShortCode,
		"Password":          d.password(ts),
		"Timestamp":         ts,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount.StringFixed(0),
		"PartyA":            phone,
		"PartyB":            d.cfg.ShortCode,
		"PhoneNumber":       phone,
		"CallBackURL":       d.cfg.CallbackURL,
		"AccountReference":  reference,
		"TransactionDesc":   reference,
	}

	body, code, err := d.post(ctx, "/mpesa/stkpush/v1/processrequest", payload)
	if err != nil {
		return nil, err
	}
	if code >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: stkpush returned %d", ErrUnavailable, code)
	}

	var resp struct {
		MerchantRequestID   string `json:"MerchantRequestID"`
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		CustomerMessage     string `json:"CustomerMessage"`
		ErrorMessage        string `json:"errorMessage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode stkpush response: %v", ErrUnavailable, err)
	}

	if resp.ResponseCode != "0" || resp.CheckoutRequestID == "" {
		msg := resp.ResponseDescription
		if msg == "" {
			msg = resp.ErrorMessage
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	return &InitiateResult{
		CheckoutRequestID:   resp.CheckoutRequestID,
		MerchantRequestID:   resp.MerchantRequestID,
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
		CustomerMessage:     resp.CustomerMessage,
	}, nil
}

// pendingErrorCode is returned by the query endpoint while the push is
// still being processed on the handset.
const pendingErrorCode = "500.001.1001"

func (d *DarajaClient) QueryStatus(ctx context.Context, checkoutRequestID string) (*QueryResult, error) {
	ts := time.Now().Format("20060102150405")

	payload := map[string]any{
		"BusinessShortCode": d.cfg.ShortCode,
		"Password":          d.password(ts),
		"Timestamp":         ts,
		"CheckoutRequestID": checkoutRequestID,
	}

	body, code, err := d.post(ctx, "/mpesa/stkpushquery/v1/query", payload)
	if err != nil {
		return &QueryResult{Status: StatusUnknown}, err
	}

	var resp struct {
		ResponseCode string `json:"ResponseCode"`
		ResultCode   string `json:"ResultCode"`
		ResultDesc   string `json:"ResultDesc"`
		ErrorCode    string `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return &QueryResult{Status: StatusUnknown, Raw: body},
			fmt.Errorf("%w: decode query response: %v", ErrUnavailable, err)
	}

	// The query API reports "still processing" as an error payload.
	if resp.ErrorCode == pendingErrorCode {
		return &QueryResult{
			Status:            StatusPending,
			ResultCode:        resp.ErrorCode,
			ResultDescription: resp.ErrorMessage,
			Raw:               body,
		}, nil
	}
	if code >= http.StatusInternalServerError || (resp.ErrorCode != "" && resp.ResultCode == "") {
		return &QueryResult{Status: StatusUnknown, Raw: body},
			fmt.Errorf("%w: query returned %d (%s)", ErrUnavailable, code, resp.ErrorMessage)
	}

	return &QueryResult{
		Status:            statusFromResultCode(resp.ResultCode),
		ResultCode:        resp.ResultCode,
		ResultDescription: resp.ResultDesc,
		Raw:               body,
	}, nil
}

// Provider result codes: 0 success, 1032 cancelled by user, everything
// else a failure.
func statusFromResultCode(code string) Status {
	switch code {
	case "0":
		return StatusSuccess
	case "1032":
		return StatusCancelled
	case "":
		return StatusUnknown
	default:
		return StatusFailed
	}
}
