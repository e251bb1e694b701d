package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fredrickBO/TwendeBus/internal/shared/apperrors"
	"github.com/fredrickBO/TwendeBus/internal/shared/config"
	"github.com/fredrickBO/TwendeBus/internal/shared/constants"
	"github.com/fredrickBO/TwendeBus/pkg/cache"
	"github.com/fredrickBO/TwendeBus/pkg/logger"

	"github.com/shopspring/decimal"
)

// Gateway starts customer-approved charges. The outcome arrives later on the
// callback endpoint, correlated by CheckoutRequestID.
type Gateway interface {
	InitiateCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

type ChargeRequest struct {
	Amount      decimal.Decimal
	PhoneNumber string
	Reference   string
	Description string
}

type ChargeResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	CustomerMessage   string
}

// Daraja expects timestamps in Kenyan local time
var eat = time.FixedZone("EAT", 3*60*60)

// MpesaClient talks to the Daraja STK push API
type MpesaClient struct {
	cfg        config.MpesaConfig
	httpClient *http.Client
	cache      cache.Service
	log        *logger.Logger
	now        func() time.Time
}

func NewMpesaClient(cfg config.MpesaConfig, cacheService cache.Service) *MpesaClient {
	if cacheService == nil {
		cacheService = cache.NewService(nil)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MpesaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cacheService,
		log:        logger.GetDefault(),
		now:        time.Now,
	}
}

func (c *MpesaClient) configured() bool {
	return c.cfg.ConsumerKey != "" && c.cfg.ConsumerSecret != "" &&
		c.cfg.ShortCode != "" && c.cfg.Passkey != "" && c.cfg.CallbackURL != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type stkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

// InitiateCharge sends an STK push prompt to the customer's phone
func (c *MpesaClient) InitiateCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if !c.configured() {
		return nil, apperrors.Gateway(nil, "M-Pesa is not configured")
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().In(eat).Format("20060102150405")
	body := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp)),
		Timestamp:         timestamp,
		TransactionType:   c.cfg.TransactionType,
		Amount:            req.Amount.Ceil().IntPart(),
		PartyA:            req.PhoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       req.PhoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  truncate(req.Reference, 12),
		TransactionDesc:   truncate(req.Description, 13),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to encode STK push")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/mpesa/stkpush/v1/processrequest"), bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Internal(err, "failed to build STK push request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	var out stkPushResponse
	status, err := c.do(httpReq, &out)
	if err != nil {
		return nil, apperrors.Gateway(err, "M-Pesa request failed")
	}
	if status == http.StatusUnauthorized {
		// a revoked token must not be served again from cache
		_ = c.cache.Delete(ctx, constants.BuildMpesaTokenKey(c.cfg.ShortCode))
	}
	if status != http.StatusOK || out.ResponseCode != "0" {
		msg := firstNonEmpty(out.ErrorMessage, out.ResponseDescription, http.StatusText(status))
		return nil, apperrors.Gateway(nil, "M-Pesa rejected the payment request: %s", msg)
	}
	if out.CheckoutRequestID == "" {
		return nil, apperrors.Gateway(nil, "M-Pesa response carried no checkout request id")
	}

	c.log.Info("stk push sent",
		slog.String("checkout_request_id", out.CheckoutRequestID),
		slog.String("reference", req.Reference),
	)
	return &ChargeResult{
		MerchantRequestID: out.MerchantRequestID,
		CheckoutRequestID: out.CheckoutRequestID,
		CustomerMessage:   out.CustomerMessage,
	}, nil
}

// accessToken returns a cached OAuth token, fetching a new one when the
// cached one is missing or close to expiry.
func (c *MpesaClient) accessToken(ctx context.Context) (string, error) {
	key := constants.BuildMpesaTokenKey(c.cfg.ShortCode)

	var token string
	if err := c.cache.Get(ctx, key, &token); err == nil && token != "" {
		return token, nil
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		c.log.Warn("mpesa token cache read failed", slog.String("error", err.Error()))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/oauth/v1/generate?grant_type=client_credentials"), nil)
	if err != nil {
		return "", apperrors.Internal(err, "failed to build token request")
	}
	httpReq.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	var out tokenResponse
	status, err := c.do(httpReq, &out)
	if err != nil {
		return "", apperrors.Gateway(err, "M-Pesa authentication failed")
	}
	if status != http.StatusOK || out.AccessToken == "" {
		return "", apperrors.Gateway(nil, "M-Pesa authentication failed: %s", http.StatusText(status))
	}

	expiresIn, err := strconv.Atoi(out.ExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 3599
	}
	ttl := time.Duration(expiresIn)*time.Second - constants.TTL_TOKEN_SAFETY_GAP
	if ttl > 0 {
		if err := c.cache.Set(ctx, key, out.AccessToken, ttl); err != nil {
			c.log.Warn("mpesa token cache write failed", slog.String("error", err.Error()))
		}
	}
	return out.AccessToken, nil
}

// do sends req and decodes a JSON body into out when there is one
func (c *MpesaClient) do(req *http.Request, out interface{}) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode == http.StatusOK {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *MpesaClient) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return "unknown error"
}
