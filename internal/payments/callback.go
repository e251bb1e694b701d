package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CallbackPayload is the body Daraja posts to the callback URL
type CallbackPayload struct {
	Body struct {
		StkCallback *StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// CallbackAck is the reply Daraja expects. It is sent for every callback.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

var errMalformedCallback = errors.New("malformed callback")

// ParseCallback decodes a raw callback body
func ParseCallback(raw []byte) (*StkCallback, error) {
	var payload CallbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedCallback, err)
	}
	cb := payload.Body.StkCallback
	if cb == nil || strings.TrimSpace(cb.CheckoutRequestID) == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", errMalformedCallback)
	}
	return cb, nil
}

// Succeeded reports whether the customer approved and paid
func (cb *StkCallback) Succeeded() bool {
	return cb.ResultCode == 0
}

// Receipt is the M-Pesa receipt number of a successful payment
func (cb *StkCallback) Receipt() string {
	v := cb.lookup("MpesaReceiptNumber")
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Amount is the amount the customer paid, zero when absent
func (cb *StkCallback) Amount() decimal.Decimal {
	switch v := cb.lookup("Amount").(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err == nil {
			return d
		}
	}
	return decimal.Zero
}

// PhoneNumber is the paying MSISDN. Daraja sends it as a JSON number.
func (cb *StkCallback) PhoneNumber() string {
	switch v := cb.lookup("PhoneNumber").(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', 0, 64)
	case string:
		return v
	}
	return ""
}

func (cb *StkCallback) lookup(name string) interface{} {
	if cb.CallbackMetadata == nil {
		return nil
	}
	for _, item := range cb.CallbackMetadata.Item {
		if item.Name == name {
			return item.Value
		}
	}
	return nil
}
