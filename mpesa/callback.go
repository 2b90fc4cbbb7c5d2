package mpesa

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	ItemAmount          = "Amount"
	ItemReceiptNumber   = "MpesaReceiptNumber"
	ItemTransactionDate = "TransactionDate"
	ItemPhoneNumber     = "PhoneNumber"

	resultCodeSuccess = 0
)

type CallbackBody struct {
	Body struct {
		STKCallback *STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        json.RawMessage   `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata"`
}

type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

type CallbackItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// Lookup finds an item by name. Items without a value count as absent.
func (m *CallbackMetadata) Lookup(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, item := range m.Item {
		if item.Name != name {
			continue
		}
		value, ok := rawString(item.Value)
		if !ok {
			return "", false
		}
		return value, true
	}
	return "", false
}

// CallbackResult is a parsed gateway notification. Paid is set only for a
// successful payment, and only then are the payment fields filled.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string

	Paid            bool
	Amount          decimal.Decimal
	ReceiptNumber   string
	PhoneNumber     string
	TransactionDate time.Time
}

func ParseCallback(body []byte) (*CallbackResult, error) {
	var callback CallbackBody
	if err := json.Unmarshal(body, &callback); err != nil {
		return nil, errors.Wrapf(ErrMalformedPayload, "failed unmarshaling body: %s", err)
	}

	stk := callback.Body.STKCallback
	if stk == nil {
		return nil, errors.Wrap(ErrMalformedPayload, "missing stkCallback")
	}

	code, ok := rawString(stk.ResultCode)
	if !ok {
		return nil, errors.Wrap(ErrMalformedPayload, "missing ResultCode")
	}
	resultCode, err := strconv.Atoi(code)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedPayload, "invalid ResultCode %q", code)
	}

	result := &CallbackResult{
		MerchantRequestID: stk.MerchantRequestID,
		CheckoutRequestID: stk.CheckoutRequestID,
		ResultCode:        resultCode,
		ResultDesc:        stk.ResultDesc,
	}

	if stk.CallbackMetadata == nil || resultCode != resultCodeSuccess {
		return result, nil
	}

	values := map[string]string{}
	for _, name := range []string{ItemAmount, ItemReceiptNumber, ItemPhoneNumber, ItemTransactionDate} {
		value, ok := stk.CallbackMetadata.Lookup(name)
		if !ok || value == "" {
			return nil, errors.Wrapf(ErrMalformedPayload, "missing metadata item %s", name)
		}
		values[name] = value
	}

	amount, err := decimal.NewFromString(values[ItemAmount])
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedPayload, "invalid %s %q", ItemAmount, values[ItemAmount])
	}
	transactionDate, err := time.ParseInLocation(TimestampLayout, values[ItemTransactionDate], EAT)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedPayload, "invalid %s %q", ItemTransactionDate, values[ItemTransactionDate])
	}

	result.Paid = true
	result.Amount = amount
	result.ReceiptNumber = values[ItemReceiptNumber]
	result.PhoneNumber = values[ItemPhoneNumber]
	result.TransactionDate = transactionDate

	return result, nil
}

// rawString renders a JSON scalar as text. Numbers keep their literal digits
// so long phone numbers and dates are not rounded through float64.
func rawString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	}
	if raw[0] == '{' || raw[0] == '[' {
		return "", false
	}
	return string(raw), true
}
