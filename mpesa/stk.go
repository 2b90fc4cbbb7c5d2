package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	CountryCode             = "254"
	TransactionTypePayBill  = "CustomerPayBillOnline"
	TimestampLayout         = "20060102150405"
	defaultAccountReference = "Stock Plus"
	defaultTransactionDesc  = "Stock Plus"
	responseCodeAccepted    = "0"
)

// EAT is the zone the gateway reads timestamps in.
var EAT = time.FixedZone("EAT", 3*60*60)

var (
	nationalPhone = regexp.MustCompile(`^[17][0-9]{8}$`)
	orderIDFormat = regexp.MustCompile(`^[A-Za-z0-9._~-]{1,64}$`)
)

type STKPushRequest struct {
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

// STKPushResponse is the gateway acknowledgement. The request identifiers are
// provisional until the callback arrives.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// NormalizePhone returns the national part of a Kenyan mobile number. It
// accepts the bare 9 digits or the 0, 254 and +254 prefixed forms.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	switch {
	case strings.HasPrefix(phone, "+"+CountryCode):
		phone = strings.TrimPrefix(phone, "+"+CountryCode)
	case strings.HasPrefix(phone, CountryCode) && len(phone) == len(CountryCode)+9:
		phone = strings.TrimPrefix(phone, CountryCode)
	case strings.HasPrefix(phone, "0") && len(phone) == 10:
		phone = strings.TrimPrefix(phone, "0")
	}
	if !nationalPhone.MatchString(phone) {
		return "", errors.Wrapf(ErrValidation, "invalid phone number %q", phone)
	}
	return phone, nil
}

func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.Wrap(ErrValidation, "amount must be positive")
	}
	if !amount.Equal(amount.Truncate(0)) {
		return errors.Wrap(ErrValidation, "amount must be a whole number")
	}
	return nil
}

func ValidateOrderID(orderID string) error {
	if !orderIDFormat.MatchString(orderID) {
		return errors.Wrapf(ErrValidation, "invalid order id %q", orderID)
	}
	return nil
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortCode, passKey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passKey + timestamp))
}

func Timestamp(t time.Time) string {
	return t.In(EAT).Format(TimestampLayout)
}

// NewSTKPushRequest validates the input and builds the signed payload. No
// network call is made.
func (c *Client) NewSTKPushRequest(phone string, amount decimal.Decimal, orderID string) (*STKPushRequest, error) {
	national, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	if err := ValidateOrderID(orderID); err != nil {
		return nil, err
	}

	timestamp := Timestamp(c.now())
	party := CountryCode + national

	request := &STKPushRequest{
		BusinessShortCode: c.conf.ShortCode,
		Password:          Password(c.conf.ShortCode, c.conf.PassKey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   TransactionTypePayBill,
		Amount:            amount.IntPart(),
		PartyA:            party,
		PartyB:            c.conf.ShortCode,
		PhoneNumber:       party,
		CallBackURL:       c.CallbackURL(orderID),
		AccountReference:  c.conf.AccountReference,
		TransactionDesc:   c.conf.TransactionDesc,
	}
	if request.AccountReference == "" {
		request.AccountReference = defaultAccountReference
	}
	if request.TransactionDesc == "" {
		request.TransactionDesc = defaultTransactionDesc
	}

	return request, nil
}

// InitiateSTKPush asks the gateway to prompt the payer's phone. It fetches its
// own token and is never retried, so a payer is prompted at most once per
// call.
func (c *Client) InitiateSTKPush(ctx context.Context, phone string, amount decimal.Decimal, orderID string) (*STKPushResponse, error) {
	request, err := c.NewSTKPushRequest(phone, amount, orderID)
	if err != nil {
		return nil, err
	}

	token, err := c.GenerateToken(ctx)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	responseBody, err := c.do(ctx, http.MethodPost, pathSTKPush, header, request, ErrInitiation)
	if err != nil {
		return nil, err
	}

	var response STKPushResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, errors.Wrapf(ErrInitiation, "failed unmarshaling push response: %s", err)
	}

	if response.ResponseCode != responseCodeAccepted {
		return nil, errors.Wrapf(ErrInitiation, "push request not accepted: %s %s", response.ResponseCode, response.ResponseDescription)
	}

	return &response, nil
}
