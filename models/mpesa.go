package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

const (
	MpesaRequestPending   = "pending"
	MpesaRequestCompleted = "completed"
	MpesaRequestFailed    = "failed"
)

type STKPushOpts struct {
	Phone   string  `json:"phone"`
	Amount  float64 `json:"amount"`
	OrderID string  `json:"orderId"`
}

var STKPushRules = govalidator.MapData{
	"phone":   []string{"required", "mpesa_phone"},
	"amount":  []string{"required", "positive_amount"},
	"orderId": []string{"required"},
}

// MpesaRequest is the durable trace of a push request sent to the gateway,
// kept until its callback arrives.
type MpesaRequest struct {
	CheckoutRequestID string          `json:"checkoutRequestId" db:"checkoutRequestId"`
	MerchantRequestID string          `json:"merchantRequestId" db:"merchantRequestId"`
	OrderID           string          `json:"orderId" db:"orderId"`
	PhoneNumber       string          `json:"phoneNumber" db:"phoneNumber"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	Status            string          `json:"status" db:"status"`
	ResultCode        *int            `json:"resultCode,omitempty" db:"resultCode"`
	ResultDesc        *string         `json:"resultDesc,omitempty" db:"resultDesc"`
	Created           time.Time       `json:"createdAt" db:"createdAt"`
	Updated           time.Time       `json:"updatedAt" db:"updatedAt"`
}

type OrderHTML struct {
	OrderID       string
	Firstname     string
	Lastname      string
	PaymentMethod string
	Amount        string
	ReceiptNumber string
}
