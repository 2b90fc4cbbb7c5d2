package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

type Payment struct {
	ID              int             `json:"paymentId" db:"paymentId"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Method          string          `json:"paymentMethod" db:"paymentMethod"`
	OrderID         string          `json:"orderId" db:"orderId"`
	ReceiptNumber   *string         `json:"receiptNumber,omitempty" db:"receiptNumber"`
	PhoneNumber     *string         `json:"phoneNumber,omitempty" db:"phoneNumber"`
	TransactionDate *time.Time      `json:"transactionDate,omitempty" db:"transactionDate"`
	Created         time.Time       `json:"paymentDate" db:"paymentDate"`
}

type InsertPaymentOpts struct {
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
	OrderID       string  `json:"orderId"`
}

var InsertPaymentRules = govalidator.MapData{
	"amount":        []string{"required", "positive_amount"},
	"paymentMethod": []string{"required", "in:Cash,Card,Mpesa,Bank"},
	"orderId":       []string{"required"},
}

type GetPaymentsOpts struct {
	Methods []string `schema:"paymentMethod"`
	From    string   `schema:"from"`
	To      string   `schema:"to"`
}

var GetPaymentsRules = govalidator.MapData{
	"paymentMethod": []string{"array_string"},
	"from":          []string{"date_ISO8601"},
	"to":            []string{"date_ISO8601"},
}
