package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/thedevsaddam/govalidator"
)

const (
	OrderStatusUnpaid = "unpaid"
	OrderStatusPaid   = "paid"
)

type InsertOrderOpts struct {
	OrderID   string  `json:"orderId"`
	OrderDate string  `json:"orderDate"`
	Amount    float64 `json:"amount"`
	UserID    int     `json:"userId"`
}

var InsertOrderRules = govalidator.MapData{
	"orderDate": []string{"required", "date_ISO8601"},
	"amount":    []string{"required", "positive_amount"},
	"userId":    []string{"required", "numeric"},
}

type Order struct {
	ID            string          `json:"orderId" db:"orderId"`
	OrderDate     time.Time       `json:"orderDate" db:"orderDate"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	UserID        int             `json:"userId" db:"userId"`
	PaymentStatus string          `json:"paymentStatus" db:"paymentStatus"`
	Created       time.Time       `json:"createdAt" db:"createdAt"`
	Updated       time.Time       `json:"updatedAt" db:"updatedAt"`
	Payments      []Payment       `json:"payments,omitempty" db:"-"`
}

func (o *Order) IsPaid() bool {
	return o.PaymentStatus == OrderStatusPaid
}
