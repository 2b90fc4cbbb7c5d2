package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stockplus/backend/models"
)

type SettlePaymentOpts struct {
	OrderID         string
	Amount          decimal.Decimal
	Method          string
	ReceiptNumber   string
	PhoneNumber     string
	TransactionDate time.Time
}

type Settlement struct {
	Payment        *models.Payment
	AlreadySettled bool
}

// SettlePayment records a payment and marks its order paid in a single
// transaction. A payment whose receipt is already recorded for the order is
// returned as AlreadySettled and nothing is written, so gateway redeliveries
// are safe to process again.
func (db *DB) SettlePayment(ctx context.Context, opts *SettlePaymentOpts) (*Settlement, error) {
	var settlement *Settlement

	err := db.withTx(ctx, func(tx Tx) error {
		order, err := getOrderByIDTx(ctx, tx, opts.OrderID)
		if err != nil {
			return writeFailed(err, "failed getting order %s", opts.OrderID)
		}
		if order == nil {
			return errors.Wrap(ErrOrderNotFound, opts.OrderID)
		}

		if opts.ReceiptNumber != "" {
			existing, err := getPaymentByReceiptTx(ctx, tx, opts.OrderID, opts.ReceiptNumber)
			if err != nil {
				return writeFailed(err, "failed getting payment %s", opts.ReceiptNumber)
			}
			if existing != nil {
				settlement = &Settlement{Payment: existing, AlreadySettled: true}
				return nil
			}
		}

		paymentID, err := insertPaymentTx(ctx, tx, opts)
		if err != nil {
			return err
		}

		if err := markOrderPaidTx(ctx, tx, opts.OrderID); err != nil {
			return err
		}

		payment, err := getPaymentByIDTx(ctx, tx, paymentID)
		if err != nil {
			return writeFailed(err, "failed getting payment %d", paymentID)
		}
		settlement = &Settlement{Payment: payment}
		return nil
	})
	if err == nil {
		return settlement, nil
	}

	// A concurrent delivery of the same receipt won the insert.
	if isDuplicateKey(errors.Cause(err)) {
		existing, getErr := getPaymentByReceiptTx(ctx, db, opts.OrderID, opts.ReceiptNumber)
		if getErr == nil && existing != nil {
			return &Settlement{Payment: existing, AlreadySettled: true}, nil
		}
	}

	if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrWriteFailed) {
		return nil, err
	}
	return nil, writeFailed(err, "failed inserting payment for order %s", opts.OrderID)
}
