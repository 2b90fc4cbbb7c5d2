package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stockplus/backend/models"
)

type PaymentStorage interface {
	SettlePayment(ctx context.Context, opts *SettlePaymentOpts) (*Settlement, error)
	GetPaymentsByOrderID(ctx context.Context, orderID string, opts *models.GetPaymentsOpts) ([]models.Payment, error)
}

const (
	insertPayment = `
	INSERT INTO payments (
		amount,
		paymentMethod,
		orderId,
		receiptNumber,
		phoneNumber,
		transactionDate
	) VALUES (
		:amount,
		:paymentMethod,
		:orderId,
		:receiptNumber,
		:phoneNumber,
		:transactionDate
	)
	`

	selectPayment = `
	SELECT
		payments.paymentId,
		payments.amount,
		payments.paymentMethod,
		payments.orderId,
		payments.receiptNumber,
		payments.phoneNumber,
		payments.transactionDate,
		payments.paymentDate
	FROM
		payments
	`

	getPaymentByID = selectPayment + `
	WHERE
		payments.paymentId = ?
	`

	getPaymentByReceipt = selectPayment + `
	WHERE
		payments.orderId = ? AND
		payments.receiptNumber = ?
	`
)

func getPaymentByIDTx(ctx context.Context, c conn, paymentID int64) (*models.Payment, error) {
	var payment models.Payment
	if err := c.GetContext(ctx, &payment, c.Rebind(getPaymentByID), paymentID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// getPaymentByReceiptTx returns nil without error when no payment carries the
// receipt.
func getPaymentByReceiptTx(ctx context.Context, c conn, orderID, receiptNumber string) (*models.Payment, error) {
	var payment models.Payment
	if err := c.GetContext(ctx, &payment, c.Rebind(getPaymentByReceipt), orderID, receiptNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func insertPaymentTx(ctx context.Context, tx Tx, opts *SettlePaymentOpts) (int64, error) {
	args := map[string]interface{}{
		"amount":          opts.Amount,
		"paymentMethod":   opts.Method,
		"orderId":         opts.OrderID,
		"receiptNumber":   nullString(opts.ReceiptNumber),
		"phoneNumber":     nullString(opts.PhoneNumber),
		"transactionDate": nullTime(opts.TransactionDate),
	}

	result, err := tx.NamedExecContext(ctx, insertPayment, args)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

func (db *DB) GetPaymentsByOrderID(ctx context.Context, orderID string, opts *models.GetPaymentsOpts) ([]models.Payment, error) {
	where := []string{"payments.orderId = :orderId"}
	args := map[string]interface{}{
		"orderId": orderID,
	}

	if opts != nil {
		if len(opts.Methods) > 0 {
			where = append(where, "payments.paymentMethod IN (:methods)")
			args["methods"] = opts.Methods
		}
		if opts.From != "" {
			where = append(where, "payments.paymentDate >= :from")
			args["from"] = opts.From
		}
		if opts.To != "" {
			to, err := time.Parse(ConstLayoutDate, opts.To)
			if err != nil {
				return nil, err
			}
			where = append(where, "payments.paymentDate < :to")
			args["to"] = to.AddDate(0, 0, 1).Format(ConstLayoutDate)
		}
	}

	query, params, err := sqlx.Named(selectPayment+" WHERE "+strings.Join(where, " AND ")+" ORDER BY payments.paymentId", args)
	if err != nil {
		return nil, err
	}
	query, params, err = sqlx.In(query, params...)
	if err != nil {
		return nil, err
	}

	payments := []models.Payment{}
	if err := db.SelectContext(ctx, &payments, db.Rebind(query), params...); err != nil {
		return nil, err
	}
	return payments, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
