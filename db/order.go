package db

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/stockplus/backend/models"
)

type OrderStorage interface {
	InsertOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	GetOrderByID(ctx context.Context, orderID string) (*models.Order, error)
}

const (
	insertOrder = `
	INSERT INTO orders (
		orderId,
		orderDate,
		amount,
		userId,
		paymentStatus
	) VALUES (
		:orderId,
		:orderDate,
		:amount,
		:userId,
		:paymentStatus
	)
	`

	getOrderByID = `
	SELECT
		orders.orderId,
		orders.orderDate,
		orders.amount,
		orders.userId,
		orders.paymentStatus,
		orders.createdAt,
		orders.updatedAt
	FROM
		orders
	WHERE
		orders.orderId = ?
	`

	markOrderPaid = `
	UPDATE
		orders
	SET
		paymentStatus = :paymentStatus,
		updatedAt = CURRENT_TIMESTAMP
	WHERE
		orderId = :orderId
	`
)

func (db *DB) InsertOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.OrderStatusUnpaid
	}

	args := map[string]interface{}{
		"orderId":       order.ID,
		"orderDate":     order.OrderDate.Format(ConstLayoutDate),
		"amount":        order.Amount,
		"userId":        order.UserID,
		"paymentStatus": order.PaymentStatus,
	}

	if _, err := db.NamedExecContext(ctx, insertOrder, args); err != nil {
		if isDuplicateKey(err) {
			return nil, errors.Wrap(ErrOrderExists, order.ID)
		}
		return nil, writeFailed(err, "failed inserting order %s", order.ID)
	}

	return db.GetOrderByID(ctx, order.ID)
}

// GetOrderByID returns nil without error when the order does not exist.
func (db *DB) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	return getOrderByIDTx(ctx, db, orderID)
}

func getOrderByIDTx(ctx context.Context, c conn, orderID string) (*models.Order, error) {
	var order models.Order
	if err := c.GetContext(ctx, &order, c.Rebind(getOrderByID), orderID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func markOrderPaidTx(ctx context.Context, tx Tx, orderID string) error {
	args := map[string]interface{}{
		"paymentStatus": models.OrderStatusPaid,
		"orderId":       orderID,
	}

	if _, err := tx.NamedExecContext(ctx, markOrderPaid, args); err != nil {
		return writeFailed(err, "failed updating order %s", orderID)
	}
	return nil
}
