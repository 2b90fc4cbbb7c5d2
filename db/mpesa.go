package db

import (
	"context"
	"database/sql"

	"github.com/stockplus/backend/models"
)

type MpesaStorage interface {
	InsertMpesaRequest(ctx context.Context, request *models.MpesaRequest) error
	GetMpesaRequest(ctx context.Context, checkoutRequestID string) (*models.MpesaRequest, error)
	CloseMpesaRequest(ctx context.Context, opts *CloseMpesaRequestOpts) (bool, error)
}

type CloseMpesaRequestOpts struct {
	CheckoutRequestID string
	OrderID           string
	Status            string
	ResultCode        int
	ResultDesc        string
}

const (
	insertMpesaRequest = `
	INSERT INTO mpesa_requests (
		checkoutRequestId,
		merchantRequestId,
		orderId,
		phoneNumber,
		amount,
		status
	) VALUES (
		:checkoutRequestId,
		:merchantRequestId,
		:orderId,
		:phoneNumber,
		:amount,
		:status
	)
	`

	getMpesaRequest = `
	SELECT
		mpesa_requests.checkoutRequestId,
		mpesa_requests.merchantRequestId,
		mpesa_requests.orderId,
		mpesa_requests.phoneNumber,
		mpesa_requests.amount,
		mpesa_requests.status,
		mpesa_requests.resultCode,
		mpesa_requests.resultDesc,
		mpesa_requests.createdAt,
		mpesa_requests.updatedAt
	FROM
		mpesa_requests
	WHERE
		mpesa_requests.checkoutRequestId = ?
	`

	closeMpesaRequest = `
	UPDATE
		mpesa_requests
	SET
		status = :status,
		resultCode = :resultCode,
		resultDesc = :resultDesc,
		updatedAt = CURRENT_TIMESTAMP
	WHERE
		checkoutRequestId = :checkoutRequestId AND
		orderId = :orderId AND
		status = :pending
	`
)

func (db *DB) InsertMpesaRequest(ctx context.Context, request *models.MpesaRequest) error {
	if request.Status == "" {
		request.Status = models.MpesaRequestPending
	}

	args := map[string]interface{}{
		"checkoutRequestId": request.CheckoutRequestID,
		"merchantRequestId": request.MerchantRequestID,
		"orderId":           request.OrderID,
		"phoneNumber":       request.PhoneNumber,
		"amount":            request.Amount,
		"status":            request.Status,
	}

	if _, err := db.NamedExecContext(ctx, insertMpesaRequest, args); err != nil {
		return writeFailed(err, "failed inserting mpesa request %s", request.CheckoutRequestID)
	}
	return nil
}

func (db *DB) GetMpesaRequest(ctx context.Context, checkoutRequestID string) (*models.MpesaRequest, error) {
	var request models.MpesaRequest
	if err := db.GetContext(ctx, &request, db.Rebind(getMpesaRequest), checkoutRequestID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// CloseMpesaRequest records the callback outcome on a pending request. It
// reports false when no pending request matched, which covers both an unknown
// request and a redelivered callback.
func (db *DB) CloseMpesaRequest(ctx context.Context, opts *CloseMpesaRequestOpts) (bool, error) {
	args := map[string]interface{}{
		"status":            opts.Status,
		"resultCode":        opts.ResultCode,
		"resultDesc":        opts.ResultDesc,
		"checkoutRequestId": opts.CheckoutRequestID,
		"orderId":           opts.OrderID,
		"pending":           models.MpesaRequestPending,
	}

	result, err := db.NamedExecContext(ctx, closeMpesaRequest, args)
	if err != nil {
		return false, writeFailed(err, "failed closing mpesa request %s", opts.CheckoutRequestID)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}
