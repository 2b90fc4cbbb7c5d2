package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stockplus/backend/config"
	"github.com/stockplus/backend/db"
	"github.com/stockplus/backend/helpers"
	"github.com/stockplus/backend/middlewares"
	"github.com/stockplus/backend/models"
	"github.com/stockplus/backend/mpesa"
	"github.com/thedevsaddam/govalidator"
)

// maxCallbackBody bounds what the gateway may post to the callback route.
const maxCallbackBody = 1 << 20

// InitiateSTKPush asks the gateway to prompt the customer's phone for an
// order payment.
func InitiateSTKPush(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("InitiateSTKPush")
	w.GetRequestLanguage(r)

	var opts models.STKPushOpts
	v := govalidator.New(govalidator.Options{
		Request: r,
		Rules:   models.STKPushRules,
		Data:    &opts,
	})
	if errs := v.ValidateJSON(); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	order, err := ctx.DB.GetOrderByID(r.Context(), opts.OrderID)
	if err != nil {
		w.LogWarn(err, "failed getting order, continuing without pre-check")
	}
	if order != nil && order.IsPaid() {
		w.Write(http.StatusBadRequest, nil, nil, middlewares.Responses.OrderAlreadyPaid)
		return
	}

	amount := decimal.NewFromFloat(opts.Amount)
	response, err := ctx.Mpesa.InitiateSTKPush(r.Context(), opts.Phone, amount, opts.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, mpesa.ErrValidation):
			w.WriteJSON(http.StatusBadRequest, nil, err, err.Error())
		case errors.Is(err, mpesa.ErrAuth), errors.Is(err, mpesa.ErrInitiation):
			w.WriteJSON(http.StatusBadGateway, nil, err, err.Error())
		default:
			w.WriteJSON(http.StatusBadGateway, nil, err, middlewares.Responses.GatewayUnavailable.In(w.Language))
		}
		return
	}

	// The phone already passed NormalizePhone inside InitiateSTKPush.
	phone, _ := mpesa.NormalizePhone(opts.Phone)
	request := &models.MpesaRequest{
		CheckoutRequestID: response.CheckoutRequestID,
		MerchantRequestID: response.MerchantRequestID,
		OrderID:           opts.OrderID,
		PhoneNumber:       phone,
		Amount:            amount,
		Status:            models.MpesaRequestPending,
	}
	if err := ctx.DB.InsertMpesaRequest(r.Context(), request); err != nil {
		w.LogWarn(err, "failed recording pending mpesa request")
	}

	w.WriteJSON(http.StatusOK, response, nil, "")
}

// MpesaCallback receives the asynchronous outcome of a push request. The
// gateway redelivers on any non-2xx answer, so only retryable failures get
// one.
func MpesaCallback(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("MpesaCallback")
	orderID := mux.Vars(r)["orderId"]
	w.Logger = w.Logger.WithField("order_id", orderID)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	defer r.Body.Close()
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "failed reading body")
		return
	}

	result, err := mpesa.ParseCallback(body)
	if err != nil {
		w.LogWarn(err, "discarding malformed callback")
		w.Write(http.StatusOK, nil, nil, middlewares.Responses.CallbackAccepted)
		return
	}
	w.Logger = w.Logger.WithField("checkout_request_id", result.CheckoutRequestID)

	if !result.Paid {
		closeMpesaRequest(r.Context(), ctx, w, orderID, result, models.MpesaRequestFailed)
		w.LogInfo(result.ResultDesc, "payment not completed")
		w.Write(http.StatusOK, nil, nil, middlewares.Responses.CallbackAccepted)
		return
	}

	settlement, err := ctx.DB.SettlePayment(r.Context(), &db.SettlePaymentOpts{
		OrderID:         orderID,
		Amount:          result.Amount,
		Method:          db.ConstPaymentMethods.Mpesa,
		ReceiptNumber:   result.ReceiptNumber,
		PhoneNumber:     result.PhoneNumber,
		TransactionDate: result.TransactionDate,
	})
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			w.Write(http.StatusNotFound, nil, err, middlewares.Responses.OrderNotFound)
			return
		}
		w.Write(http.StatusServiceUnavailable, nil, err, middlewares.Responses.CallbackRetry)
		return
	}

	closeMpesaRequest(r.Context(), ctx, w, orderID, result, models.MpesaRequestCompleted)

	if settlement.AlreadySettled {
		w.LogInfo(result.ReceiptNumber, "payment already settled")
	} else {
		go sendPaymentReceipt(ctx, w.Logger, settlement.Payment)
	}

	w.Write(http.StatusOK, nil, nil, middlewares.Responses.CallbackAccepted)
}

// closeMpesaRequest records the outcome on the pending request. A missing
// request is only logged; the payment itself is what matters.
func closeMpesaRequest(reqCtx context.Context, ctx *config.AppContext, w *middlewares.ResponseWriter, orderID string, result *mpesa.CallbackResult, status string) {
	found, err := ctx.DB.CloseMpesaRequest(reqCtx, &db.CloseMpesaRequestOpts{
		CheckoutRequestID: result.CheckoutRequestID,
		OrderID:           orderID,
		Status:            status,
		ResultCode:        result.ResultCode,
		ResultDesc:        result.ResultDesc,
	})
	if err != nil {
		w.LogWarn(err, "failed closing mpesa request")
		return
	}
	if !found {
		w.LogWarn(nil, "no pending mpesa request for callback")
	}
}

// sendPaymentReceipt mails the order owner. It runs detached from the
// request, so it uses its own context.
func sendPaymentReceipt(ctx *config.AppContext, logger *log.Entry, payment *models.Payment) {
	if ctx.SMTP == nil || payment == nil {
		return
	}
	logger = logger.WithField("payment_id", payment.ID)

	bg := context.Background()
	order, err := ctx.DB.GetOrderByID(bg, payment.OrderID)
	if err != nil || order == nil {
		logger.WithError(err).Error("failed getting order for receipt")
		return
	}
	user, err := ctx.DB.GetUserByID(bg, order.UserID)
	if err != nil || user == nil {
		logger.WithError(err).Error("failed getting user for receipt")
		return
	}
	if user.Email == "" {
		return
	}

	receipt := ""
	if payment.ReceiptNumber != nil {
		receipt = *payment.ReceiptNumber
	}

	ed := &helpers.EmailData{
		EmailTo:      user.Email,
		NameTo:       user.Firstname,
		EmailFrom:    ctx.Config.Mail.EmailFrom,
		NameFrom:     ctx.Config.Mail.NameFrom,
		Subject:      ctx.Config.Mail.PaymentSuccess.Subject,
		TemplatePath: fmt.Sprintf("%s%s/%s", ctx.Config.Mail.Folder, ctx.Config.Mail.Path, ctx.Config.Mail.PaymentSuccess.Template),
		SMTP:         ctx.SMTP,
	}
	err = ed.SendEmail(models.OrderHTML{
		OrderID:       order.ID,
		Firstname:     user.Firstname,
		Lastname:      user.Lastname,
		PaymentMethod: payment.Method,
		Amount:        payment.Amount.StringFixed(2),
		ReceiptNumber: receipt,
	})
	if err != nil {
		logger.WithError(err).Error("failed sending email")
		return
	}
	logger.Info("success sending email")
}
