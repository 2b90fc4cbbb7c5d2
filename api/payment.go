package api

import (
	"net/http"

	"github.com/gorilla/schema"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stockplus/backend/config"
	"github.com/stockplus/backend/db"
	"github.com/stockplus/backend/middlewares"
	"github.com/stockplus/backend/models"
	"github.com/thedevsaddam/govalidator"
)

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// InsertPayment records a payment taken at the counter and marks the order
// paid.
func InsertPayment(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("InsertPayment")
	w.GetRequestLanguage(r)

	var opts models.InsertPaymentOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertPaymentRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	if errs := v.ValidateJSON(); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	order, err := ctx.DB.GetOrderByID(r.Context(), opts.OrderID)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}
	if order == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.OrderNotFound)
		return
	}
	if order.IsPaid() {
		w.Write(http.StatusBadRequest, nil, nil, middlewares.Responses.OrderAlreadyPaid)
		return
	}

	settlement, err := ctx.DB.SettlePayment(r.Context(), &db.SettlePaymentOpts{
		OrderID: opts.OrderID,
		Amount:  decimal.NewFromFloat(opts.Amount),
		Method:  opts.PaymentMethod,
	})
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			w.Write(http.StatusNotFound, nil, err, middlewares.Responses.OrderNotFound)
			return
		}
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	go sendPaymentReceipt(ctx, w.Logger, settlement.Payment)

	w.WriteJSON(http.StatusOK, settlement.Payment, nil, "")
}

func GetOrderPayments(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("GetOrderPayments")
	w.GetRequestLanguage(r)

	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.GetPaymentsRules,
	}
	v := govalidator.New(validatorOpts)
	if errs := v.Validate(); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	var opts models.GetPaymentsOpts
	if err := queryDecoder.Decode(&opts, r.URL.Query()); err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, err.Error())
		return
	}

	order, ok := getVisibleOrder(ctx, w, r)
	if !ok {
		return
	}

	payments, err := ctx.DB.GetPaymentsByOrderID(r.Context(), order.ID, &opts)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.WriteJSON(http.StatusOK, payments, nil, "")
}
