package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/lithammer/shortuuid/v3"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stockplus/backend/config"
	"github.com/stockplus/backend/db"
	"github.com/stockplus/backend/middlewares"
	"github.com/stockplus/backend/models"
	"github.com/stockplus/backend/mpesa"
	"github.com/thedevsaddam/govalidator"
)

func InsertOrder(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("InsertOrder")
	w.GetRequestLanguage(r)

	var opts models.InsertOrderOpts
	validatorOpts := govalidator.Options{
		Request: r,
		Rules:   models.InsertOrderRules,
		Data:    &opts,
	}
	v := govalidator.New(validatorOpts)
	if errs := v.ValidateJSON(); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	if opts.OrderID == "" {
		opts.OrderID = shortuuid.New()
	} else if err := mpesa.ValidateOrderID(opts.OrderID); err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, err.Error())
		return
	}

	orderDate, err := time.Parse(db.ConstLayoutDate, opts.OrderDate)
	if err != nil {
		w.WriteJSON(http.StatusBadRequest, nil, err, "invalid order date")
		return
	}

	user, err := ctx.DB.GetUserByID(r.Context(), opts.UserID)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}
	if user == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.UserNotFound)
		return
	}

	order, err := ctx.DB.InsertOrder(r.Context(), &models.Order{
		ID:        opts.OrderID,
		OrderDate: orderDate,
		Amount:    decimal.NewFromFloat(opts.Amount),
		UserID:    opts.UserID,
	})
	if err != nil {
		if errors.Is(err, db.ErrOrderExists) {
			w.Write(http.StatusConflict, nil, err, middlewares.Responses.OrderAlreadyExists)
			return
		}
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}

	w.WriteJSON(http.StatusOK, order, nil, "")
}

func GetOrder(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) {
	w.StartLogger("GetOrder")
	w.GetRequestLanguage(r)

	order, ok := getVisibleOrder(ctx, w, r)
	if !ok {
		return
	}

	payments, err := ctx.DB.GetPaymentsByOrderID(r.Context(), order.ID, nil)
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return
	}
	order.Payments = payments

	w.WriteJSON(http.StatusOK, order, nil, "")
}

// getVisibleOrder loads the order named in the path and writes the error
// response itself when the caller cannot have it.
func getVisibleOrder(ctx *config.AppContext, w *middlewares.ResponseWriter, r *http.Request) (*models.Order, bool) {
	order, err := ctx.DB.GetOrderByID(r.Context(), mux.Vars(r)["orderId"])
	if err != nil {
		w.Write(http.StatusInternalServerError, nil, err, middlewares.Responses.InternalServerError)
		return nil, false
	}
	if order == nil {
		w.Write(http.StatusNotFound, nil, nil, middlewares.Responses.OrderNotFound)
		return nil, false
	}
	if !canSeeOrder(middlewares.GetUser(r.Context()), order) {
		w.Write(http.StatusForbidden, nil, nil, middlewares.Responses.InvalidRoles)
		return nil, false
	}
	return order, true
}
