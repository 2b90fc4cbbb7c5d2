package api

import (
	"net/http"
	"net/url"

	"github.com/stockplus/backend/config"
	"github.com/stockplus/backend/db"
	"github.com/stockplus/backend/middlewares"
	"github.com/stockplus/backend/models"
	"github.com/stockplus/backend/server"
)

// HealthcheckHandler indicates the service's healthy
func HealthcheckHandler(_ *config.AppContext, w *middlewares.ResponseWriter, _ *http.Request) {
	w.String(http.StatusOK, "OK")
}

// GetRoutes ...
func GetRoutes() []*server.Route {
	staff := []int{db.ConstRoles.Admin, db.ConstRoles.Cashier}

	return []*server.Route{
		{Path: "/healthcheck", Methods: []string{"GET", "HEAD"}, Handler: HealthcheckHandler, IsProtected: false},

		// Mpesa
		{Path: "/stk", Methods: []string{"POST"}, Handler: InitiateSTKPush, IsProtected: true},
		{Path: "/callback/{orderId}", Methods: []string{"POST"}, Handler: MpesaCallback, IsProtected: false},

		// Order
		{Path: "/orders", Methods: []string{"POST"}, Handler: InsertOrder, Roles: staff},
		{Path: "/orders/{orderId}", Methods: []string{"GET", "HEAD"}, Handler: GetOrder, IsProtected: true},
		{Path: "/orders/{orderId}/payments", Methods: []string{"GET", "HEAD"}, Handler: GetOrderPayments, IsProtected: true},

		// Payment
		{Path: "/payment", Methods: []string{"POST"}, Handler: InsertPayment, Roles: staff},
	}
}

func writeValidationErrors(w *middlewares.ResponseWriter, errs url.Values) {
	message := middlewares.Responses.FailedValidations.In(w.Language)
	w.WriteJSON(http.StatusBadRequest, map[string]interface{}{
		"message": message,
		"errors":  errs,
	}, nil, message)
}

// canSeeOrder lets staff see every order and customers only their own.
func canSeeOrder(user models.InfoUser, order *models.Order) bool {
	return user.IsAdmin || user.IsCashier || order.UserID == user.ID
}
