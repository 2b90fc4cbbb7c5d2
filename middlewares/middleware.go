package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	jwtmiddleware "github.com/mfuentesg/go-jwtmiddleware"
	"github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"github.com/stockplus/backend/config"
	"github.com/stockplus/backend/db"
	"github.com/stockplus/backend/helpers"
	"github.com/stockplus/backend/models"
	"github.com/urfave/negroni"
)

type userKey struct{}

func jwtErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	r := &ResponseWriter{Writer: w}
	if err.Error() == "Token is expired" {
		r.Error(http.StatusUnauthorized, "unauthorized", WithErrorScope("token"), WithErrorType(1))
		return
	}
	if err != nil {
		r.Error(http.StatusUnauthorized, "unauthorized", WithErrorScope("token"))
	}
}

func NewJWTMiddleware(secret []byte) *jwtmiddleware.Middleware {
	return jwtmiddleware.New(
		jwtmiddleware.WithErrorHandler(jwtErrorHandler),
		jwtmiddleware.WithSigningMethod(jwt.SigningMethodHS256),
		jwtmiddleware.WithSignKey(secret),
		jwtmiddleware.WithUserProperty("_jwt-token"),
	)
}

// LoggerRequest attaches a request scoped logger to the request context.
func LoggerRequest(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
		r.Header.Set("X-Request-ID", requestID)
	}
	rw.Header().Set("X-Request-ID", requestID)

	requestLogger := log.WithFields(log.Fields{
		"request_id": requestID,
		"method":     r.Method,
		"query":      r.URL.Query(),
		"host":       r.Host,
		"url":        r.URL.Path,
	})
	requestLogger.Info("logger_request")
	next(rw, r.WithContext(config.WithLogger(r.Context(), requestLogger)))
}

// UserMiddleware reads the caller identity from the bearer token claims.
// Protected routes verify the signature separately.
func UserMiddleware() negroni.HandlerFunc {
	return negroni.HandlerFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		token := strings.Split(r.Header.Get("Authorization"), " ")
		if len(token) != 2 {
			next(rw, r)
			return
		}

		data, ok := helpers.ParserTokenUnverified(token[1])
		if !ok {
			next(rw, r)
			return
		}
		claims, ok := data["u"].(map[string]interface{})
		if !ok {
			next(rw, r)
			return
		}

		dataInfo := models.InfoUser{}
		mapstructure.WeakDecode(map[string]interface{}{
			"ID":    claims["i"],
			"Roles": claims["r"],
			"Email": claims["email"],
		}, &dataInfo)
		dataInfo.IsAdmin = helpers.Contains(dataInfo.Roles, db.ConstRoles.Admin)
		dataInfo.IsCashier = helpers.Contains(dataInfo.Roles, db.ConstRoles.Cashier)
		dataInfo.IsCustomer = helpers.Contains(dataInfo.Roles, db.ConstRoles.Customer)

		if !dataInfo.IsAdmin && !dataInfo.IsCashier && !dataInfo.IsCustomer {
			a := &ResponseWriter{Writer: rw}
			a.Error(http.StatusUnauthorized, "unauthorized", WithErrorScope("token"))
			return
		}

		ctx := context.WithValue(r.Context(), userKey{}, dataInfo)
		next(rw, r.WithContext(ctx))
	})
}

// RequireRoles rejects callers holding none of roles.
func RequireRoles(roles ...int) negroni.HandlerFunc {
	return negroni.HandlerFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		user := GetUser(r.Context())
		for _, role := range roles {
			if helpers.Contains(user.Roles, role) {
				next(rw, r)
				return
			}
		}
		w := NewResponseWriter(rw, r)
		w.Write(http.StatusForbidden, nil, nil, Responses.InvalidRoles)
	})
}

func GetUser(ctx context.Context) models.InfoUser {
	user, _ := ctx.Value(userKey{}).(models.InfoUser)
	return user
}

func WithUser(ctx context.Context, user models.InfoUser) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}
