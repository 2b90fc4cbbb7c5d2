package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	joonix "github.com/joonix/log"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/stockplus/backend/config"
	"github.com/stockplus/backend/db"
	"github.com/stockplus/backend/middlewares"
	"github.com/urfave/negroni"
)

func recoveryHandler(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	defer func() {
		if err := recover(); err != nil {
			config.GetLogger(r.Context()).Error(err)
			(&middlewares.ResponseWriter{Writer: w}).Error(http.StatusInternalServerError, "internal server error")
			return
		}
	}()
	next(w, r)
}

type AppHandlerFunc func(*config.AppContext, *middlewares.ResponseWriter, *http.Request)

type AppHandler struct {
	Context     *config.AppContext
	HandlerFunc AppHandlerFunc
}

func (a *AppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.HandlerFunc(a.Context, middlewares.NewResponseWriter(w, r), r)
}

// Route describes one endpoint. Roles implies IsProtected.
type Route struct {
	Path        string
	Handler     AppHandlerFunc
	Methods     []string
	IsProtected bool
	Roles       []int
}

func NewRouter(ctx *config.AppContext, routes []*Route) *mux.Router {
	router := mux.NewRouter()
	for _, r := range routes {
		handler := &AppHandler{Context: ctx, HandlerFunc: r.Handler}
		if !r.IsProtected && len(r.Roles) == 0 {
			router.Handle(r.Path, handler).Methods(r.Methods...)
			continue
		}

		chain := negroni.New(
			negroni.HandlerFunc(middlewares.NewJWTMiddleware([]byte(ctx.Config.JWTSecret)).HandlerNext),
		)
		if len(r.Roles) > 0 {
			chain.Use(middlewares.RequireRoles(r.Roles...))
		}
		chain.UseHandler(handler)
		router.Handle(r.Path, chain).Methods(r.Methods...)
	}
	return router
}

func GetAppContext() *ContextWrapper {
	log.SetFormatter(joonix.NewFormatter())
	var conf config.Configuration
	if err := envdecode.Decode(&conf); err != nil {
		log.Fatal(errors.Wrap(err, "could not load the app configuration"))
	}
	appCtx := &config.AppContext{
		Config: conf,
	}

	contextWrapper := ContextWrapper{
		Context: appCtx,
	}

	return &contextWrapper
}

type ContextWrapper struct {
	Context *config.AppContext
	storage *db.DB
}

func (wrapper *ContextWrapper) CreateMySQLConnection() {
	conn, err := config.CreateConnectionSQL(wrapper.Context.Config.SQL)
	if err != nil {
		log.Fatal(err)
	}
	conn.SetConnMaxLifetime(time.Minute * 5)
	wrapper.Context.SQLConn = conn
	storage, err := db.New(conn)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Fatal("mysql: failed to connect")
	}
	wrapper.storage = storage
	wrapper.Context.DB = storage
}

// Migrate applies the embedded schema. CreateMySQLConnection must run first.
func (wrapper *ContextWrapper) Migrate(ctx context.Context) error {
	if wrapper.storage == nil {
		return errors.New("mysql: no connection")
	}
	if err := wrapper.storage.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed migrating schema")
	}
	log.Info("schema is up to date")
	return nil
}

func (wrapper *ContextWrapper) CreateSMTPConnection() {
	conn := config.CreateNewConnectionSMTP(wrapper.Context.Config.SMTP)
	if conn == nil {
		log.Warn("smtp: no host configured, payment receipts are disabled")
		return
	}
	wrapper.Context.SMTP = conn
}

func (wrapper *ContextWrapper) CreateMpesaIntegration() {
	mp, err := config.CreateMpesaIntegration(wrapper.Context.Config.Mpesa)
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to create mpesa integration"))
	}
	wrapper.Context.Mpesa = mp
}

func UpServer(routes []*Route, wrapper *ContextWrapper) {
	server, err := createServer(wrapper.Context, routes)
	if err != nil {
		log.Fatal(err)
	}

	if wrapper.Context.SQLConn != nil {
		defer wrapper.Context.SQLConn.Close()
	}

	log.Info("Environment " + wrapper.Context.Config.Environment)
	log.Info("Listening on " + server.Addr)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error(err)
	}
}

func NewHandler(appCtx *config.AppContext, routes []*Route) http.Handler {
	n := negroni.New()
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "PUT", "PATCH", "HEAD"},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization", "Accept-Language", "X-Request-ID"},
	})
	n.Use(c)
	n.Use(negroni.HandlerFunc(middlewares.LoggerRequest))
	n.UseFunc(recoveryHandler)
	n.Use(middlewares.UserMiddleware())
	n.UseHandler(NewRouter(appCtx, routes))
	return n
}

func createServer(appCtx *config.AppContext, routes []*Route) (*http.Server, error) {
	if appCtx.Config.Port <= 0 {
		return nil, errors.Errorf("invalid port %d", appCtx.Config.Port)
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCtx.Config.Port),
		ReadTimeout:  time.Duration(appCtx.Config.Timeout) * time.Second,
		WriteTimeout: time.Duration(appCtx.Config.Timeout) * time.Second,
		Handler:      NewHandler(appCtx, routes),
	}, nil
}
