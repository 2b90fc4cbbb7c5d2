package config

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	"github.com/stockplus/backend/db"
	"github.com/stockplus/backend/helpers"
	"github.com/stockplus/backend/mpesa"
	"gopkg.in/gomail.v2"
)

type Configuration struct {
	JWTSecret   string `env:"JWT_SECRET,required"`
	Port        int    `env:"PORT,default=3001"`
	Timeout     int    `env:"TIMEOUT,default=60"`
	SQL         database
	Mpesa       mpesaConf
	SMTP        smtpConf
	Mail        mail
	Environment string `env:"ENVIRONMENT,default=development"`
	AppName     string `env:"APP_NAME,default=stockplus"`
}

type database struct {
	URL            string `env:"DATA_BASE_URL,required"`
	Name           string `env:"DATA_BASE_NAME,required"`
	User           string `env:"DATA_BASE_USER,required"`
	Port           int    `env:"DATA_BASE_PORT,default=3306"`
	Password       string `env:"DATA_BASE_PASSWORD,required"`
	OpenConnection int    `env:"DATA_BASE_MAX_OPEN_CONNECTION,default=10"`
}

type mpesaConf struct {
	Environment      string        `env:"MPESA_ENVIRONMENT,default=sandbox"`
	BaseURL          string        `env:"MPESA_BASE_URL"`
	ConsumerKey      string        `env:"MPESA_CONSUMER_KEY,required"`
	ConsumerSecret   string        `env:"MPESA_CONSUMER_SECRET,required"`
	ShortCode        string        `env:"MPESA_PAYBILL,required"`
	PassKey          string        `env:"MPESA_PASSKEY,required"`
	CallbackURL      string        `env:"MPESA_CALLBACK_URL,required"`
	AccountReference string        `env:"MPESA_ACCOUNT_REFERENCE,default=Stock Plus"`
	TransactionDesc  string        `env:"MPESA_TRANSACTION_DESC,default=Stock Plus"`
	Timeout          time.Duration `env:"MPESA_TIMEOUT,default=30s"`
}

type smtpConf struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,default=587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
}

type mail struct {
	PaymentSuccess mailPaymentSuccess
	NameFrom       string `env:"MAIL_NAME_FROM,default=Stock Plus"`
	EmailFrom      string `env:"MAIL_EMAIL_FROM"`
	Folder         string `env:"MAIL_FOLDER,default=templates"`
	Path           string `env:"MAIL_PATH,default=/mail"`
}

type mailPaymentSuccess struct {
	Subject  string `env:"MAIL_PAYMENT_SUCCESS_SUBJECT,default=Payment received"`
	Template string `env:"MAIL_PAYMENT_SUCCESS_TEMPLATE,default=payment_success.html"`
}

type AppContext struct {
	Config  Configuration
	SQLConn *sqlx.DB
	DB      db.Storage
	SMTP    helpers.Sender
	Mpesa   *mpesa.Client
}

func CreateConnectionSQL(conf database) (*sqlx.DB, error) {
	dsn := mysql.NewConfig()
	dsn.User = conf.User
	dsn.Passwd = conf.Password
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%s", conf.URL, strconv.Itoa(conf.Port))
	dsn.DBName = conf.Name
	dsn.ParseTime = true

	connection, err := sqlx.Connect("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, err
	}
	connection.SetMaxOpenConns(conf.OpenConnection)
	return connection, nil
}

// CreateNewConnectionSMTP returns nil when no SMTP host is configured;
// receipts are then skipped.
func CreateNewConnectionSMTP(conf smtpConf) *gomail.Dialer {
	if conf.Host == "" {
		return nil
	}
	return gomail.NewDialer(conf.Host, conf.Port, conf.User, conf.Password)
}

func CreateMpesaIntegration(conf mpesaConf) (*mpesa.Client, error) {
	baseURL := conf.BaseURL
	if baseURL == "" {
		switch conf.Environment {
		case "sandbox":
			baseURL = mpesa.SandboxBaseURL
		case "production":
			baseURL = mpesa.ProductionBaseURL
		default:
			return nil, fmt.Errorf("unknown mpesa environment %q", conf.Environment)
		}
	}

	return mpesa.New(mpesa.Config{
		BaseURL:          baseURL,
		ConsumerKey:      conf.ConsumerKey,
		ConsumerSecret:   conf.ConsumerSecret,
		ShortCode:        conf.ShortCode,
		PassKey:          conf.PassKey,
		CallbackURL:      conf.CallbackURL,
		AccountReference: conf.AccountReference,
		TransactionDesc:  conf.TransactionDesc,
		Timeout:          conf.Timeout,
	})
}

type loggerKey struct{}

// WithLogger stores a request scoped logger in ctx.
func WithLogger(ctx context.Context, logger *log.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the request logger, or the standard logger when ctx has
// none.
func GetLogger(ctx context.Context) *log.Entry {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*log.Entry); ok {
			return logger
		}
	}
	return log.NewEntry(log.StandardLogger())
}
