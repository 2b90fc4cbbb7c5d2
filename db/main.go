package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const maxRetries = 3

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderExists   = errors.New("order already exists")
	ErrWriteFailed   = errors.New("write failed")
)

type Storage interface {
	OrderStorage
	PaymentStorage
	MpesaStorage
	UserStorage
}

type db interface {
	NewTx(context.Context) (Tx, error)
}

type conn interface {
	Rebind(string) string
	NamedExecContext(context.Context, string, interface{}) (sql.Result, error)
	SelectContext(context.Context, interface{}, string, ...interface{}) error
	GetContext(context.Context, interface{}, string, ...interface{}) error
	PrepareNamedContext(context.Context, string) (*sqlx.NamedStmt, error)
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
}

type Tx interface {
	conn

	Commit() error
	Rollback() error
}

type transactorImpl struct {
	*sqlx.DB
}

func (t *transactorImpl) NewTx(ctx context.Context) (Tx, error) {
	return t.BeginTxx(ctx, nil)
}

type DB struct {
	conn
	db
}

func New(db *sqlx.DB) (*DB, error) {
	var (
		dbWrapper *DB
		err       error
	)

	tries := maxRetries
	for tries >= 0 {
		dbWrapper, err = tryOpenConnection(db)
		if err == nil {
			break
		}
		if tries == 0 {
			return nil, err
		}

		log.WithFields(log.Fields{
			"retries_left": tries,
			"error":        err,
		}).Warnf("%s: trying to connect to create connection", db.DriverName())

		tries = tries - 1
		time.Sleep(1 * time.Second)
	}

	return dbWrapper, nil
}

func tryOpenConnection(db *sqlx.DB) (*DB, error) {
	err := db.Ping()
	if err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	return &DB{
		db,
		&transactorImpl{db},
	}, nil
}

// withTx runs fn inside a transaction and commits only if fn succeeds.
func (db *DB) withTx(ctx context.Context, fn func(Tx) error) (err error) {
	tx, err := db.NewTx(ctx)
	if err != nil {
		return errors.Wrapf(ErrWriteFailed, "failed to start transaction: %s", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = errors.Wrapf(ErrWriteFailed, "failed to commit transaction: %s", commitErr)
		}
	}()

	return fn(tx)
}

func writeFailed(err error, format string, args ...interface{}) error {
	return errors.Wrapf(ErrWriteFailed, "%s: %s", fmt.Sprintf(format, args...), err)
}

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
