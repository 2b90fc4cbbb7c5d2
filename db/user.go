package db

import (
	"context"
	"database/sql"

	"github.com/stockplus/backend/models"
)

type UserStorage interface {
	GetUserByID(ctx context.Context, userID int) (*models.User, error)
}

const (
	getUserByID = `
	SELECT
		users.userId,
		users.firstName,
		users.lastName,
		users.email,
		users.phoneNumber
	FROM
		users
	WHERE
		users.userId = ?
	`
)

func (db *DB) GetUserByID(ctx context.Context, userID int) (*models.User, error) {
	var user models.User
	if err := db.GetContext(ctx, &user, db.Rebind(getUserByID), userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
