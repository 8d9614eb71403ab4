package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/honeynil/spriteshop/internal/infrastructure/observability"
	"github.com/honeynil/spriteshop/internal/models"
	pkgerrors "github.com/honeynil/spriteshop/pkg/errors"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) Create(ctx context.Context, user *models.User) (err error) {
	start := time.Now()
	defer func() { observability.ObserveRepositoryCall("user_create", start, err) }()

	if user == nil {
		return pkgerrors.ErrNilUser
	}
	if user.Username == "" {
		return fmt.Errorf("%w: username is required", pkgerrors.ErrValidation)
	}
	if user.PasswordHash == "" {
		return fmt.Errorf("%w: password_hash is required", pkgerrors.ErrValidation)
	}
	if user.Balance == 0 {
		user.Balance = models.DefaultBalance
	}
	if user.Avatar == "" {
		user.Avatar = models.DefaultAvatar
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", pkgerrors.ErrStorage, err)
	}

	query := `
	INSERT INTO users (username, password_hash, balance, avatar, created_at)
	VALUES (?, ?, ?, ?, ?)
	`
	res, err := tx.ExecContext(ctx, query,
		user.Username,
		user.PasswordHash,
		user.Balance,
		user.Avatar,
		user.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		if isUniqueViolation(err) {
			return pkgerrors.ErrUsernameExists
		}
		return fmt.Errorf("%w: failed to create user: %v", pkgerrors.ErrStorage, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return fmt.Errorf("%w: failed to read new user id: %v", pkgerrors.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", pkgerrors.ErrStorage, err)
	}

	user.ID = id
	return nil
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (user *models.User, err error) {
	start := time.Now()
	defer func() { observability.ObserveRepositoryCall("user_get_by_id", start, err) }()

	query := `SELECT id, username, password_hash, balance, avatar, created_at FROM users WHERE id = ?`
	user, err = r.scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get user by id: %v", pkgerrors.ErrStorage, err)
	}
	return user, nil
}

func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (user *models.User, err error) {
	start := time.Now()
	defer func() { observability.ObserveRepositoryCall("user_get_by_username", start, err) }()

	if username == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", pkgerrors.ErrValidation)
	}

	query := `SELECT id, username, password_hash, balance, avatar, created_at FROM users WHERE username = ?`
	user, err = r.scanUser(r.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get user by username: %v", pkgerrors.ErrStorage, err)
	}
	return user, nil
}

func (r *SQLiteUserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var createdAt int64
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Balance,
		&user.Avatar,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &user, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
