package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/honeynil/spriteshop/internal/models"
	repository "github.com/honeynil/spriteshop/internal/repository/sqlite"
	pkgerrors "github.com/honeynil/spriteshop/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var spriteColumns = []string{"id", "name", "price", "short_description", "long_description", "image_path", "seller_id", "created_at"}

func TestSQLiteSpriteRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewSQLiteSpriteRepository(db)
	ctx := context.Background()

	t.Run("NilSprite", func(t *testing.T) {
		err := repo.Create(ctx, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrNilSprite)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyName", func(t *testing.T) {
		err := repo.Create(ctx, &models.Sprite{SellerID: 1})
		assert.ErrorIs(t, err, pkgerrors.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MissingSeller", func(t *testing.T) {
		err := repo.Create(ctx, &models.Sprite{Name: "Hero"})
		assert.ErrorIs(t, err, pkgerrors.ErrValidation)
		assert.Contains(t, err.Error(), "seller_id is required")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SuccessDefaultImage", func(t *testing.T) {
		sprite := &models.Sprite{
			Name:             "Hero",
			Price:            50,
			ShortDescription: "a hero",
			LongDescription:  "a pixel hero",
			SellerID:         1,
		}
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sprites`)).
			WithArgs("Hero", int64(50), "a hero", "a pixel hero", models.DefaultSpriteImage, int64(1), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectCommit()

		err := repo.Create(ctx, sprite)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), sprite.ID)
		assert.Equal(t, models.DefaultSpriteImage, sprite.ImagePath)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsertError", func(t *testing.T) {
		sprite := &models.Sprite{Name: "Hero", SellerID: 1}
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sprites`)).
			WithArgs("Hero", int64(0), "", "", models.DefaultSpriteImage, int64(1), sqlmock.AnyArg()).
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		err := repo.Create(ctx, sprite)
		assert.ErrorIs(t, err, pkgerrors.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLiteSpriteRepository_Search(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewSQLiteSpriteRepository(db)
	ctx := context.Background()

	columns := append(append([]string{}, spriteColumns...), "username")

	t.Run("EmptyTermMatchesAll", func(t *testing.T) {
		newer := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
		older := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY s.created_at DESC, s.id DESC`)).
			WithArgs("%%").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(int64(2), "Mage", int64(75), "m", "mm", "default-sprite.png", int64(1), newer.UnixMilli(), "alice").
				AddRow(int64(1), "Hero", int64(50), "h", "hh", "default-sprite.png", int64(1), older.UnixMilli(), "alice"))

		sprites, err := repo.Search(ctx, "")
		assert.NoError(t, err)
		assert.Len(t, sprites, 2)
		assert.Equal(t, "Mage", sprites[0].Name)
		assert.Equal(t, "Hero", sprites[1].Name)
		assert.Equal(t, "alice", sprites[0].SellerUsername)
		assert.Equal(t, newer, sprites[0].CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TermIsSubstringMatch", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE LOWER(s.name) LIKE LOWER(?)`)).
			WithArgs("%her%").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(int64(1), "Hero", int64(50), "h", "hh", "default-sprite.png", int64(1), time.Now().UnixMilli(), "alice"))

		sprites, err := repo.Search(ctx, "her")
		assert.NoError(t, err)
		assert.Len(t, sprites, 1)
		assert.Equal(t, "Hero", sprites[0].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NoResults", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM sprites s`)).
			WithArgs("%zzz%").
			WillReturnRows(sqlmock.NewRows(columns))

		sprites, err := repo.Search(ctx, "zzz")
		assert.NoError(t, err)
		assert.Empty(t, sprites)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLiteSpriteRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewSQLiteSpriteRepository(db)
	ctx := context.Background()

	columns := append(append([]string{}, spriteColumns...), "username", "avatar")

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE s.id = ?`)).
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)

		sprite, err := repo.GetByID(ctx, 404)
		assert.Nil(t, sprite)
		assert.ErrorIs(t, err, pkgerrors.ErrSpriteNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		createdAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE s.id = ?`)).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow(int64(1), "Hero", int64(50), "a hero", "a pixel hero", "hero.png", int64(3), createdAt.UnixMilli(), "alice", "default-avatar.png"))

		sprite, err := repo.GetByID(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, "Hero", sprite.Name)
		assert.Equal(t, int64(50), sprite.Price)
		assert.Equal(t, "hero.png", sprite.ImagePath)
		assert.Equal(t, "alice", sprite.SellerUsername)
		assert.Equal(t, "default-avatar.png", sprite.SellerAvatar)
		assert.Equal(t, createdAt, sprite.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLiteSpriteRepository_ListBySeller(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewSQLiteSpriteRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE seller_id = ?`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(spriteColumns).
			AddRow(int64(1), "Hero", int64(50), "h", "hh", "hero.png", int64(3), time.Now().UnixMilli()))

	sprites, err := repo.ListBySeller(ctx, 3)
	assert.NoError(t, err)
	assert.Len(t, sprites, 1)
	assert.Equal(t, int64(3), sprites[0].SellerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteSpriteRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewSQLiteSpriteRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sprites WHERE id = ?`)).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Delete(ctx, 1)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sprites WHERE id = ?`)).
			WithArgs(int64(404)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Delete(ctx, 404)
		assert.ErrorIs(t, err, pkgerrors.ErrSpriteNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ExecError", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sprites WHERE id = ?`)).
			WithArgs(int64(1)).
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		err := repo.Delete(ctx, 1)
		assert.ErrorIs(t, err, pkgerrors.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
