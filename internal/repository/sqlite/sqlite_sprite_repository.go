package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/honeynil/spriteshop/internal/infrastructure/observability"
	"github.com/honeynil/spriteshop/internal/models"
	pkgerrors "github.com/honeynil/spriteshop/pkg/errors"
)

type SQLiteSpriteRepository struct {
	db *sql.DB
}

func NewSQLiteSpriteRepository(db *sql.DB) *SQLiteSpriteRepository {
	return &SQLiteSpriteRepository{db: db}
}

func (r *SQLiteSpriteRepository) Create(ctx context.Context, sprite *models.Sprite) (err error) {
	start := time.Now()
	defer func() { observability.ObserveRepositoryCall("sprite_create", start, err) }()

	if sprite == nil {
		return pkgerrors.ErrNilSprite
	}
	if sprite.Name == "" {
		return fmt.Errorf("%w: name is required", pkgerrors.ErrValidation)
	}
	if sprite.SellerID == 0 {
		return fmt.Errorf("%w: seller_id is required", pkgerrors.ErrValidation)
	}
	if sprite.ImagePath == "" {
		sprite.ImagePath = models.DefaultSpriteImage
	}
	if sprite.CreatedAt.IsZero() {
		sprite.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", pkgerrors.ErrStorage, err)
	}

	query := `
	INSERT INTO sprites (name, price, short_description, long_description, image_path, seller_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := tx.ExecContext(ctx, query,
		sprite.Name,
		sprite.Price,
		sprite.ShortDescription,
		sprite.LongDescription,
		sprite.ImagePath,
		sprite.SellerID,
		sprite.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return fmt.Errorf("%w: failed to create sprite: %v", pkgerrors.ErrStorage, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return fmt.Errorf("%w: failed to read new sprite id: %v", pkgerrors.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", pkgerrors.ErrStorage, err)
	}

	sprite.ID = id
	return nil
}

// Search matches all sprites when term is empty, otherwise a case-insensitive
// substring match on name. Newest first, ties broken by insertion order.
func (r *SQLiteSpriteRepository) Search(ctx context.Context, term string) (sprites []models.SpriteWithSeller, err error) {
	start := time.Now()
	defer func() { observability.ObserveRepositoryCall("sprite_search", start, err) }()

	query := `
	SELECT s.id, s.name, s.price, s.short_description, s.long_description, s.image_path, s.seller_id, s.created_at, u.username
	FROM sprites s
	JOIN users u ON s.seller_id = u.id
	WHERE LOWER(s.name) LIKE LOWER(?)
	ORDER BY s.created_at DESC, s.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, "%"+term+"%")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search sprites: %v", pkgerrors.ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var sprite models.SpriteWithSeller
		var createdAt int64
		if err := rows.Scan(
			&sprite.ID,
			&sprite.Name,
			&sprite.Price,
			&sprite.ShortDescription,
			&sprite.LongDescription,
			&sprite.ImagePath,
			&sprite.SellerID,
			&createdAt,
			&sprite.SellerUsername,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan sprite row: %v", pkgerrors.ErrStorage, err)
		}
		sprite.CreatedAt = time.UnixMilli(createdAt).UTC()
		sprites = append(sprites, sprite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate sprite rows: %v", pkgerrors.ErrStorage, err)
	}
	return sprites, nil
}

func (r *SQLiteSpriteRepository) GetByID(ctx context.Context, id int64) (sprite *models.SpriteWithSeller, err error) {
	start := time.Now()
	defer func() { observability.ObserveRepositoryCall("sprite_get_by_id", start, err) }()

	query := `
	SELECT s.id, s.name, s.price, s.short_description, s.long_description, s.image_path, s.seller_id, s.created_at, u.username, u.avatar
	FROM sprites s
	JOIN users u ON s.seller_id = u.id
	WHERE s.id = ?
	`
	var result models.SpriteWithSeller
	var createdAt int64
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&result.ID,
		&result.Name,
		&result.Price,
		&result.ShortDescription,
		&result.LongDescription,
		&result.ImagePath,
		&result.SellerID,
		&createdAt,
		&result.SellerUsername,
		&result.SellerAvatar,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrSpriteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get sprite: %v", pkgerrors.ErrStorage, err)
	}
	result.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &result, nil
}

func (r *SQLiteSpriteRepository) ListBySeller(ctx context.Context, sellerID int64) (sprites []models.Sprite, err error) {
	start := time.Now()
	defer func() { observability.ObserveRepositoryCall("sprite_list_by_seller", start, err) }()

	query := `
	SELECT id, name, price, short_description, long_description, image_path, seller_id, created_at
	FROM sprites
	WHERE seller_id = ?
	ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list sprites by seller: %v", pkgerrors.ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var sprite models.Sprite
		var createdAt int64
		if err := rows.Scan(
			&sprite.ID,
			&sprite.Name,
			&sprite.Price,
			&sprite.ShortDescription,
			&sprite.LongDescription,
			&sprite.ImagePath,
			&sprite.SellerID,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan sprite row: %v", pkgerrors.ErrStorage, err)
		}
		sprite.CreatedAt = time.UnixMilli(createdAt).UTC()
		sprites = append(sprites, sprite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate sprite rows: %v", pkgerrors.ErrStorage, err)
	}
	return sprites, nil
}

func (r *SQLiteSpriteRepository) Delete(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() { observability.ObserveRepositoryCall("sprite_delete", start, err) }()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", pkgerrors.ErrStorage, err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sprites WHERE id = ?`, id)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return fmt.Errorf("%w: failed to delete sprite: %v", pkgerrors.ErrStorage, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return fmt.Errorf("%w: failed to read affected rows: %v", pkgerrors.ErrStorage, err)
	}
	if affected == 0 {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v", rbErr)
		}
		return pkgerrors.ErrSpriteNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", pkgerrors.ErrStorage, err)
	}
	return nil
}
