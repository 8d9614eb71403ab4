package repository

import (
	"context"

	"github.com/honeynil/spriteshop/internal/models"
)

type SpriteRepository interface {
	Create(ctx context.Context, sprite *models.Sprite) error
	Search(ctx context.Context, term string) ([]models.SpriteWithSeller, error)
	GetByID(ctx context.Context, id int64) (*models.SpriteWithSeller, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]models.Sprite, error)
	Delete(ctx context.Context, id int64) error
}
