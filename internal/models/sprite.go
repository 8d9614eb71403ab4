package models

import "time"

// DefaultSpriteImage is stored when a listing is created without a usable upload.
const DefaultSpriteImage = "default-sprite.png"

type Sprite struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Price            int64     `json:"price"`
	ShortDescription string    `json:"short_description"`
	LongDescription  string    `json:"long_description"`
	ImagePath        string    `json:"image_path"`
	SellerID         int64     `json:"seller_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// SpriteWithSeller is a listing row joined against its owner.
type SpriteWithSeller struct {
	Sprite
	SellerUsername string `json:"seller_username"`
	SellerAvatar   string `json:"seller_avatar,omitempty"`
}
