package errors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrSpriteNotFound     = errors.New("sprite not found")
	ErrNotOwner           = errors.New("sprite belongs to another user")
	ErrUploadRejected     = errors.New("upload rejected")
	ErrNilUser            = errors.New("user is nil")
	ErrNilSprite          = errors.New("sprite is nil")
	ErrStorage            = errors.New("storage failure")
	ErrInternal           = fmt.Errorf("internal error")
)
