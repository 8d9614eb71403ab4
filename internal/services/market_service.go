package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/honeynil/spriteshop/internal/infrastructure/auth"
	"github.com/honeynil/spriteshop/internal/infrastructure/kafka"
	"github.com/honeynil/spriteshop/internal/infrastructure/redis"
	"github.com/honeynil/spriteshop/internal/models"
	"github.com/honeynil/spriteshop/internal/repository"
	pkgerrors "github.com/honeynil/spriteshop/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type CreateSpriteInput struct {
	Name             string
	Price            int64
	ShortDescription string
	LongDescription  string
	ImagePath        string
	SellerID         int64
}

type MarketService interface {
	Register(ctx context.Context, username, password string) (int64, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, userID int64) error
	CreateSprite(ctx context.Context, in CreateSpriteInput) (int64, error)
	Search(ctx context.Context, term string) ([]models.SpriteWithSeller, error)
	SpriteDetail(ctx context.Context, id int64) (*models.SpriteWithSeller, error)
	DeleteSprite(ctx context.Context, spriteID, principalID int64) error
	Profile(ctx context.Context, userID int64) (*models.User, []models.Sprite, error)
}

type marketService struct {
	userRepo    repository.UserRepository
	spriteRepo  repository.SpriteRepository
	redisClient redis.RedisClient
	producer    kafka.EventProducer
	jwtSecret   string
	sessionTTL  time.Duration
}

func NewMarketService(
	userRepo repository.UserRepository,
	spriteRepo repository.SpriteRepository,
	redisClient redis.RedisClient,
	producer kafka.EventProducer,
	jwtSecret string,
	sessionTTL time.Duration,
) *marketService {
	return &marketService{
		userRepo:    userRepo,
		spriteRepo:  spriteRepo,
		redisClient: redisClient,
		producer:    producer,
		jwtSecret:   jwtSecret,
		sessionTTL:  sessionTTL,
	}
}

func (s *marketService) Register(ctx context.Context, username, password string) (int64, error) {
	tracer := otel.Tracer("spriteshop")
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	if username == "" {
		span.SetStatus(codes.Error, "empty username")
		return 0, fmt.Errorf("%w: username is required", pkgerrors.ErrValidation)
	}
	if len(password) < minPasswordLength {
		span.SetStatus(codes.Error, "password too short")
		return 0, fmt.Errorf("%w: password must be at least %d characters", pkgerrors.ErrValidation, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		slog.Error("failed to hash password", "username", username, "error", err)
		return 0, fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Balance:      models.DefaultBalance,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if stderrors.Is(err, pkgerrors.ErrUsernameExists) {
			span.SetStatus(codes.Error, "username already exists")
			slog.Warn("username already exists", "username", username)
			return 0, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "user creation failed")
		slog.Error("failed to create user in DB", "username", username, "error", err)
		return 0, err
	}

	s.publishEvent(map[string]interface{}{
		"event_type": "user_registered",
		"user_id":    user.ID,
		"username":   username,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}, "users", user.ID)

	slog.Info("user registered successfully", "user_id", user.ID, "username", username)
	return user.ID, nil
}

func (s *marketService) Login(ctx context.Context, username, password string) (string, error) {
	tracer := otel.Tracer("spriteshop")
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		slog.Warn("failed to login", "username", username, "error", err)
		span.SetStatus(codes.Error, "user lookup failed")
		return "", pkgerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("invalid password", "username", username)
		span.SetStatus(codes.Error, "invalid password")
		return "", pkgerrors.ErrInvalidCredentials
	}

	token, err := auth.GenerateSessionToken(user.ID, s.jwtSecret, s.sessionTTL)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to generate session token", "user_id", user.ID, "error", err)
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.redisClient.Set(ctx, fmt.Sprintf("user:%d:session", user.ID), token, s.sessionTTL); err != nil {
		span.RecordError(err)
		slog.Error("failed to store session", "user_id", user.ID, "error", err)
		return "", fmt.Errorf("%w: failed to store session", pkgerrors.ErrInternal)
	}

	slog.Info("user logged in", "username", username, "user_id", user.ID)
	return token, nil
}

func (s *marketService) Logout(ctx context.Context, userID int64) error {
	tracer := otel.Tracer("spriteshop")
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()

	if err := s.redisClient.Del(ctx, fmt.Sprintf("user:%d:session", userID)); err != nil {
		span.RecordError(err)
		slog.Error("failed to revoke session", "user_id", userID, "error", err)
		return err
	}
	slog.Info("user logged out", "user_id", userID)
	return nil
}

func (s *marketService) CreateSprite(ctx context.Context, in CreateSpriteInput) (int64, error) {
	tracer := otel.Tracer("spriteshop")
	ctx, span := tracer.Start(ctx, "CreateSprite")
	defer span.End()

	if in.Name == "" {
		span.SetStatus(codes.Error, "empty name")
		return 0, fmt.Errorf("%w: name is required", pkgerrors.ErrValidation)
	}

	sprite := &models.Sprite{
		Name:             in.Name,
		Price:            in.Price,
		ShortDescription: in.ShortDescription,
		LongDescription:  in.LongDescription,
		ImagePath:        in.ImagePath,
		SellerID:         in.SellerID,
	}
	if sprite.ImagePath == "" {
		sprite.ImagePath = models.DefaultSpriteImage
	}

	if err := s.spriteRepo.Create(ctx, sprite); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sprite creation failed")
		slog.Error("failed to create sprite", "name", in.Name, "seller_id", in.SellerID, "error", err)
		return 0, err
	}

	s.publishEvent(map[string]interface{}{
		"event_type": "sprite_created",
		"sprite_id":  sprite.ID,
		"seller_id":  sprite.SellerID,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}, "sprites", sprite.ID)

	slog.Info("sprite created", "sprite_id", sprite.ID, "seller_id", sprite.SellerID)
	return sprite.ID, nil
}

func (s *marketService) Search(ctx context.Context, term string) ([]models.SpriteWithSeller, error) {
	tracer := otel.Tracer("spriteshop")
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()

	sprites, err := s.spriteRepo.Search(ctx, term)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to search sprites", "term", term, "error", err)
		return nil, err
	}

	slog.Info("sprites searched", "term", term, "count", len(sprites))
	return sprites, nil
}

func (s *marketService) SpriteDetail(ctx context.Context, id int64) (*models.SpriteWithSeller, error) {
	tracer := otel.Tracer("spriteshop")
	ctx, span := tracer.Start(ctx, "SpriteDetail")
	defer span.End()

	cacheKey := fmt.Sprintf("sprite:%d:detail", id)
	if cached, err := s.redisClient.Get(ctx, cacheKey); err == nil {
		var sprite models.SpriteWithSeller
		if err := json.Unmarshal([]byte(cached), &sprite); err != nil {
			slog.Error("failed to unmarshal cached sprite", "sprite_id", id, "error", err)
		} else {
			return &sprite, nil
		}
	} else if !stderrors.Is(err, redis.ErrKeyNotFound) {
		slog.Error("failed to get sprite from Redis", "sprite_id", id, "error", err)
	}

	sprite, err := s.spriteRepo.GetByID(ctx, id)
	if err != nil {
		if !stderrors.Is(err, pkgerrors.ErrSpriteNotFound) {
			span.RecordError(err)
		}
		return nil, err
	}

	if data, err := json.Marshal(sprite); err != nil {
		slog.Error("failed to marshal sprite for cache", "sprite_id", id, "error", err)
	} else if err := s.redisClient.Set(ctx, cacheKey, string(data), 24*time.Hour); err != nil {
		slog.Error("failed to cache sprite", "sprite_id", id, "error", err)
	}

	return sprite, nil
}

// DeleteSprite resolves ownership explicitly before deleting, so a missing
// listing and someone else's listing produce distinct outcomes.
func (s *marketService) DeleteSprite(ctx context.Context, spriteID, principalID int64) error {
	tracer := otel.Tracer("spriteshop")
	ctx, span := tracer.Start(ctx, "DeleteSprite")
	defer span.End()

	sprite, err := s.spriteRepo.GetByID(ctx, spriteID)
	if err != nil {
		if !stderrors.Is(err, pkgerrors.ErrSpriteNotFound) {
			span.RecordError(err)
		}
		return err
	}

	if sprite.SellerID != principalID {
		span.SetStatus(codes.Error, "not the owner")
		slog.Warn("delete refused, principal is not the owner",
			"sprite_id", spriteID,
			"seller_id", sprite.SellerID,
			"principal_id", principalID)
		return pkgerrors.ErrNotOwner
	}

	if err := s.spriteRepo.Delete(ctx, spriteID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sprite deletion failed")
		slog.Error("failed to delete sprite", "sprite_id", spriteID, "error", err)
		return err
	}

	if err := s.redisClient.Del(ctx, fmt.Sprintf("sprite:%d:detail", spriteID)); err != nil {
		slog.Error("failed to invalidate sprite cache", "sprite_id", spriteID, "error", err)
	}

	s.publishEvent(map[string]interface{}{
		"event_type": "sprite_deleted",
		"sprite_id":  spriteID,
		"seller_id":  principalID,
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}, "sprites", spriteID)

	slog.Info("sprite deleted", "sprite_id", spriteID, "seller_id", principalID)
	return nil
}

func (s *marketService) Profile(ctx context.Context, userID int64) (*models.User, []models.Sprite, error) {
	tracer := otel.Tracer("spriteshop")
	ctx, span := tracer.Start(ctx, "Profile")
	defer span.End()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to get user", "user_id", userID, "error", err)
		return nil, nil, err
	}

	sprites, err := s.spriteRepo.ListBySeller(ctx, userID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to list user sprites", "user_id", userID, "error", err)
		return nil, nil, err
	}

	return user, sprites, nil
}

// publishEvent sends an audit event asynchronously with retries. Event
// delivery never blocks or fails the request that produced it.
func (s *marketService) publishEvent(event map[string]interface{}, topic string, key int64) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal event", "topic", topic, "key", key, "error", err)
		return
	}
	go func() {
		retries := 3
		for i := 0; i < retries; i++ {
			if err := s.producer.Send(context.Background(), topic, key, eventBytes); err == nil {
				return
			}
			time.Sleep(time.Second * time.Duration(i+1))
		}
		slog.Error("failed to send event after retries", "topic", topic, "key", key)
	}()
}
