// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/shoplist/internal/auth"
	"github.com/hitoshi/shoplist/internal/model"
	"github.com/hitoshi/shoplist/internal/repository"
)

const (
	// MaxUsernameLength はユーザー名の最大文字数。
	MaxUsernameLength = 150
	// MinPasswordLength はパスワードの最小文字数。
	MinPasswordLength = 8
)

// Service はユーザー管理のサービス層。
// ユーザー作成とプロフィール取得を提供する。
type Service struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{
		userRepo: userRepo,
		now:      time.Now,
	}
}

// CreateUser はユーザーを作成する。パスワードはbcryptハッシュで保存する。
func (s *Service) CreateUser(ctx context.Context, username, password string, isAdmin bool) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.NewValidationError("username", "This field may not be blank.")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return nil, model.NewValidationError("username",
			fmt.Sprintf("Ensure this field has no more than %d characters.", MaxUsernameLength))
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, model.NewValidationError("password",
			fmt.Sprintf("Ensure this field has at least %d characters.", MinPasswordLength))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, model.NewValidationError("username", "A user with that username already exists.")
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザーを作成しました",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
		slog.Bool("is_admin", user.IsAdmin),
	)

	return user, nil
}

// GetProfile は指定ユーザーのプロフィールを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}
