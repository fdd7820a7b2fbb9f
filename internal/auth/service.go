// Package auth はパスワードログインとアクセストークンの発行・検証を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/shoplist/internal/model"
	"github.com/hitoshi/shoplist/internal/repository"
)

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	tokens   *TokenIssuer
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, tokens *TokenIssuer) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// Login はユーザー名とパスワードを検証し、アクセストークンを発行する。
// 認証失敗時はユーザーの存在有無を区別せずINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		slog.Warn("login failed", slog.String("username", username))
		return "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}

	slog.Info("token issued", slog.String("user_id", user.ID))
	return token, nil
}

// Authenticate はトークンを検証し、対応するユーザーを返す。
// トークンが無効、またはユーザーが存在しない場合はUNAUTHORIZEDを返す。
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}
	return user, nil
}
