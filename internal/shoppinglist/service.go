// Package shoppinglist は買い物リストのドメインロジックを提供する。
// リストのCRUD、recency順の一覧取得、メンバーの追加・削除を扱う。
package shoppinglist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"

	"github.com/hitoshi/shoplist/internal/access"
	"github.com/hitoshi/shoplist/internal/model"
	"github.com/hitoshi/shoplist/internal/repository"
	"github.com/hitoshi/shoplist/internal/security"
)

// MaxNameLength はリスト名の最大文字数。
const MaxNameLength = 100

// Recorder はリスト操作のメトリクス記録インターフェース。
type Recorder interface {
	ListCreated()
}

type nopRecorder struct{}

func (nopRecorder) ListCreated() {}

// Config はServiceの設定。
type Config struct {
	PageSize int
	Recorder Recorder
	Logger   *slog.Logger
}

// Service は買い物リストのサービス層。
type Service struct {
	lists     repository.ShoppingListRepository
	users     repository.UserRepository
	policy    *access.Policy
	sanitizer security.NameSanitizer
	pageSize  int
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	lists repository.ShoppingListRepository,
	users repository.UserRepository,
	policy *access.Policy,
	sanitizer security.NameSanitizer,
	cfg Config,
) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		lists:     lists,
		users:     users,
		policy:    policy,
		sanitizer: sanitizer,
		pageSize:  cfg.PageSize,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List はactorがメンバーのリストをlast_interaction降順でページ単位に返す。
// 管理者であっても自分がメンバーのリストのみを返す。
func (s *Service) List(ctx context.Context, actor model.Actor, page int) (*model.Page[*model.ShoppingList], error) {
	count, err := s.lists.CountByMember(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("リスト数の取得に失敗しました: %w", err)
	}
	if err := model.ValidatePage(page, s.pageSize, count); err != nil {
		return nil, err
	}

	lists, err := s.lists.ListByMember(ctx, actor.UserID, s.pageSize, model.PageOffset(page, s.pageSize))
	if err != nil {
		return nil, fmt.Errorf("リスト一覧の取得に失敗しました: %w", err)
	}

	return &model.Page[*model.ShoppingList]{
		Results:  lists,
		Count:    count,
		Page:     page,
		PageSize: s.pageSize,
	}, nil
}

// Create はリストを作成し、作成者を最初のメンバーにする。
// last_interactionは作成時刻で初期化する。
func (s *Service) Create(ctx context.Context, actor model.Actor, name string) (*model.ShoppingList, error) {
	clean, err := s.cleanName(name)
	if err != nil {
		return nil, err
	}

	now := s.now()
	list := &model.ShoppingList{
		ID:              uuid.NewString(),
		Name:            clean,
		LastInteraction: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.lists.CreateWithMember(ctx, list, actor.UserID); err != nil {
		if errors.Is(err, repository.ErrUnknownUser) {
			return nil, model.NewUserNotFoundError()
		}
		return nil, fmt.Errorf("リストの作成に失敗しました: %w", err)
	}

	s.recorder.ListCreated()
	s.logger.Info("shopping list created",
		slog.String("list_id", list.ID),
		slog.String("user_id", actor.UserID),
	)

	return s.reload(ctx, list.ID)
}

// Get はリストを取得する。存在しない場合はLIST_NOT_FOUND、非メンバーの場合はFORBIDDENを返す。
func (s *Service) Get(ctx context.Context, actor model.Actor, id string) (*model.ShoppingList, error) {
	list, err := s.lists.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("リストの取得に失敗しました: %w", err)
	}
	if list == nil {
		return nil, model.NewListNotFoundError(id)
	}
	if err := s.policy.AuthorizeList(ctx, actor, id); err != nil {
		return nil, err
	}
	return list, nil
}

// Rename はリスト名を変更する。nameがnilの場合は何も変更せず現在のリストを返す。
func (s *Service) Rename(ctx context.Context, actor model.Actor, id string, name *string) (*model.ShoppingList, error) {
	list, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if name == nil {
		return list, nil
	}

	clean, err := s.cleanName(*name)
	if err != nil {
		return nil, err
	}
	if err := s.lists.UpdateName(ctx, id, clean, s.now()); err != nil {
		return nil, fmt.Errorf("リスト名の更新に失敗しました: %w", err)
	}
	return s.reload(ctx, id)
}

// Delete はリストを削除する。所属アイテムもCASCADE削除される。
func (s *Service) Delete(ctx context.Context, actor model.Actor, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.lists.Delete(ctx, id); err != nil {
		return fmt.Errorf("リストの削除に失敗しました: %w", err)
	}

	s.logger.Info("shopping list deleted",
		slog.String("list_id", id),
		slog.String("user_id", actor.UserID),
	)
	return nil
}

// AddMembers は指定ユーザーをメンバーに追加する（和集合、冪等）。
// 存在しないユーザーIDが1つでも含まれる場合はUNKNOWN_MEMBERSを返し、何も変更しない。
func (s *Service) AddMembers(ctx context.Context, actor model.Actor, id string, memberIDs []string) (*model.ShoppingList, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	ids, err := s.resolveMembers(ctx, memberIDs)
	if err != nil {
		return nil, err
	}

	if err := s.lists.AddMembers(ctx, id, ids); err != nil {
		if errors.Is(err, repository.ErrUnknownUser) {
			// 検証後に削除されたユーザー
			return nil, model.NewUnknownMembersError(ids)
		}
		return nil, fmt.Errorf("メンバーの追加に失敗しました: %w", err)
	}

	s.logger.Info("shopping list members added",
		slog.String("list_id", id),
		slog.String("user_id", actor.UserID),
		slog.Int("count", len(ids)),
	)
	return s.reload(ctx, id)
}

// RemoveMembers は指定ユーザーをメンバーから外す（差集合、冪等）。
// 全メンバーを外すことも許可する。その場合リストには管理者のみがアクセスできる。
func (s *Service) RemoveMembers(ctx context.Context, actor model.Actor, id string, memberIDs []string) (*model.ShoppingList, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	ids, err := s.resolveMembers(ctx, memberIDs)
	if err != nil {
		return nil, err
	}

	if err := s.lists.RemoveMembers(ctx, id, ids); err != nil {
		return nil, fmt.Errorf("メンバーの削除に失敗しました: %w", err)
	}

	s.logger.Info("shopping list members removed",
		slog.String("list_id", id),
		slog.String("user_id", actor.UserID),
		slog.Int("count", len(ids)),
	)
	return s.reload(ctx, id)
}

// resolveMembers はメンバーIDを検証し、正規形にして重複を除く。
// UUID形式でないID、存在しないユーザーIDはまとめてUNKNOWN_MEMBERSとして返す。
func (s *Service) resolveMembers(ctx context.Context, memberIDs []string) ([]string, error) {
	if len(memberIDs) == 0 {
		return nil, model.NewValidationError("members", "This list may not be empty.")
	}

	normalized := make([]string, 0, len(memberIDs))
	var malformed []string
	for _, raw := range memberIDs {
		id, ok := model.NormalizeID(raw)
		if !ok {
			malformed = append(malformed, raw)
			continue
		}
		normalized = append(normalized, id)
	}
	if len(malformed) > 0 {
		return nil, model.NewUnknownMembersError(funk.UniqString(malformed))
	}
	ids := funk.UniqString(normalized)

	found, err := s.users.FindExistingIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの確認に失敗しました: %w", err)
	}
	if missing := funk.SubtractString(ids, found); len(missing) > 0 {
		return nil, model.NewUnknownMembersError(missing)
	}
	return ids, nil
}

func (s *Service) cleanName(name string) (string, error) {
	clean := s.sanitizer.Sanitize(name)
	if clean == "" {
		return "", model.NewValidationError("name", "This field may not be blank.")
	}
	if utf8.RuneCountInString(clean) > MaxNameLength {
		return "", model.NewValidationError("name", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxNameLength))
	}
	return clean, nil
}

func (s *Service) reload(ctx context.Context, id string) (*model.ShoppingList, error) {
	list, err := s.lists.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("リストの再取得に失敗しました: %w", err)
	}
	if list == nil {
		return nil, model.NewListNotFoundError(id)
	}
	return list, nil
}
