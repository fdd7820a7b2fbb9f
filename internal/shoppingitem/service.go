// Package shoppingitem は買い物アイテムのドメインロジックを提供する。
//
// 同一リスト内で同名の未購入アイテムは1件までに制限する。
// 購入状態が変化したアイテムの所属リストはlast_interactionが更新され、一覧の先頭に移動する。
package shoppingitem

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

// MaxNameLength はアイテム名の最大文字数。
const MaxNameLength = 100

// Recorder はアイテム操作のメトリクス記録インターフェース。
type Recorder interface {
	ItemCreated()
	ItemsPurchased(n int)
	PurchasedItemsDeleted(n int64)
}

type nopRecorder struct{}

func (nopRecorder) ItemCreated()                {}
func (nopRecorder) ItemsPurchased(int)          {}
func (nopRecorder) PurchasedItemsDeleted(int64) {}

// Config はServiceの設定。
type Config struct {
	PageSize int
	Recorder Recorder
	Logger   *slog.Logger
}

// Service は買い物アイテムのサービス層。
type Service struct {
	items     repository.ShoppingItemRepository
	lists     repository.ShoppingListRepository
	policy    *access.Policy
	sanitizer security.NameSanitizer
	pageSize  int
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	items repository.ShoppingItemRepository,
	lists repository.ShoppingListRepository,
	policy *access.Policy,
	sanitizer security.NameSanitizer,
	cfg Config,
) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		items:     items,
		lists:     lists,
		policy:    policy,
		sanitizer: sanitizer,
		pageSize:  cfg.PageSize,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List はリストのアイテムを未購入を先に、作成順でページ単位に返す。
func (s *Service) List(ctx context.Context, actor model.Actor, listID string, page int) (*model.Page[*model.ShoppingItem], error) {
	if err := s.authorizeList(ctx, actor, listID); err != nil {
		return nil, err
	}

	count, err := s.items.CountByList(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("アイテム数の取得に失敗しました: %w", err)
	}
	if err := model.ValidatePage(page, s.pageSize, count); err != nil {
		return nil, err
	}

	items, err := s.items.ListByList(ctx, listID, s.pageSize, model.PageOffset(page, s.pageSize))
	if err != nil {
		return nil, fmt.Errorf("アイテム一覧の取得に失敗しました: %w", err)
	}

	return &model.Page[*model.ShoppingItem]{
		Results:  items,
		Count:    count,
		Page:     page,
		PageSize: s.pageSize,
	}, nil
}

// Create はリストにアイテムを追加する。
// 同名の未購入アイテムが既にある場合はDUPLICATE_ITEMを返す。購入済みの同名アイテムは妨げない。
func (s *Service) Create(ctx context.Context, actor model.Actor, listID, name string, purchased bool) (*model.ShoppingItem, error) {
	if err := s.authorizeList(ctx, actor, listID); err != nil {
		return nil, err
	}

	clean, err := s.cleanName(name)
	if err != nil {
		return nil, err
	}

	exists, err := s.items.ExistsUnpurchasedByName(ctx, listID, clean)
	if err != nil {
		return nil, fmt.Errorf("重複アイテムの確認に失敗しました: %w", err)
	}
	if exists {
		return nil, model.NewDuplicateItemError()
	}

	now := s.now()
	item := &model.ShoppingItem{
		ID:             uuid.NewString(),
		ShoppingListID: listID,
		Name:           clean,
		Purchased:      purchased,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.items.Create(ctx, item); err != nil {
		// 同時作成で事前チェックをすり抜けたケース
		if errors.Is(err, repository.ErrDuplicateUnpurchased) {
			return nil, model.NewDuplicateItemError()
		}
		return nil, fmt.Errorf("アイテムの作成に失敗しました: %w", err)
	}

	s.recorder.ItemCreated()
	return item, nil
}

// Get はリストに属するアイテムを取得する。
func (s *Service) Get(ctx context.Context, actor model.Actor, listID, itemID string) (*model.ShoppingItem, error) {
	list, err := s.lists.FindByID(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("リストの取得に失敗しました: %w", err)
	}
	if list == nil {
		return nil, model.NewListNotFoundError(listID)
	}

	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("アイテムの取得に失敗しました: %w", err)
	}
	// URL上のリストに属さないアイテムは存在しないものとして扱う
	if item == nil || item.ShoppingListID != listID {
		return nil, model.NewItemNotFoundError(itemID)
	}

	if err := s.policy.AuthorizeItem(ctx, actor, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Update はアイテムを部分更新する。
// 購入状態が変化した場合は所属リストのlast_interactionを同時に更新する。
func (s *Service) Update(ctx context.Context, actor model.Actor, listID, itemID string, patch model.ItemPatch) (*model.ShoppingItem, error) {
	item, err := s.Get(ctx, actor, listID, itemID)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return item, nil
	}

	updated := *item
	if patch.Name != nil {
		clean, err := s.cleanName(*patch.Name)
		if err != nil {
			return nil, err
		}
		updated.Name = clean
	}
	if patch.Purchased != nil {
		updated.Purchased = *patch.Purchased
	}
	purchasedChanged := updated.Purchased != item.Purchased
	if updated.Name == item.Name && !purchasedChanged {
		return item, nil
	}
	updated.UpdatedAt = s.now()

	if err := s.items.Update(ctx, &updated, purchasedChanged); err != nil {
		if errors.Is(err, repository.ErrDuplicateUnpurchased) {
			return nil, model.NewDuplicateItemError()
		}
		return nil, fmt.Errorf("アイテムの更新に失敗しました: %w", err)
	}

	if purchasedChanged && updated.Purchased {
		s.recorder.ItemsPurchased(1)
	}
	return &updated, nil
}

// Delete はリストに属するアイテムを削除する。
func (s *Service) Delete(ctx context.Context, actor model.Actor, listID, itemID string) error {
	if _, err := s.Get(ctx, actor, listID, itemID); err != nil {
		return err
	}
	if err := s.items.Delete(ctx, itemID); err != nil {
		return fmt.Errorf("アイテムの削除に失敗しました: %w", err)
	}
	return nil
}

// DeleteAllPurchased はactorがメンバーの全リストから購入済みアイテムを削除する。
// 管理者の場合は全リストが対象になる。
func (s *Service) DeleteAllPurchased(ctx context.Context, actor model.Actor) (int64, error) {
	n, err := s.items.DeletePurchased(ctx, scopeOf(actor))
	if err != nil {
		return 0, fmt.Errorf("購入済みアイテムの一括削除に失敗しました: %w", err)
	}

	s.recorder.PurchasedItemsDeleted(n)
	s.logger.Info("purchased items deleted",
		slog.String("user_id", actor.UserID),
		slog.Bool("admin", actor.IsAdmin),
		slog.Int64("deleted_count", n),
	)
	return n, nil
}

// MarkBulkPurchased は指定アイテムをまとめて購入済みにする。
// 1件でも無効なID（形式不正、存在しない、アクセス範囲外）が含まれる場合は何も変更せず
// INVALID_BULK_SELECTIONを返す。購入状態が変化したアイテムの数を返す。
func (s *Service) MarkBulkPurchased(ctx context.Context, actor model.Actor, itemIDs []string) (int, error) {
	if len(itemIDs) == 0 {
		return 0, model.NewValidationError("shopping_items", "This list may not be empty.")
	}

	normalized := make([]string, 0, len(itemIDs))
	for _, raw := range itemIDs {
		id, ok := model.NormalizeID(raw)
		if !ok {
			return 0, model.NewInvalidBulkSelectionError()
		}
		normalized = append(normalized, id)
	}
	ids := funk.UniqString(normalized)

	changed, err := s.items.MarkPurchased(ctx, ids, scopeOf(actor), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrItemsUnavailable) {
			return 0, model.NewInvalidBulkSelectionError()
		}
		return 0, fmt.Errorf("一括購入に失敗しました: %w", err)
	}

	s.recorder.ItemsPurchased(changed)
	s.logger.Info("items marked purchased",
		slog.String("user_id", actor.UserID),
		slog.Int("requested", len(ids)),
		slog.Int("changed", changed),
	)
	return changed, nil
}

// authorizeList はリストの存在確認とアクセス判定を行う。
func (s *Service) authorizeList(ctx context.Context, actor model.Actor, listID string) error {
	list, err := s.lists.FindByID(ctx, listID)
	if err != nil {
		return fmt.Errorf("リストの取得に失敗しました: %w", err)
	}
	if list == nil {
		return model.NewListNotFoundError(listID)
	}
	return s.policy.AuthorizeList(ctx, actor, listID)
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

// scopeOf は一括操作の対象範囲を返す。空文字列は全リストを意味する。
func scopeOf(actor model.Actor) string {
	if actor.IsAdmin {
		return ""
	}
	return actor.UserID
}
