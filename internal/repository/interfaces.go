// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/shoplist/internal/model"
)

// 永続化層が返す既知のエラー。サービス層がAPIErrorへ変換する。
var (
	// ErrDuplicateUsername はユーザー名が既に使われている場合に返す。
	ErrDuplicateUsername = errors.New("repository: duplicate username")
	// ErrDuplicateUnpurchased は同一リストに同名の未購入アイテムが既に存在する場合に返す。
	ErrDuplicateUnpurchased = errors.New("repository: duplicate unpurchased item")
	// ErrUnknownUser は存在しないユーザーIDをメンバーに追加しようとした場合に返す。
	ErrUnknownUser = errors.New("repository: unknown user")
	// ErrItemsUnavailable は一括更新対象のアイテムが存在しない、またはアクセス範囲外の場合に返す。
	ErrItemsUnavailable = errors.New("repository: items unavailable")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複する場合はErrDuplicateUsernameを返す。
	Create(ctx context.Context, user *model.User) error

	// FindExistingIDs は指定IDのうち存在するユーザーIDを返す。
	FindExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

// ShoppingListRepository は買い物リストの永続化インターフェース。
// 取得系メソッドはメンバーと未購入アイテム名を含めて返す。
type ShoppingListRepository interface {
	// FindByID は指定IDのリストを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ShoppingList, error)

	// ListByMember は指定ユーザーがメンバーのリストを返す。
	// last_interaction降順、同値の場合は作成順の新しい方を先に並べる。
	ListByMember(ctx context.Context, userID string, limit, offset int) ([]*model.ShoppingList, error)

	// CountByMember は指定ユーザーがメンバーのリスト数を返す。
	CountByMember(ctx context.Context, userID string) (int, error)

	// IsMember は指定ユーザーがリストのメンバーかどうかを返す。
	IsMember(ctx context.Context, listID, userID string) (bool, error)

	// CreateWithMember はリストと作成者のメンバーシップを同一トランザクションで作成する。
	CreateWithMember(ctx context.Context, list *model.ShoppingList, memberID string) error

	// UpdateName はリスト名を更新する。
	UpdateName(ctx context.Context, id, name string, at time.Time) error

	// Delete は指定IDのリストを削除する。メンバーシップとアイテムはCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// AddMembers は指定ユーザーをメンバーに追加する（和集合）。既存メンバーは無視する。
	// 存在しないユーザーIDが含まれる場合はErrUnknownUserを返し、何も変更しない。
	AddMembers(ctx context.Context, listID string, userIDs []string) error

	// RemoveMembers は指定ユーザーをメンバーから外す（差集合）。非メンバーは無視する。
	RemoveMembers(ctx context.Context, listID string, userIDs []string) error
}

// ShoppingItemRepository は買い物アイテムの永続化インターフェース。
type ShoppingItemRepository interface {
	// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ShoppingItem, error)

	// ListByList はリストのアイテムを未購入を先に、作成順で返す。
	ListByList(ctx context.Context, listID string, limit, offset int) ([]*model.ShoppingItem, error)

	// CountByList はリストのアイテム数を返す。
	CountByList(ctx context.Context, listID string) (int, error)

	// ExistsUnpurchasedByName はリストに同名の未購入アイテムが存在するかどうかを返す。
	ExistsUnpurchasedByName(ctx context.Context, listID, name string) (bool, error)

	// Create はアイテムを作成する。同名の未購入アイテムがある場合はErrDuplicateUnpurchasedを返す。
	Create(ctx context.Context, item *model.ShoppingItem) error

	// Update はアイテムの名前と購入状態を更新する。
	// purchasedChangedがtrueの場合、同一トランザクションで所属リストのlast_interactionも更新する。
	Update(ctx context.Context, item *model.ShoppingItem, purchasedChanged bool) error

	// Delete は指定IDのアイテムを削除する。
	Delete(ctx context.Context, id string) error

	// DeletePurchased は購入済みアイテムを削除し、削除件数を返す。
	// memberIDが空でない場合は、そのユーザーがメンバーのリストに限定する。
	DeletePurchased(ctx context.Context, memberID string) (int64, error)

	// MarkPurchased は指定アイテムを全て購入済みにする。
	// いずれかのIDが存在しない、またはmemberIDがメンバーでないリストに属する場合は
	// ErrItemsUnavailableを返し、何も変更しない。memberIDが空の場合は範囲を限定しない。
	// 購入状態が変化したアイテムを含むリストのlast_interactionをatに更新し、
	// 変化したアイテム数を返す。
	MarkPurchased(ctx context.Context, ids []string, memberID string, at time.Time) (int, error)
}

