// Package model はドメインモデルを定義する。
package model

import "time"

// ShoppingItem は買い物リストに含まれるアイテムを表す。
// アイテムは必ず1つのリストに属し、リスト削除時にCASCADE削除される。
type ShoppingItem struct {
	ID             string
	ShoppingListID string
	Name           string
	Purchased      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ItemPatch はアイテムの部分更新内容を表す。
// nilフィールドは変更しない。
type ItemPatch struct {
	Name      *string
	Purchased *bool
}

// IsEmpty は更新対象のフィールドが1つも指定されていないかどうかを返す。
func (p ItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Purchased == nil
}

// Page はページネーションされた一覧の取得結果を表す。
type Page[T any] struct {
	Results  []T
	Count    int // 全件数
	Page     int // 1始まりのページ番号
	PageSize int
}

// HasNext は次のページが存在するかどうかを返す。
func (p *Page[T]) HasNext() bool {
	return p.Page*p.PageSize < p.Count
}

// HasPrevious は前のページが存在するかどうかを返す。
func (p *Page[T]) HasPrevious() bool {
	return p.Page > 1
}

// PageOffset は1始まりのページ番号とページサイズからオフセットを算出する。
func PageOffset(page, pageSize int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * pageSize
}

// ValidatePage はページ番号が範囲内かを検証する。
// 1ページ目は件数0でも有効。範囲外の場合はINVALID_PAGEを返す。
func ValidatePage(page, pageSize, count int) error {
	if page < 1 {
		return NewInvalidPageError()
	}
	if page > 1 && PageOffset(page, pageSize) >= count {
		return NewInvalidPageError()
	}
	return nil
}
