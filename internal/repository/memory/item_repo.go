package memory

import (
	"context"
	"time"

	"github.com/hitoshi/shoplist/internal/model"
	"github.com/hitoshi/shoplist/internal/repository"
)

// ShoppingItemRepo はインメモリの買い物アイテムリポジトリ。
type ShoppingItemRepo struct {
	s *Store
}

// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
func (r *ShoppingItemRepo) FindByID(_ context.Context, id string) (*model.ShoppingItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	it, ok := r.s.items[id]
	if !ok {
		return nil, nil
	}
	cp := it.item
	return &cp, nil
}

// ListByList はリストのアイテムを未購入を先に、作成順で返す。
func (r *ShoppingItemRepo) ListByList(_ context.Context, listID string, limit, offset int) ([]*model.ShoppingItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recs := page(r.s.sortedItems(listID), limit, offset)
	out := make([]*model.ShoppingItem, 0, len(recs))
	for _, it := range recs {
		cp := it.item
		out = append(out, &cp)
	}
	return out, nil
}

// CountByList はリストのアイテム数を返す。
func (r *ShoppingItemRepo) CountByList(_ context.Context, listID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, it := range r.s.items {
		if it.item.ShoppingListID == listID {
			n++
		}
	}
	return n, nil
}

// ExistsUnpurchasedByName はリストに同名の未購入アイテムが存在するかどうかを返す。
func (r *ShoppingItemRepo) ExistsUnpurchasedByName(_ context.Context, listID, name string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.hasUnpurchasedName(listID, name, ""), nil
}

// Create はアイテムを作成する。
func (r *ShoppingItemRepo) Create(_ context.Context, item *model.ShoppingItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !item.Purchased && r.s.hasUnpurchasedName(item.ShoppingListID, item.Name, "") {
		return repository.ErrDuplicateUnpurchased
	}
	r.s.items[item.ID] = &itemRecord{item: *item, seq: r.s.nextSeq()}
	return nil
}

// Update はアイテムの名前と購入状態を更新する。
func (r *ShoppingItemRepo) Update(_ context.Context, item *model.ShoppingItem, purchasedChanged bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	it, ok := r.s.items[item.ID]
	if !ok {
		return nil
	}
	if !item.Purchased && r.s.hasUnpurchasedName(item.ShoppingListID, item.Name, item.ID) {
		return repository.ErrDuplicateUnpurchased
	}
	it.item.Name = item.Name
	it.item.Purchased = item.Purchased
	it.item.UpdatedAt = item.UpdatedAt
	if purchasedChanged {
		r.s.touch(item.ShoppingListID, item.UpdatedAt)
	}
	return nil
}

// Delete は指定IDのアイテムを削除する。
func (r *ShoppingItemRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.items, id)
	return nil
}

// DeletePurchased は購入済みアイテムを削除し、削除件数を返す。
func (r *ShoppingItemRepo) DeletePurchased(_ context.Context, memberID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, it := range r.s.items {
		if !it.item.Purchased {
			continue
		}
		if memberID != "" && !r.s.isMember(it.item.ShoppingListID, memberID) {
			continue
		}
		delete(r.s.items, id)
		n++
	}
	return n, nil
}

// DeletePurchasedBefore はcutoffより前に更新された購入済みアイテムを削除する。
func (r *ShoppingItemRepo) DeletePurchasedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, it := range r.s.items {
		if it.item.Purchased && it.item.UpdatedAt.Before(cutoff) {
			delete(r.s.items, id)
			n++
		}
	}
	return n, nil
}

// MarkPurchased は指定アイテムを全て購入済みにする。
func (r *ShoppingItemRepo) MarkPurchased(_ context.Context, ids []string, memberID string, at time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, id := range ids {
		it, ok := r.s.items[id]
		if !ok {
			return 0, repository.ErrItemsUnavailable
		}
		if memberID != "" && !r.s.isMember(it.item.ShoppingListID, memberID) {
			return 0, repository.ErrItemsUnavailable
		}
	}

	changed := 0
	for _, id := range ids {
		it := r.s.items[id]
		if it.item.Purchased {
			continue
		}
		it.item.Purchased = true
		it.item.UpdatedAt = at
		r.s.touch(it.item.ShoppingListID, at)
		changed++
	}
	return changed, nil
}
