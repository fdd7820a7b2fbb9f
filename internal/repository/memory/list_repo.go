package memory

import (
	"context"
	"sort"
	"time"

	"github.com/hitoshi/shoplist/internal/model"
	"github.com/hitoshi/shoplist/internal/repository"
)

// ShoppingListRepo はインメモリの買い物リストリポジトリ。
type ShoppingListRepo struct {
	s *Store
}

// FindByID は指定IDのリストを取得する。見つからない場合はnilを返す。
func (r *ShoppingListRepo) FindByID(_ context.Context, id string) (*model.ShoppingList, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.lists[id]
	if !ok {
		return nil, nil
	}
	return r.s.snapshot(rec), nil
}

// ListByMember は指定ユーザーがメンバーのリストをlast_interaction降順で返す。
func (r *ShoppingListRepo) ListByMember(_ context.Context, userID string, limit, offset int) ([]*model.ShoppingList, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recs := r.memberLists(userID)
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.list.LastInteraction.Equal(b.list.LastInteraction) {
			return a.list.LastInteraction.After(b.list.LastInteraction)
		}
		return a.seq > b.seq
	})

	out := make([]*model.ShoppingList, 0, len(recs))
	for _, rec := range page(recs, limit, offset) {
		out = append(out, r.s.snapshot(rec))
	}
	return out, nil
}

// CountByMember は指定ユーザーがメンバーのリスト数を返す。
func (r *ShoppingListRepo) CountByMember(_ context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return len(r.memberLists(userID)), nil
}

func (r *ShoppingListRepo) memberLists(userID string) []*listRecord {
	var recs []*listRecord
	for id, rec := range r.s.lists {
		if r.s.isMember(id, userID) {
			recs = append(recs, rec)
		}
	}
	return recs
}

// IsMember は指定ユーザーがリストのメンバーかどうかを返す。
func (r *ShoppingListRepo) IsMember(_ context.Context, listID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.isMember(listID, userID), nil
}

// CreateWithMember はリストを作成し、作成者をメンバーに加える。
func (r *ShoppingListRepo) CreateWithMember(_ context.Context, list *model.ShoppingList, memberID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[memberID]; !ok {
		return repository.ErrUnknownUser
	}
	cp := *list
	cp.Members = nil
	cp.UnpurchasedItemNames = nil
	r.s.lists[list.ID] = &listRecord{list: cp, seq: r.s.nextSeq(), members: []string{memberID}}
	return nil
}

// UpdateName はリスト名を更新する。
func (r *ShoppingListRepo) UpdateName(_ context.Context, id, name string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if rec, ok := r.s.lists[id]; ok {
		rec.list.Name = name
		rec.list.UpdatedAt = at
	}
	return nil
}

// Delete は指定IDのリストと所属アイテムを削除する。
func (r *ShoppingListRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.lists, id)
	for itemID, it := range r.s.items {
		if it.item.ShoppingListID == id {
			delete(r.s.items, itemID)
		}
	}
	return nil
}

// AddMembers は指定ユーザーをメンバーに追加する。
// 存在しないユーザーが1人でもいれば何も変更しない。
func (r *ShoppingListRepo) AddMembers(_ context.Context, listID string, userIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.lists[listID]
	if !ok {
		return nil
	}
	for _, id := range userIDs {
		if _, ok := r.s.users[id]; !ok {
			return repository.ErrUnknownUser
		}
	}
	for _, id := range userIDs {
		if !r.s.isMember(listID, id) {
			rec.members = append(rec.members, id)
		}
	}
	return nil
}

// RemoveMembers は指定ユーザーをメンバーから外す。
func (r *ShoppingListRepo) RemoveMembers(_ context.Context, listID string, userIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.lists[listID]
	if !ok {
		return nil
	}
	drop := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		drop[id] = true
	}
	kept := rec.members[:0]
	for _, id := range rec.members {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	rec.members = kept
	return nil
}
