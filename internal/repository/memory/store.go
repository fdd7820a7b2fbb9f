// Package memory はリポジトリインターフェースのインメモリ実装を提供する。
// DATABASE_URL未設定時の開発用ストアと、ルーター全体を通したテストで使用する。
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/shoplist/internal/model"
	"github.com/hitoshi/shoplist/internal/repository"
)

type listRecord struct {
	list    model.ShoppingList
	seq     int64
	members []string // 追加順
}

type itemRecord struct {
	item model.ShoppingItem
	seq  int64
}

// Store は全エンティティを1つのロックで保護するインメモリストア。
// リスト・アイテム間の整合性（CASCADE削除、last_interaction更新）を単一ロック内で保つ。
type Store struct {
	mu    sync.RWMutex
	seq   int64
	users map[string]*model.User
	lists map[string]*listRecord
	items map[string]*itemRecord
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{
		users: make(map[string]*model.User),
		lists: make(map[string]*listRecord),
		items: make(map[string]*itemRecord),
	}
}

// Users はUserRepositoryとしてのビューを返す。
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Lists はShoppingListRepositoryとしてのビューを返す。
func (s *Store) Lists() *ShoppingListRepo { return &ShoppingListRepo{s: s} }

// Items はShoppingItemRepositoryとしてのビューを返す。
func (s *Store) Items() *ShoppingItemRepo { return &ShoppingItemRepo{s: s} }

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *Store) isMember(listID, userID string) bool {
	rec, ok := s.lists[listID]
	if !ok {
		return false
	}
	for _, id := range rec.members {
		if id == userID {
			return true
		}
	}
	return false
}

// snapshot はメンバーと未購入アイテム名を埋めたリストのコピーを返す。呼び出し側でロックを保持すること。
func (s *Store) snapshot(rec *listRecord) *model.ShoppingList {
	list := rec.list
	list.Members = make([]model.Member, 0, len(rec.members))
	for _, id := range rec.members {
		if u, ok := s.users[id]; ok {
			list.Members = append(list.Members, model.Member{ID: u.ID, Username: u.Username})
		}
	}

	list.UnpurchasedItemNames = []string{}
	for _, it := range s.sortedItems(rec.list.ID) {
		if !it.item.Purchased {
			list.UnpurchasedItemNames = append(list.UnpurchasedItemNames, it.item.Name)
		}
	}
	return &list
}

// sortedItems はリストのアイテムを未購入優先・作成順で返す。
func (s *Store) sortedItems(listID string) []*itemRecord {
	var recs []*itemRecord
	for _, it := range s.items {
		if it.item.ShoppingListID == listID {
			recs = append(recs, it)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].item.Purchased != recs[j].item.Purchased {
			return !recs[i].item.Purchased
		}
		return recs[i].seq < recs[j].seq
	})
	return recs
}

func (s *Store) hasUnpurchasedName(listID, name, exceptID string) bool {
	for _, it := range s.items {
		if it.item.ShoppingListID == listID && it.item.ID != exceptID && !it.item.Purchased && it.item.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) touch(listID string, at time.Time) {
	if rec, ok := s.lists[listID]; ok {
		rec.list.LastInteraction = at
	}
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// compile-time interface check
var (
	_ repository.UserRepository         = (*UserRepo)(nil)
	_ repository.ShoppingListRepository = (*ShoppingListRepo)(nil)
	_ repository.ShoppingItemRepository = (*ShoppingItemRepo)(nil)
)
