package memory

import (
	"context"

	"github.com/hitoshi/shoplist/internal/model"
	"github.com/hitoshi/shoplist/internal/repository"
)

// UserRepo はインメモリのユーザーリポジトリ。
type UserRepo struct {
	s *Store
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *UserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *UserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// Create はユーザーを作成する。
func (r *UserRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

// FindExistingIDs は指定IDのうち存在するユーザーIDを返す。
func (r *UserRepo) FindExistingIDs(_ context.Context, ids []string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var found []string
	for _, id := range ids {
		if _, ok := r.s.users[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}
