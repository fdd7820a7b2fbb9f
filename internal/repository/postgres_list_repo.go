package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/shoplist/internal/model"
)

// queryer は*sql.DBと*sql.Txの共通クエリインターフェース。
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PostgresShoppingListRepo はPostgreSQLを使用した買い物リストリポジトリ。
type PostgresShoppingListRepo struct {
	db *sql.DB
}

// NewPostgresShoppingListRepo はPostgresShoppingListRepoを生成する。
func NewPostgresShoppingListRepo(db *sql.DB) *PostgresShoppingListRepo {
	return &PostgresShoppingListRepo{db: db}
}

// FindByID は指定IDのリストを取得する。見つからない場合はnilを返す。
func (r *PostgresShoppingListRepo) FindByID(ctx context.Context, id string) (*model.ShoppingList, error) {
	list := &model.ShoppingList{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, last_interaction, created_at, updated_at
		 FROM shopping_lists WHERE id = $1`,
		id,
	).Scan(&list.ID, &list.Name, &list.LastInteraction, &list.CreatedAt, &list.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find shopping list: %w", err)
	}

	if err := hydrateLists(ctx, r.db, []*model.ShoppingList{list}); err != nil {
		return nil, err
	}
	return list, nil
}

// ListByMember は指定ユーザーがメンバーのリストをlast_interaction降順で返す。
func (r *PostgresShoppingListRepo) ListByMember(ctx context.Context, userID string, limit, offset int) ([]*model.ShoppingList, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT l.id, l.name, l.last_interaction, l.created_at, l.updated_at
		 FROM shopping_lists l
		 JOIN shopping_list_members m ON m.list_id = l.id
		 WHERE m.user_id = $1
		 ORDER BY l.last_interaction DESC, l.seq DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping lists: %w", err)
	}
	defer rows.Close()

	var lists []*model.ShoppingList
	for rows.Next() {
		list := &model.ShoppingList{}
		if err := rows.Scan(&list.ID, &list.Name, &list.LastInteraction, &list.CreatedAt, &list.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shopping list: %w", err)
		}
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shopping lists: %w", err)
	}

	if err := hydrateLists(ctx, r.db, lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// CountByMember は指定ユーザーがメンバーのリスト数を返す。
func (r *PostgresShoppingListRepo) CountByMember(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shopping_list_members WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count shopping lists: %w", err)
	}
	return count, nil
}

// IsMember は指定ユーザーがリストのメンバーかどうかを返す。
func (r *PostgresShoppingListRepo) IsMember(ctx context.Context, listID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM shopping_list_members WHERE list_id = $1 AND user_id = $2)`,
		listID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// CreateWithMember はリストと作成者のメンバーシップを同一トランザクションで作成する。
func (r *PostgresShoppingListRepo) CreateWithMember(ctx context.Context, list *model.ShoppingList, memberID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO shopping_lists (id, name, last_interaction, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		list.ID, list.Name, list.LastInteraction, list.CreatedAt, list.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert shopping list: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO shopping_list_members (list_id, user_id, created_at) VALUES ($1, $2, $3)`,
		list.ID, memberID, list.CreatedAt,
	)
	if isPQError(err, pqForeignKeyViolation, "") {
		return ErrUnknownUser
	}
	if err != nil {
		return fmt.Errorf("failed to insert shopping list member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateName はリスト名を更新する。
func (r *PostgresShoppingListRepo) UpdateName(ctx context.Context, id, name string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE shopping_lists SET name = $2, updated_at = $3 WHERE id = $1`,
		id, name, at,
	)
	if err != nil {
		return fmt.Errorf("failed to update shopping list name: %w", err)
	}
	return nil
}

// Delete は指定IDのリストを削除する。
func (r *PostgresShoppingListRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	return nil
}

// AddMembers は指定ユーザーをメンバーに追加する。
// 1件でも外部キー違反があればトランザクション全体をロールバックする。
func (r *PostgresShoppingListRepo) AddMembers(ctx context.Context, listID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO shopping_list_members (list_id, user_id, created_at)
		 SELECT $1, u, now() FROM unnest($2::uuid[]) AS u
		 ON CONFLICT (list_id, user_id) DO NOTHING`,
		listID, pq.Array(userIDs),
	)
	if isPQError(err, pqForeignKeyViolation, "") {
		return ErrUnknownUser
	}
	if err != nil {
		return fmt.Errorf("failed to add shopping list members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveMembers は指定ユーザーをメンバーから外す。
func (r *PostgresShoppingListRepo) RemoveMembers(ctx context.Context, listID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM shopping_list_members WHERE list_id = $1 AND user_id = ANY($2::uuid[])`,
		listID, pq.Array(userIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to remove shopping list members: %w", err)
	}
	return nil
}

// hydrateLists はリストのメンバーと未購入アイテム名をまとめて読み込む。
func hydrateLists(ctx context.Context, q queryer, lists []*model.ShoppingList) error {
	if len(lists) == 0 {
		return nil
	}

	byID := make(map[string]*model.ShoppingList, len(lists))
	ids := make([]string, 0, len(lists))
	for _, l := range lists {
		l.Members = []model.Member{}
		l.UnpurchasedItemNames = []string{}
		byID[l.ID] = l
		ids = append(ids, l.ID)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT m.list_id, u.id, u.username
		 FROM shopping_list_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.list_id = ANY($1::uuid[])
		 ORDER BY m.created_at, u.username`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to query shopping list members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var listID string
		var m model.Member
		if err := rows.Scan(&listID, &m.ID, &m.Username); err != nil {
			return fmt.Errorf("failed to scan shopping list member: %w", err)
		}
		byID[listID].Members = append(byID[listID].Members, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate shopping list members: %w", err)
	}

	itemRows, err := q.QueryContext(ctx,
		`SELECT list_id, name FROM shopping_items
		 WHERE list_id = ANY($1::uuid[]) AND NOT purchased
		 ORDER BY created_at, id`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("failed to query unpurchased items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var listID, name string
		if err := itemRows.Scan(&listID, &name); err != nil {
			return fmt.Errorf("failed to scan unpurchased item: %w", err)
		}
		byID[listID].UnpurchasedItemNames = append(byID[listID].UnpurchasedItemNames, name)
	}
	if err := itemRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate unpurchased items: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ShoppingListRepository = (*PostgresShoppingListRepo)(nil)
