package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/shoplist/internal/model"
)

// 未購入アイテム名の部分一意インデックス名
const unpurchasedNameIndex = "shopping_items_unpurchased_name_idx"

// PostgresShoppingItemRepo はPostgreSQLを使用した買い物アイテムリポジトリ。
type PostgresShoppingItemRepo struct {
	db *sql.DB
}

// NewPostgresShoppingItemRepo はPostgresShoppingItemRepoを生成する。
func NewPostgresShoppingItemRepo(db *sql.DB) *PostgresShoppingItemRepo {
	return &PostgresShoppingItemRepo{db: db}
}

// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
func (r *PostgresShoppingItemRepo) FindByID(ctx context.Context, id string) (*model.ShoppingItem, error) {
	item := &model.ShoppingItem{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, list_id, name, purchased, created_at, updated_at
		 FROM shopping_items WHERE id = $1`,
		id,
	).Scan(&item.ID, &item.ShoppingListID, &item.Name, &item.Purchased, &item.CreatedAt, &item.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アイテムの取得に失敗しました: %w", err)
	}
	return item, nil
}

// ListByList はリストのアイテムを未購入を先に、作成順で返す。
func (r *PostgresShoppingItemRepo) ListByList(ctx context.Context, listID string, limit, offset int) ([]*model.ShoppingItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, list_id, name, purchased, created_at, updated_at
		 FROM shopping_items
		 WHERE list_id = $1
		 ORDER BY purchased ASC, created_at ASC, id ASC
		 LIMIT $2 OFFSET $3`,
		listID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("アイテム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	items := []*model.ShoppingItem{}
	for rows.Next() {
		item := &model.ShoppingItem{}
		if err := rows.Scan(&item.ID, &item.ShoppingListID, &item.Name, &item.Purchased, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("アイテムのスキャンに失敗しました: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アイテムの走査に失敗しました: %w", err)
	}
	return items, nil
}

// CountByList はリストのアイテム数を返す。
func (r *PostgresShoppingItemRepo) CountByList(ctx context.Context, listID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM shopping_items WHERE list_id = $1`,
		listID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("アイテム数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// ExistsUnpurchasedByName はリストに同名の未購入アイテムが存在するかどうかを返す。
func (r *PostgresShoppingItemRepo) ExistsUnpurchasedByName(ctx context.Context, listID, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM shopping_items WHERE list_id = $1 AND name = $2 AND NOT purchased)`,
		listID, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("重複アイテムの確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Create はアイテムを作成する。
// 同時作成で事前チェックをすり抜けた場合も部分一意インデックスで検出する。
func (r *PostgresShoppingItemRepo) Create(ctx context.Context, item *model.ShoppingItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shopping_items (id, list_id, name, purchased, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.ShoppingListID, item.Name, item.Purchased, item.CreatedAt, item.UpdatedAt,
	)
	if isPQError(err, pqUniqueViolation, unpurchasedNameIndex) {
		return ErrDuplicateUnpurchased
	}
	if err != nil {
		return fmt.Errorf("アイテムの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はアイテムの名前と購入状態を更新する。
func (r *PostgresShoppingItemRepo) Update(ctx context.Context, item *model.ShoppingItem, purchasedChanged bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE shopping_items SET name = $2, purchased = $3, updated_at = $4 WHERE id = $1`,
		item.ID, item.Name, item.Purchased, item.UpdatedAt,
	)
	if isPQError(err, pqUniqueViolation, unpurchasedNameIndex) {
		return ErrDuplicateUnpurchased
	}
	if err != nil {
		return fmt.Errorf("アイテムの更新に失敗しました: %w", err)
	}

	if purchasedChanged {
		_, err = tx.ExecContext(ctx,
			`UPDATE shopping_lists SET last_interaction = $2 WHERE id = $1`,
			item.ShoppingListID, item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("last_interactionの更新に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete は指定IDのアイテムを削除する。
func (r *PostgresShoppingItemRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM shopping_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("アイテムの削除に失敗しました: %w", err)
	}
	return nil
}

// DeletePurchased は購入済みアイテムを削除し、削除件数を返す。
func (r *PostgresShoppingItemRepo) DeletePurchased(ctx context.Context, memberID string) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if memberID == "" {
		result, err = r.db.ExecContext(ctx, `DELETE FROM shopping_items WHERE purchased`)
	} else {
		result, err = r.db.ExecContext(ctx,
			`DELETE FROM shopping_items
			 WHERE purchased
			   AND list_id IN (SELECT list_id FROM shopping_list_members WHERE user_id = $1)`,
			memberID,
		)
	}
	if err != nil {
		return 0, fmt.Errorf("購入済みアイテムの削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// MarkPurchased は指定アイテムを全て購入済みにする。
// 対象行をFOR UPDATEでロックし、全IDが揃うことを確認してから更新する。
func (r *PostgresShoppingItemRepo) MarkPurchased(ctx context.Context, ids []string, memberID string, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM (
		   SELECT i.id FROM shopping_items i
		   WHERE i.id = ANY($1::uuid[])
		     AND ($2 = '' OR EXISTS (
		       SELECT 1 FROM shopping_list_members m
		       WHERE m.list_id = i.list_id AND m.user_id::text = $2))
		   FOR UPDATE OF i
		 ) locked`,
		pq.Array(ids), memberID,
	).Scan(&locked)
	if err != nil {
		return 0, fmt.Errorf("一括購入対象のロックに失敗しました: %w", err)
	}
	if locked != len(ids) {
		return 0, ErrItemsUnavailable
	}

	rows, err := tx.QueryContext(ctx,
		`UPDATE shopping_items SET purchased = TRUE, updated_at = $2
		 WHERE id = ANY($1::uuid[]) AND NOT purchased
		 RETURNING list_id`,
		pq.Array(ids), at,
	)
	if err != nil {
		return 0, fmt.Errorf("一括購入の更新に失敗しました: %w", err)
	}
	var listIDs []string
	seen := make(map[string]bool)
	changed := 0
	for rows.Next() {
		var listID string
		if err := rows.Scan(&listID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan list id: %w", err)
		}
		changed++
		if !seen[listID] {
			seen[listID] = true
			listIDs = append(listIDs, listID)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate updated items: %w", err)
	}

	if len(listIDs) > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE shopping_lists SET last_interaction = $2 WHERE id = ANY($1::uuid[])`,
			pq.Array(listIDs), at,
		)
		if err != nil {
			return 0, fmt.Errorf("last_interactionの更新に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return changed, nil
}

// DeletePurchasedBefore はcutoffより前に購入済みとなったアイテムを削除し、削除件数を返す。
func (r *PostgresShoppingItemRepo) DeletePurchasedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM shopping_items WHERE purchased AND updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("古い購入済みアイテムの削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ ShoppingItemRepository = (*PostgresShoppingItemRepo)(nil)
