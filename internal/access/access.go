// Package access はメンバーシップに基づくアクセス制御を提供する。
//
// 管理者は常に許可される。それ以外のユーザーは、リスト（アイテムの場合は所属リスト）の
// メンバーである場合のみ許可される。拒否はFORBIDDENのAPIErrorとして返す。
package access

import (
	"context"
	"fmt"

	"github.com/hitoshi/shoplist/internal/model"
)

// MembershipChecker はメンバーシップ判定に必要なリポジトリ操作。
type MembershipChecker interface {
	IsMember(ctx context.Context, listID, userID string) (bool, error)
}

// Policy はメンバーシップに基づくアクセスポリシー。
type Policy struct {
	members MembershipChecker
}

// NewPolicy はPolicyを生成する。
func NewPolicy(members MembershipChecker) *Policy {
	return &Policy{members: members}
}

// AuthorizeList はactorが指定リストにアクセスできるかを判定する。
// 許可されない場合は*model.APIError（FORBIDDEN）を返す。
func (p *Policy) AuthorizeList(ctx context.Context, actor model.Actor, listID string) error {
	if actor.IsAdmin {
		return nil
	}

	ok, err := p.members.IsMember(ctx, listID, actor.UserID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return model.NewForbiddenError()
	}
	return nil
}

// AuthorizeItem はactorが指定アイテムにアクセスできるかを所属リストで判定する。
func (p *Policy) AuthorizeItem(ctx context.Context, actor model.Actor, item *model.ShoppingItem) error {
	return p.AuthorizeList(ctx, actor, item.ShoppingListID)
}
