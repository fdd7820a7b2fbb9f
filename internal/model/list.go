// Package model はドメインモデルを定義する。
package model

import "time"

// ShoppingList はメンバー間で共有される買い物リストを表す。
type ShoppingList struct {
	ID   string
	Name string
	// LastInteraction はリスト作成時と、含まれるアイテムの購入状態が変化した時に更新される。
	LastInteraction time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Members はリストへのアクセス権を持つユーザー。
	Members []Member
	// UnpurchasedItemNames は未購入アイテムの名前（作成順）。
	UnpurchasedItemNames []string
}

// MemberIDs はメンバーのユーザーIDを順序を保って返す。
func (l *ShoppingList) MemberIDs() []string {
	ids := make([]string, len(l.Members))
	for i, m := range l.Members {
		ids[i] = m.ID
	}
	return ids
}

// HasMember は指定ユーザーがリストのメンバーかどうかを返す。
func (l *ShoppingList) HasMember(userID string) bool {
	for _, m := range l.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}
