// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Username     string
	PasswordHash string // bcryptハッシュ
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor はリクエストを実行している認証済みユーザーを表す。
// 認証ミドルウェアがリクエストコンテキストに注入する。
type Actor struct {
	UserID  string
	IsAdmin bool
}

// Member は買い物リストのメンバーとして公開されるユーザー情報。
type Member struct {
	ID       string
	Username string
}
