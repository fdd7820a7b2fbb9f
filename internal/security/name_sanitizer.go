// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NameSanitizer はリスト名・アイテム名からHTMLを除去し、
// クライアント側で描画された際のXSSを防ぐ。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NameSanitizer はユーザー入力の名前をプレーンテキストに正規化する。
type NameSanitizer interface {
	// Sanitize は全てのHTMLタグ（script/styleは内容ごと）を除去し、前後の空白を取り除く。
	// エンティティはデコードして返すため、"Ben & Jerry's" はそのまま保持される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// nameSanitizer はNameSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type nameSanitizer struct {
	policy *bluemonday.Policy
}

// NewNameSanitizer はNameSanitizerを生成する。
// 許可タグを持たないbluemondayのStrictPolicyを使用する。
func NewNameSanitizer() NameSanitizer {
	return &nameSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はHTMLを除去したプレーンテキストを返す。
func (s *nameSanitizer) Sanitize(raw string) string {
	stripped := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
