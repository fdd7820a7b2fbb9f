// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// クライアントに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, list, item, system
	Action   string // クライアント向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeDuplicateItem      = "DUPLICATE_ITEM"
	ErrCodeUnknownMembers     = "UNKNOWN_MEMBERS"
	ErrCodeInvalidBulk        = "INVALID_BULK_SELECTION"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeListNotFound       = "LIST_NOT_FOUND"
	ErrCodeItemNotFound       = "ITEM_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeInvalidPage        = "INVALID_PAGE"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// DuplicateItemMessage は重複アイテム作成時のメッセージ。クライアントが文字列一致で判定するため変更しないこと。
const DuplicateItemMessage = "There's already this item on the list"

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(field, reason string) *APIError {
	msg := reason
	if field != "" {
		msg = fmt.Sprintf("%s: %s", field, reason)
	}
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  msg,
		Category: "validation",
		Action:   "Check the request fields and try again.",
	}
}

// NewInvalidRequestError はリクエストボディを解釈できない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "The request body could not be parsed.",
		Category: "validation",
		Action:   "Send a valid JSON object.",
	}
}

// NewDuplicateItemError は同名の未購入アイテムが既に存在する場合のエラーを生成する。
func NewDuplicateItemError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateItem,
		Message:  DuplicateItemMessage,
		Category: "item",
		Action:   "Mark the existing item as purchased or pick another name.",
	}
}

// NewUnknownMembersError は存在しないユーザーIDが指定された場合のエラーを生成する。
func NewUnknownMembersError(ids []string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownMembers,
		Message:  fmt.Sprintf("Unknown user ids: %s", strings.Join(ids, ", ")),
		Category: "validation",
		Action:   "Check the member ids. No membership change was applied.",
	}
}

// NewInvalidBulkSelectionError は一括購入対象に無効なIDが含まれる場合のエラーを生成する。
func NewInvalidBulkSelectionError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidBulk,
		Message:  "Some shopping item ids are invalid, or you do not have access to them.",
		Category: "validation",
		Action:   "Check the selected item ids. No item was updated.",
	}
}

// NewForbiddenError はリソースへのアクセス権がない場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You do not have permission to perform this action.",
		Category: "auth",
		Action:   "Ask a member of the list to add you.",
	}
}

// NewListNotFoundError はリスト未検出エラーを生成する。
func NewListNotFoundError(listID string) *APIError {
	return &APIError{
		Code:     ErrCodeListNotFound,
		Message:  fmt.Sprintf("Shopping list not found: %s", listID),
		Category: "list",
		Action:   "Check the shopping list id.",
	}
}

// NewItemNotFoundError はアイテム未検出エラーを生成する。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("Shopping item not found: %s", itemID),
		Category: "item",
		Action:   "Check the shopping item id.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found.",
		Category: "auth",
		Action:   "Log in again.",
	}
}

// NewInvalidPageError は範囲外のページが要求された場合のエラーを生成する。
func NewInvalidPageError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPage,
		Message:  "Invalid page.",
		Category: "validation",
		Action:   "Request a page between 1 and the last page.",
	}
}

// NewUnauthorizedError は認証情報がない、または無効な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication credentials were not provided or are invalid.",
		Category: "auth",
		Action:   "Obtain a token from /api/auth/token and send it in the Authorization header.",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Unable to log in with provided credentials.",
		Category: "auth",
		Action:   "Check the username and password.",
	}
}
