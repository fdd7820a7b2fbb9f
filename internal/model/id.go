package model

import "github.com/google/uuid"

// NormalizeID はUUID文字列を小文字ハイフン区切りの正規形に変換する。
// 大文字、波括弧、urn:uuid:接頭辞、ハイフンなしの形式も受け付ける。UUIDとして解釈できない場合はfalse。
func NormalizeID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
