package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATE
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// isPQError はerrが指定SQLSTATEのPostgreSQLエラーかどうかを返す。
// constraintが空でない場合は制約名の前方一致も確認する。
func isPQError(err error, code, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != code {
		return false
	}
	return constraint == "" || strings.HasPrefix(pqErr.Constraint, constraint)
}
