package repository

import (
	"errors"
	"fmt"

	"github.com/hitoshi/taskman/internal/model"
	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATEコード。
// ストレージ層の制約違反を終端エラーとしてAPIエラーに変換するために使用する。
const (
	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"
	sqlstateCheckViolation      = "23514"
	sqlstateStringTooLong       = "22001"
)

// translateWriteError は書き込みエラーをAPIエラーまたはラップ済みエラーに変換する。
// CHECK制約違反（列挙外の値、空文字）と文字数超過は検証エラー、
// 外部キー違反は参照不正の検証エラーとして呼び出し元に伝播する。
// 一意制約違反はここでは変換しない。冪等に扱うべき箇所は
// INSERT ... ON CONFLICT / WHERE NOT EXISTS で事前に回避すること。
func translateWriteError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case sqlstateCheckViolation:
			return model.NewValidationError(fmt.Sprintf("制約違反: %s", pqErr.Constraint))
		case sqlstateStringTooLong:
			return model.NewValidationError("文字数が上限を超えています")
		case sqlstateForeignKeyViolation:
			return model.NewValidationError(fmt.Sprintf("参照先が存在しません: %s", pqErr.Constraint))
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// isUniqueViolation はエラーが一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == sqlstateUniqueViolation
}
