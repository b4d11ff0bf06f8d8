package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskman/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	category := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, color, created_at, updated_at
		 FROM categories WHERE id = $1`,
		id,
	).Scan(
		&category.ID, &category.UserID, &category.Name, &category.Color,
		&category.CreatedAt, &category.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

// ListByUserID はユーザーのカテゴリ一覧を名前昇順で返す。
func (r *PostgresCategoryRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, color, created_at, updated_at
		 FROM categories
		 WHERE user_id = $1
		 ORDER BY name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		category := &model.Category{}
		if err := rows.Scan(
			&category.ID, &category.UserID, &category.Name, &category.Color,
			&category.CreatedAt, &category.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, nil
}

// Create はカテゴリを作成する。
// 同一ユーザー内の同名カテゴリは許容される（一意制約なし）。
func (r *PostgresCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, color, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		category.ID, category.UserID, category.Name, category.Color,
		category.CreatedAt, category.UpdatedAt,
	)
	if err != nil {
		return translateWriteError(err, "failed to insert category")
	}
	return nil
}

// CreateIfNameAbsent は同名カテゴリが同一ユーザーに存在しない場合のみ作成する。
// INSERT ... WHERE NOT EXISTSにより検査と挿入を単一文で行い、
// 既存の場合は影響行数0としてfalseを返す。既定カテゴリのシードを名前単位で冪等にする。
func (r *PostgresCategoryRepo) CreateIfNameAbsent(ctx context.Context, category *model.Category) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, color, created_at, updated_at)
		 SELECT $1, $2, $3, $4, $5, $6
		 WHERE NOT EXISTS (
		     SELECT 1 FROM categories WHERE user_id = $2 AND name = $3
		 )`,
		category.ID, category.UserID, category.Name, category.Color,
		category.CreatedAt, category.UpdatedAt,
	)
	if err != nil {
		return false, translateWriteError(err, "failed to insert default category")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Update は所有者一致を条件にカテゴリの名前と色を更新する。
// 他ユーザーの行はWHERE句で一致しないため影響行数0となり、データは漏洩しない。
func (r *PostgresCategoryRepo) Update(ctx context.Context, category *model.Category) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE categories
		 SET name = $3, color = $4
		 WHERE id = $1 AND user_id = $2`,
		category.ID, category.UserID, category.Name, category.Color,
	)
	if err != nil {
		return false, translateWriteError(err, "failed to update category")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Delete は所有者一致を条件にカテゴリを削除する。
// 参照しているタスクのcategory_idはON DELETE SET NULLによりnullに戻る。
func (r *PostgresCategoryRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
