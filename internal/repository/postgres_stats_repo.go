package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskman/internal/model"
)

// PostgresStatsRepo はPostgreSQLを使用した統計集計リポジトリ。
// 増分カウンタは保持せず、呼び出しごとに対象ユーザーのタスクを集計する。
// コストは対象ユーザーのタスク数に線形だが、結果は常に最新のコミット済み状態と一致する。
type PostgresStatsRepo struct {
	db *sql.DB
}

// NewPostgresStatsRepo はPostgresStatsRepoを生成する。
func NewPostgresStatsRepo(db *sql.DB) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db}
}

// GetTaskStatistics はユーザーのタスク件数統計を1回の集計クエリで返す。
// overdueは期日が今日より前（厳密に過去）かつステータスがcompleted以外のタスク数。
func (r *PostgresStatsRepo) GetTaskStatistics(ctx context.Context, userID string) (*model.TaskStatistics, error) {
	stats := &model.TaskStatistics{}
	err := r.db.QueryRowContext(ctx,
		`SELECT
		     COUNT(*),
		     COUNT(*) FILTER (WHERE status = 'pending'),
		     COUNT(*) FILTER (WHERE status = 'in_progress'),
		     COUNT(*) FILTER (WHERE status = 'completed'),
		     COUNT(*) FILTER (WHERE due_date < CURRENT_DATE AND status <> 'completed')
		 FROM tasks
		 WHERE user_id = $1`,
		userID,
	).Scan(&stats.Total, &stats.Pending, &stats.InProgress, &stats.Completed, &stats.Overdue)

	if err != nil {
		return nil, fmt.Errorf("failed to get task statistics: %w", err)
	}

	return stats, nil
}

// GetCategoryStatistics はカテゴリごとのタスク件数統計を名前昇順で返す。
// LEFT JOINによりタスクが0件のカテゴリも件数0で含まれる。
func (r *PostgresStatsRepo) GetCategoryStatistics(ctx context.Context, userID string) ([]*model.CategoryStatistics, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT
		     c.id,
		     c.name,
		     c.color,
		     COUNT(t.id),
		     COUNT(t.id) FILTER (WHERE t.status = 'completed'),
		     COUNT(t.id) FILTER (WHERE t.status = 'pending')
		 FROM categories c
		 LEFT JOIN tasks t ON t.category_id = c.id
		 WHERE c.user_id = $1
		 GROUP BY c.id, c.name, c.color
		 ORDER BY c.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get category statistics: %w", err)
	}
	defer rows.Close()

	var results []*model.CategoryStatistics
	for rows.Next() {
		stats := &model.CategoryStatistics{}
		if err := rows.Scan(
			&stats.CategoryID, &stats.Name, &stats.Color,
			&stats.TaskCount, &stats.CompletedCount, &stats.PendingCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category statistics: %w", err)
		}
		results = append(results, stats)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category statistics: %w", err)
	}

	return results, nil
}

// compile-time interface check
var _ StatsRepository = (*PostgresStatsRepo)(nil)
