package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/taskman/internal/model"
)

// taskColumns はtasksテーブルのSELECT対象カラム。
const taskColumns = `id, user_id, category_id, title, description, due_date, priority, status, created_at, updated_at`

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`,
		id,
	)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task by ID: %w", err)
	}

	return task, nil
}

// List はユーザーのタスク一覧をフィルタ・ソート条件付きで返す。
// フィルタの妥当性検証はサービス層で済んでいる前提であり、
// SQLにはプレースホルダ経由の値と固定のカラム名のみを埋め込む。
func (r *PostgresTaskRepo) List(ctx context.Context, userID string, filter model.TaskListFilter) ([]*model.Task, error) {
	query, args := buildTaskListQuery(userID, filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// Create はタスクを作成する。
// 列挙外のstatus/priorityはCHECK制約違反として検証エラーになる。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, category_id, title, description, due_date, priority, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.UserID, task.CategoryID, task.Title, task.Description,
		task.DueDate, task.Priority, task.Status, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return translateWriteError(err, "failed to insert task")
	}
	return nil
}

// Update は所有者一致を条件にタスクを更新する。
// updated_atはストレージ層のBEFORE UPDATEトリガーが自動更新する。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks
		 SET category_id = $3, title = $4, description = $5, due_date = $6, priority = $7, status = $8
		 WHERE id = $1 AND user_id = $2`,
		task.ID, task.UserID, task.CategoryID, task.Title, task.Description,
		task.DueDate, task.Priority, task.Status,
	)
	if err != nil {
		return false, translateWriteError(err, "failed to update task")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// Delete は所有者一致を条件にタスクを削除する。
func (r *PostgresTaskRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// BulkUpdateStatus は複数タスクのステータスを単一トランザクションで更新する。
// all-or-nothing: 所有者が一致しないIDが1つでも含まれる場合は
// 最初に見つかった不一致IDを示すTASK_NOT_FOUNDエラーで全体をロールバックする。
func (r *PostgresTaskRepo) BulkUpdateStatus(ctx context.Context, userID string, ids []string, status model.TaskStatus) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	updated := 0
	for _, id := range ids {
		result, err := tx.ExecContext(ctx,
			`UPDATE tasks SET status = $3 WHERE id = $1 AND user_id = $2`,
			id, userID, status,
		)
		if err != nil {
			return 0, translateWriteError(err, "failed to bulk update task status")
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return 0, model.NewTaskNotFoundError(id)
		}
		updated++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return updated, nil
}

// buildTaskListQuery はフィルタ・ソート条件からSELECT文とバインド引数を構築する。
// ソートキーとソート方向はmodel側の閉じた列挙を固定文字列に変換して埋め込み、
// ユーザー入力をSQLに直接連結しない。
func buildTaskListQuery(userID string, filter model.TaskListFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`)
	args := []any{userID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		fmt.Fprintf(&sb, ` AND status = $%d`, len(args))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		fmt.Fprintf(&sb, ` AND priority = $%d`, len(args))
	}
	if filter.CategoryNone {
		sb.WriteString(` AND category_id IS NULL`)
	} else if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		fmt.Fprintf(&sb, ` AND category_id = $%d`, len(args))
	}
	if filter.DueAfter != nil {
		args = append(args, *filter.DueAfter)
		fmt.Fprintf(&sb, ` AND due_date >= $%d`, len(args))
	}
	if filter.DueBefore != nil {
		args = append(args, *filter.DueBefore)
		fmt.Fprintf(&sb, ` AND due_date <= $%d`, len(args))
	}
	if filter.Query != "" {
		args = append(args, "%"+escapeLikePattern(filter.Query)+"%")
		fmt.Fprintf(&sb, ` AND title ILIKE $%d`, len(args))
	}

	sb.WriteString(` ORDER BY ` + taskSortExpression(filter.SortBy))
	if filter.Order == model.SortOrderAsc {
		sb.WriteString(` ASC`)
	} else {
		sb.WriteString(` DESC`)
	}
	// 同値のタイミングでも安定した並びになるようIDで補助ソートする
	sb.WriteString(`, id ASC`)

	return sb.String(), args
}

// taskSortExpression はソートキーをORDER BY式に変換する。
// priorityは辞書順ではなくlow < medium < highの意味順で並べる。
func taskSortExpression(field model.TaskSortField) string {
	switch field {
	case model.TaskSortDueDate:
		return `due_date`
	case model.TaskSortPriority:
		return `CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 END`
	case model.TaskSortTitle:
		return `title`
	default:
		return `created_at`
	}
}

// escapeLikePattern はLIKE/ILIKEパターンのメタ文字をエスケープする。
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// rowScanner は*sql.Rowと*sql.Rowsの共通Scanインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask は1行をmodel.Taskに変換する。
func scanTask(row rowScanner) (*model.Task, error) {
	task := &model.Task{}
	var categoryID sql.NullString
	var dueDate sql.NullTime

	err := row.Scan(
		&task.ID, &task.UserID, &categoryID, &task.Title, &task.Description,
		&dueDate, &task.Priority, &task.Status, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		task.CategoryID = &categoryID.String
	}
	if dueDate.Valid {
		d := dueDate.Time
		task.DueDate = &d
	}

	return task, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
