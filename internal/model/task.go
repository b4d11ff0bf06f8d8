package model

import "time"

// Task はユーザーが管理するタスクを表す。
// 1ユーザーが専有し、任意で1つのカテゴリに属する。
type Task struct {
	ID          string
	UserID      string
	CategoryID  *string
	Title       string
	Description string
	DueDate     *time.Time // 日付のみを保持する（時刻成分なし）
	Priority    TaskPriority
	Status      TaskStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskStatus はタスクの進行状態を表す閉じた列挙。
// 列挙外の値はストレージ層のCHECK制約で拒否される。
type TaskStatus string

const (
	// TaskStatusPending は未着手状態。新規タスクのデフォルト。
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress は進行中状態。
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted は完了状態。
	TaskStatusCompleted TaskStatus = "completed"
)

// Valid はステータスが列挙に含まれるかを判定する。
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// TaskPriority はタスクの優先度を表す閉じた列挙。
type TaskPriority string

const (
	// TaskPriorityLow は低優先度。
	TaskPriorityLow TaskPriority = "low"
	// TaskPriorityMedium は中優先度。新規タスクのデフォルト。
	TaskPriorityMedium TaskPriority = "medium"
	// TaskPriorityHigh は高優先度。
	TaskPriorityHigh TaskPriority = "high"
)

// Valid は優先度が列挙に含まれるかを判定する。
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

// TaskSortField はタスク一覧のソートキーを表す。
type TaskSortField string

const (
	// TaskSortCreatedAt は作成日時でソートする。デフォルト。
	TaskSortCreatedAt TaskSortField = "created_at"
	// TaskSortDueDate は期日でソートする。
	TaskSortDueDate TaskSortField = "due_date"
	// TaskSortPriority は優先度（low < medium < high）でソートする。
	TaskSortPriority TaskSortField = "priority"
	// TaskSortTitle はタイトルでソートする。
	TaskSortTitle TaskSortField = "title"
)

// Valid はソートキーが列挙に含まれるかを判定する。
func (f TaskSortField) Valid() bool {
	switch f {
	case TaskSortCreatedAt, TaskSortDueDate, TaskSortPriority, TaskSortTitle:
		return true
	default:
		return false
	}
}

// SortOrder はソート方向を表す。
type SortOrder string

const (
	// SortOrderAsc は昇順。
	SortOrderAsc SortOrder = "asc"
	// SortOrderDesc は降順。デフォルト。
	SortOrderDesc SortOrder = "desc"
)

// Valid はソート方向が列挙に含まれるかを判定する。
func (o SortOrder) Valid() bool {
	return o == SortOrderAsc || o == SortOrderDesc
}

// TaskListFilter はタスク一覧の絞り込み・ソート条件を表す。
// ゼロ値のフィールドは条件なしとして扱う。
type TaskListFilter struct {
	Status       TaskStatus   // 空文字は全ステータス
	Priority     TaskPriority // 空文字は全優先度
	CategoryID   string       // 空文字は全カテゴリ
	CategoryNone bool         // 真の場合は未分類タスクのみ（CategoryIDより優先）
	DueBefore    *time.Time   // 期日の上限（両端含む）
	DueAfter     *time.Time   // 期日の下限（両端含む）
	Query        string       // タイトルの部分一致（大文字小文字を区別しない）
	SortBy       TaskSortField
	Order        SortOrder
}
