package model

// TaskStatistics はユーザーのタスク件数統計を表す。
// 呼び出し時点のコミット済み状態から都度集計され、増分カウンタは持たない。
type TaskStatistics struct {
	Total      int
	Pending    int
	InProgress int
	Completed  int
	// Overdue は期日が過去かつ未完了のタスク数。
	Overdue int
}

// CategoryStatistics はカテゴリごとのタスク件数統計を表す。
// タスクが0件のカテゴリも件数0として含まれる。
type CategoryStatistics struct {
	CategoryID     string
	Name           string
	Color          string
	TaskCount      int
	CompletedCount int
	PendingCount   int
}
