package model

import "time"

// Category はタスクの分類カテゴリを表す。各カテゴリは1ユーザーが専有する。
// 名前の一意性は既定カテゴリのシード時のみ保証され、
// ユーザーによる任意作成では重複を許容する。
type Category struct {
	ID        string
	UserID    string
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultCategoryColor は色指定のないカテゴリに適用される既定色。
const DefaultCategoryColor = "#3B82F6"

// DefaultCategory は新規ユーザーにシードする既定カテゴリの定義。
type DefaultCategory struct {
	Name  string
	Color string
}

// DefaultCategories は新規Identity作成時にシードされる既定カテゴリのセット。
// シードは名前単位で冪等であり、同名カテゴリが既に存在する場合はスキップされる。
var DefaultCategories = []DefaultCategory{
	{Name: "Work", Color: "#3B82F6"},
	{Name: "Personal", Color: "#10B981"},
	{Name: "Learning", Color: "#8B5CF6"},
	{Name: "Health", Color: "#EF4444"},
	{Name: "Finance", Color: "#F59E0B"},
}
