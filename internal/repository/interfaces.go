// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/taskman/internal/model"
)

// IdentityRepository は認証主体データの永続化インターフェース。
type IdentityRepository interface {
	// FindByID は指定IDのIdentityを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Identity, error)

	// FindByEmail はメールアドレスでIdentityを検索する。見つからない場合はnilを返す。
	// メールアドレスは保存時に小文字化されているため、小文字化してから渡すこと。
	FindByEmail(ctx context.Context, email string) (*model.Identity, error)

	// Create はIdentityを作成する。
	// メールアドレス重複時はEMAIL_TAKENエラーを返す。
	Create(ctx context.Context, identity *model.Identity) error

	// DeleteByID は指定IDのIdentityを削除する。
	// 関連するprofiles、categories、tasks、sessionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByTokenHash はトークンハッシュでセッションを取得する。期限切れの場合はnilを返す。
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error)
	// DeleteByTokenHash はトークンハッシュでセッションを削除する。
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定ID（= Identity ID）のプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// InsertIgnoreExisting はプロフィールを作成する。
	// 同一IDの行が既に存在する場合は何もせずfalseを返す（主キー単位で冪等）。
	// 既存行の有無以外のエラーはそのまま返す。
	InsertIgnoreExisting(ctx context.Context, profile *model.Profile) (created bool, err error)

	// Update はプロフィールの表示名・アバターURL・設定を更新する。
	// 行が存在しない場合は影響行数0としてfalseを返す。
	Update(ctx context.Context, profile *model.Profile) (updated bool, err error)
}

// CategoryRepository はカテゴリデータの永続化インターフェース。
type CategoryRepository interface {
	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)

	// ListByUserID はユーザーのカテゴリ一覧を名前昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Category, error)

	// Create はカテゴリを作成する。
	Create(ctx context.Context, category *model.Category) error

	// CreateIfNameAbsent は同名カテゴリが同一ユーザーに存在しない場合のみ作成する。
	// 既に存在する場合は何もせずfalseを返す（既定カテゴリのシード用、名前単位で冪等）。
	CreateIfNameAbsent(ctx context.Context, category *model.Category) (created bool, err error)

	// Update は所有者一致を条件にカテゴリの名前と色を更新する。
	// 行が一致しない場合は影響行数0としてfalseを返す。
	Update(ctx context.Context, category *model.Category) (updated bool, err error)

	// Delete は所有者一致を条件にカテゴリを削除する。
	// 参照しているタスクのcategory_idはON DELETE SET NULLでnullに戻る。
	// 行が一致しない場合は影響行数0としてfalseを返す。
	Delete(ctx context.Context, userID, id string) (deleted bool, err error)
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// List はユーザーのタスク一覧をフィルタ・ソート条件付きで返す。
	List(ctx context.Context, userID string, filter model.TaskListFilter) ([]*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update は所有者一致を条件にタスクを更新する。
	// 行が一致しない場合は影響行数0としてfalseを返す。
	Update(ctx context.Context, task *model.Task) (updated bool, err error)

	// Delete は所有者一致を条件にタスクを削除する。
	// 行が一致しない場合は影響行数0としてfalseを返す。
	Delete(ctx context.Context, userID, id string) (deleted bool, err error)

	// BulkUpdateStatus は複数タスクのステータスを単一トランザクションで更新する。
	// 全件成功か全件ロールバックのall-or-nothingであり、
	// 所有者が一致しないIDが1つでも含まれる場合はTASK_NOT_FOUNDエラーで全体を失敗させる。
	BulkUpdateStatus(ctx context.Context, userID string, ids []string, status model.TaskStatus) (int, error)
}

// StatsRepository は統計集計の読み取り専用インターフェース。
// 増分カウンタは持たず、呼び出しごとにコミット済み状態から集計する。
type StatsRepository interface {
	// GetTaskStatistics はユーザーのタスク件数統計を1回の集計クエリで返す。
	// overdueは期日が今日より前かつステータスがcompleted以外のタスク数。
	GetTaskStatistics(ctx context.Context, userID string) (*model.TaskStatistics, error)

	// GetCategoryStatistics はカテゴリごとのタスク件数統計を名前昇順で返す。
	// タスクが0件のカテゴリも外部結合により件数0で含まれる。
	GetCategoryStatistics(ctx context.Context, userID string) ([]*model.CategoryStatistics, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
