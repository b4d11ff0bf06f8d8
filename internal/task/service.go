// Package task はタスク管理のドメインロジックを提供する。
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/taskman/internal/authz"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

const (
	// maxTitleLength はタイトルの最大文字数。
	maxTitleLength = 255
	// maxDescriptionLength は説明の最大文字数（アプリケーション層の検証）。
	maxDescriptionLength = 1000
	// maxBulkUpdateIDs は一括ステータス更新の対象ID数上限。
	maxBulkUpdateIDs = 100
)

// Sanitizer は入力テキストのサニタイズインターフェース。
type Sanitizer interface {
	SanitizeText(raw string) string
}

// Service はタスク管理のサービス層。
// すべての操作はリポジトリに触れる前にポリシーセットの認可を通す。
type Service struct {
	taskRepo     repository.TaskRepository
	categoryRepo repository.CategoryRepository
	sanitizer    Sanitizer
	policies     *authz.PolicySet
}

// NewService はServiceを生成する。
func NewService(
	taskRepo repository.TaskRepository,
	categoryRepo repository.CategoryRepository,
	sanitizer Sanitizer,
	policies *authz.PolicySet,
) *Service {
	return &Service{
		taskRepo:     taskRepo,
		categoryRepo: categoryRepo,
		sanitizer:    sanitizer,
		policies:     policies,
	}
}

// List はユーザーのタスク一覧をフィルタ・ソート条件付きで返す。
// 無効なフィルタ値は終端の検証エラーとして拒否する。
func (s *Service) List(ctx context.Context, userID string, filter model.TaskListFilter) ([]*model.Task, error) {
	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableTasks, authz.OpSelect, authz.Row{OwnerID: userID}); err != nil {
		return nil, err
	}

	if err := validateFilter(&filter); err != nil {
		return nil, err
	}

	return s.taskRepo.List(ctx, userID, filter)
}

// Get は指定IDのタスクを取得する。
// 他ユーザーが所有するタスクへのアクセスはACCESS_DENIEDで拒否される。
func (s *Service) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableTasks, authz.OpSelect, authz.Row{OwnerID: task.UserID}); err != nil {
		return nil, err
	}

	return task, nil
}

// CreateParams はタスク作成の入力。
type CreateParams struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    model.TaskPriority // 空文字はデフォルト（medium）
	Status      model.TaskStatus   // 空文字はデフォルト（pending）
	CategoryID  *string
}

// Create はタスクを作成する。
// カテゴリ参照は同一ユーザーが所有するカテゴリに限り、
// 他ユーザーのカテゴリや存在しないカテゴリの参照は検証エラーとして拒否する。
func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*model.Task, error) {
	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableTasks, authz.OpInsert, authz.Row{OwnerID: userID}); err != nil {
		return nil, err
	}

	title := s.sanitizer.SanitizeText(params.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	description := s.sanitizer.SanitizeText(params.Description)
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	priority := params.Priority
	if priority == "" {
		priority = model.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("無効な優先度です: %s", priority))
	}

	status := params.Status
	if status == "" {
		status = model.TaskStatusPending
	}
	if !status.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("無効なステータスです: %s", status))
	}

	if params.CategoryID != nil {
		if err := s.validateCategoryOwnership(ctx, userID, *params.CategoryID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		CategoryID:  params.CategoryID,
		Title:       title,
		Description: description,
		DueDate:     params.DueDate,
		Priority:    priority,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// UpdateParams はタスク更新の入力。nilフィールドは変更しない。
// DueDate/CategoryIDのクリアは対応するClearフラグで明示する。
type UpdateParams struct {
	Title         *string
	Description   *string
	DueDate       *time.Time
	ClearDueDate  bool
	CategoryID    *string
	ClearCategory bool
	Priority      model.TaskPriority // 空文字は変更なし
	Status        model.TaskStatus   // 空文字は変更なし
}

// Update はタスクを更新する。
// 同一タスクへの並行更新に競合検出はなく、最後の書き込みが勝つ。
func (s *Service) Update(ctx context.Context, userID, taskID string, params UpdateParams) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableTasks, authz.OpUpdate, authz.Row{OwnerID: task.UserID}); err != nil {
		return nil, err
	}

	if params.Title != nil {
		title := s.sanitizer.SanitizeText(*params.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		task.Title = title
	}

	if params.Description != nil {
		description := s.sanitizer.SanitizeText(*params.Description)
		if err := validateDescription(description); err != nil {
			return nil, err
		}
		task.Description = description
	}

	if params.ClearDueDate {
		task.DueDate = nil
	} else if params.DueDate != nil {
		task.DueDate = params.DueDate
	}

	if params.ClearCategory {
		task.CategoryID = nil
	} else if params.CategoryID != nil {
		if err := s.validateCategoryOwnership(ctx, userID, *params.CategoryID); err != nil {
			return nil, err
		}
		task.CategoryID = params.CategoryID
	}

	if params.Priority != "" {
		if !params.Priority.Valid() {
			return nil, model.NewValidationError(fmt.Sprintf("無効な優先度です: %s", params.Priority))
		}
		task.Priority = params.Priority
	}

	if params.Status != "" {
		if !params.Status.Valid() {
			return nil, model.NewValidationError(fmt.Sprintf("無効なステータスです: %s", params.Status))
		}
		task.Status = params.Status
	}

	task.UpdatedAt = time.Now()

	updated, err := s.taskRepo.Update(ctx, task)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	return task, nil
}

// Delete はタスクを削除する。
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return model.NewTaskNotFoundError(taskID)
	}

	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableTasks, authz.OpDelete, authz.Row{OwnerID: task.UserID}); err != nil {
		return err
	}

	deleted, err := s.taskRepo.Delete(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewTaskNotFoundError(taskID)
	}

	return nil
}

// BulkUpdateStatus は複数タスクのステータスを単一トランザクションで一括更新する。
// all-or-nothing: 所有タスクでないIDが含まれる場合は全体が失敗し、1件も更新されない。
// 更新されたタスク数を返す。
func (s *Service) BulkUpdateStatus(ctx context.Context, userID string, ids []string, status model.TaskStatus) (int, error) {
	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableTasks, authz.OpUpdate, authz.Row{OwnerID: userID}); err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		return 0, model.NewValidationError("更新対象のタスクIDが空です")
	}
	if len(ids) > maxBulkUpdateIDs {
		return 0, model.NewValidationError(fmt.Sprintf("一括更新は%d件までです", maxBulkUpdateIDs))
	}
	if !status.Valid() {
		return 0, model.NewValidationError(fmt.Sprintf("無効なステータスです: %s", status))
	}

	return s.taskRepo.BulkUpdateStatus(ctx, userID, ids, status)
}

// validateCategoryOwnership はカテゴリ参照が本人所有のカテゴリを指すことを検証する。
func (s *Service) validateCategoryOwnership(ctx context.Context, userID, categoryID string) error {
	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil || category.UserID != userID {
		return model.NewValidationError(fmt.Sprintf("指定されたカテゴリは使用できません: %s", categoryID))
	}
	return nil
}

// validateTitle はタイトルを検証する。サニタイズ後の値に対して呼ぶこと。
func validateTitle(title string) error {
	if title == "" {
		return model.NewValidationError("タイトルが空です")
	}
	if len(title) > maxTitleLength {
		return model.NewValidationError(fmt.Sprintf("タイトルは%d文字以内にしてください", maxTitleLength))
	}
	return nil
}

// validateDescription は説明を検証する。
func validateDescription(description string) error {
	if len(description) > maxDescriptionLength {
		return model.NewValidationError(fmt.Sprintf("説明は%d文字以内にしてください", maxDescriptionLength))
	}
	return nil
}

// validateFilter は一覧フィルタの列挙値を検証し、未指定のソート条件に既定値を適用する。
func validateFilter(filter *model.TaskListFilter) error {
	if filter.Status != "" && !filter.Status.Valid() {
		return model.NewInvalidFilterError(fmt.Sprintf("無効なステータスです: %s", filter.Status))
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return model.NewInvalidFilterError(fmt.Sprintf("無効な優先度です: %s", filter.Priority))
	}
	if filter.SortBy == "" {
		filter.SortBy = model.TaskSortCreatedAt
	}
	if !filter.SortBy.Valid() {
		return model.NewInvalidFilterError(fmt.Sprintf("無効なソートキーです: %s", filter.SortBy))
	}
	if filter.Order == "" {
		filter.Order = model.SortOrderDesc
	}
	if !filter.Order.Valid() {
		return model.NewInvalidFilterError(fmt.Sprintf("無効なソート方向です: %s", filter.Order))
	}
	return nil
}
