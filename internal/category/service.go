// Package category はカテゴリ管理のドメインロジックを提供する。
package category

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/taskman/internal/authz"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// maxNameLength はカテゴリ名の最大文字数。
const maxNameLength = 100

// colorPattern は色指定のhex形式（#RGB または #RRGGBB）。
var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Sanitizer は入力テキストのサニタイズインターフェース。
type Sanitizer interface {
	SanitizeText(raw string) string
}

// Service はカテゴリ管理のサービス層。
// すべての操作はリポジトリに触れる前にポリシーセットの認可を通す。
type Service struct {
	categoryRepo repository.CategoryRepository
	sanitizer    Sanitizer
	policies     *authz.PolicySet
}

// NewService はServiceを生成する。
func NewService(
	categoryRepo repository.CategoryRepository,
	sanitizer Sanitizer,
	policies *authz.PolicySet,
) *Service {
	return &Service{
		categoryRepo: categoryRepo,
		sanitizer:    sanitizer,
		policies:     policies,
	}
}

// List はユーザーのカテゴリ一覧を名前昇順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Category, error) {
	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableCategories, authz.OpSelect, authz.Row{OwnerID: userID}); err != nil {
		return nil, err
	}

	return s.categoryRepo.ListByUserID(ctx, userID)
}

// Create はカテゴリを作成する。
// 名前はサニタイズ後に検証し、色が未指定の場合は既定色を適用する。
// 同名カテゴリの重複は許容される（名前の一意性は既定カテゴリのシードのみが保証する）。
func (s *Service) Create(ctx context.Context, userID, name, color string) (*model.Category, error) {
	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableCategories, authz.OpInsert, authz.Row{OwnerID: userID}); err != nil {
		return nil, err
	}

	name = s.sanitizer.SanitizeText(name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	if color == "" {
		color = model.DefaultCategoryColor
	}
	if err := validateColor(color); err != nil {
		return nil, err
	}

	now := time.Now()
	category := &model.Category{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// UpdateParams はカテゴリ更新の入力。nilフィールドは変更しない。
type UpdateParams struct {
	Name  *string
	Color *string
}

// Update はカテゴリの名前と色を更新する。
// 他ユーザーが所有するカテゴリへの操作はACCESS_DENIEDで拒否される。
func (s *Service) Update(ctx context.Context, userID, categoryID string, params UpdateParams) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(categoryID)
	}

	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableCategories, authz.OpUpdate, authz.Row{OwnerID: category.UserID}); err != nil {
		return nil, err
	}

	if params.Name != nil {
		name := s.sanitizer.SanitizeText(*params.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		category.Name = name
	}

	if params.Color != nil {
		if err := validateColor(*params.Color); err != nil {
			return nil, err
		}
		category.Color = *params.Color
	}

	category.UpdatedAt = time.Now()

	updated, err := s.categoryRepo.Update(ctx, category)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, model.NewCategoryNotFoundError(categoryID)
	}

	return category, nil
}

// Delete はカテゴリを削除する。
// 参照しているタスクは削除されず、category_idがnullに戻る。
func (s *Service) Delete(ctx context.Context, userID, categoryID string) error {
	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return model.NewCategoryNotFoundError(categoryID)
	}

	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableCategories, authz.OpDelete, authz.Row{OwnerID: category.UserID}); err != nil {
		return err
	}

	deleted, err := s.categoryRepo.Delete(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewCategoryNotFoundError(categoryID)
	}

	return nil
}

// validateName はカテゴリ名を検証する。サニタイズ後の値に対して呼ぶこと。
func validateName(name string) error {
	if name == "" {
		return model.NewValidationError("カテゴリ名が空です")
	}
	if len(name) > maxNameLength {
		return model.NewValidationError(fmt.Sprintf("カテゴリ名は%d文字以内にしてください", maxNameLength))
	}
	return nil
}

// validateColor は色指定を検証する。
func validateColor(color string) error {
	if !colorPattern.MatchString(color) {
		return model.NewValidationError("色は#RGBまたは#RRGGBB形式で指定してください")
	}
	return nil
}
