// Package stats はダッシュボード向けの統計集計を提供する。
// 読み取り専用で副作用を持たず、任意の並行度で安全に呼び出せる。
package stats

import (
	"context"

	"github.com/hitoshi/taskman/internal/authz"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// Service は統計集計のサービス層。
type Service struct {
	statsRepo repository.StatsRepository
	policies  *authz.PolicySet
}

// NewService はServiceを生成する。
func NewService(statsRepo repository.StatsRepository, policies *authz.PolicySet) *Service {
	return &Service{
		statsRepo: statsRepo,
		policies:  policies,
	}
}

// GetTaskStatistics はユーザーのタスク件数統計を返す。
// キャッシュは持たず、呼び出しのたびにコミット済み状態から集計する。
func (s *Service) GetTaskStatistics(ctx context.Context, userID string) (*model.TaskStatistics, error) {
	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableTasks, authz.OpSelect, authz.Row{OwnerID: userID}); err != nil {
		return nil, err
	}

	return s.statsRepo.GetTaskStatistics(ctx, userID)
}

// GetCategoryStatistics はカテゴリごとのタスク件数統計を名前昇順で返す。
// タスクが0件のカテゴリも件数0で含まれる。
func (s *Service) GetCategoryStatistics(ctx context.Context, userID string) ([]*model.CategoryStatistics, error) {
	principal := authz.Authenticated(userID)
	if err := s.policies.Authorize(principal, authz.TableCategories, authz.OpSelect, authz.Row{OwnerID: userID}); err != nil {
		return nil, err
	}

	return s.statsRepo.GetCategoryStatistics(ctx, userID)
}
