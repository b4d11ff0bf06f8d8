// Package provision は新規Identityへのプロフィールと既定カテゴリの
// 自動作成（プロビジョニング）を提供する。
//
// 元の設計ではストレージ層のトリガーが昇格ロールで行っていた処理を、
// サインアップフローから同期的に呼び出される明示的なサービスとして実装する。
// 実行はサービスプリンシパル（authz.Service()）の権限下で行われ、
// その権限はポリシーセットによりprofiles insertとcategories insertの2つに限定される。
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/taskman/internal/authz"
	"github.com/hitoshi/taskman/internal/model"
	"github.com/hitoshi/taskman/internal/repository"
)

// MetricsRecorder はプロビジョニングのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordProvisionSuccess()
	RecordProvisionFailure()
	RecordProfileRepair(created bool)
}

// Service はプロビジョニングと冪等な修復プロシージャを提供する。
type Service struct {
	profileRepo  repository.ProfileRepository
	categoryRepo repository.CategoryRepository
	policies     *authz.PolicySet
	metrics      MetricsRecorder
}

// NewService はServiceを生成する。
// metricsはnil許容で、nilの場合は記録をスキップする。
func NewService(
	profileRepo repository.ProfileRepository,
	categoryRepo repository.CategoryRepository,
	policies *authz.PolicySet,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		profileRepo:  profileRepo,
		categoryRepo: categoryRepo,
		policies:     policies,
		metrics:      metrics,
	}
}

// Provision は新規Identityに対応するプロフィールと既定カテゴリを作成する。
//
// 契約: この処理はIdentity作成を決して失敗させない。
// ステップ1（プロフィール作成）またはステップ2（既定カテゴリのシード）の
// いかなるエラーも内部でログとメトリクスに記録した上で飲み込む。
// 整合性はVerifyAndRepairと修復エンドポイントによって事後的に回復される。
func (s *Service) Provision(ctx context.Context, identityID, email, fullName string) {
	principal := authz.Service()

	// ステップ1: プロフィール作成（主キー = Identity ID、冪等）
	if err := s.insertProfile(ctx, principal, identityID, email, fullName); err != nil {
		s.recordFailure(identityID, "profile", err)
		return
	}

	// ステップ2: 既定カテゴリのシード（名前単位で冪等）
	if err := s.seedDefaultCategories(ctx, principal, identityID); err != nil {
		s.recordFailure(identityID, "categories", err)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordProvisionSuccess()
	}
	slog.Info("provisioning completed",
		slog.String("user_id", identityID),
	)
}

// EnsureProfile は冪等な修復プロシージャ。指定のIdentityにプロフィールが
// 存在することを保証する。同一IDの行が既に存在する場合は成功として扱い、
// エラーにしない（何度呼んでも同じ終端状態に収束する）。
//
// 呼び出し可能なプリンシパル: 本人（自分のIDに対してのみ）とサービスロール。
func (s *Service) EnsureProfile(ctx context.Context, principal authz.Principal, identityID, email, fullName string) error {
	if err := s.policies.Authorize(principal, authz.TableProfiles, authz.OpInsert, authz.Row{OwnerID: identityID}); err != nil {
		return err
	}

	created, err := s.profileRepo.InsertIgnoreExisting(ctx, newProfile(identityID, email, fullName))
	if err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordProfileRepair(created)
	}
	slog.Info("profile repair executed",
		slog.String("user_id", identityID),
		slog.Bool("created", created),
	)

	return nil
}

// VerifyAndRepair はプロフィールの存在を確認し、欠けていれば
// サービスプリンシパルで修復を1回試みる。
// プロビジョニングと並行しても両経路とも主キー単位で冪等なため安全。
func (s *Service) VerifyAndRepair(ctx context.Context, identityID, email, fullName string) error {
	profile, err := s.profileRepo.FindByID(ctx, identityID)
	if err != nil {
		return fmt.Errorf("failed to verify profile existence: %w", err)
	}
	if profile != nil {
		return nil
	}

	slog.Warn("profile missing after provisioning, repairing",
		slog.String("user_id", identityID),
	)
	return s.EnsureProfile(ctx, authz.Service(), identityID, email, fullName)
}

// insertProfile はサービスプリンシパルの権限でプロフィールを作成する。
func (s *Service) insertProfile(ctx context.Context, principal authz.Principal, identityID, email, fullName string) error {
	if err := s.policies.Authorize(principal, authz.TableProfiles, authz.OpInsert, authz.Row{OwnerID: identityID}); err != nil {
		return err
	}

	if _, err := s.profileRepo.InsertIgnoreExisting(ctx, newProfile(identityID, email, fullName)); err != nil {
		return err
	}
	return nil
}

// seedDefaultCategories は既定カテゴリ5件をシードする。
// 各挿入は同名カテゴリが既に存在する場合スキップされるため、
// 2回呼んでも10件にはならず5件に収束する。
func (s *Service) seedDefaultCategories(ctx context.Context, principal authz.Principal, ownerID string) error {
	for _, def := range model.DefaultCategories {
		if err := s.policies.Authorize(principal, authz.TableCategories, authz.OpInsert, authz.Row{OwnerID: ownerID}); err != nil {
			return err
		}

		now := time.Now()
		category := &model.Category{
			ID:        uuid.New().String(),
			UserID:    ownerID,
			Name:      def.Name,
			Color:     def.Color,
			CreatedAt: now,
			UpdatedAt: now,
		}

		created, err := s.categoryRepo.CreateIfNameAbsent(ctx, category)
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", def.Name, err)
		}
		if !created {
			slog.Info("default category already exists, skipped",
				slog.String("user_id", ownerID),
				slog.String("name", def.Name),
			)
		}
	}
	return nil
}

// recordFailure はプロビジョニング失敗をログとメトリクスに記録する。
// エラーは呼び出し元に伝播させない。
func (s *Service) recordFailure(identityID, step string, err error) {
	if s.metrics != nil {
		s.metrics.RecordProvisionFailure()
	}
	slog.Error("provisioning failed",
		slog.String("user_id", identityID),
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
}

// newProfile はサインアップメタデータからプロフィールを構築する。
// 表示名が無い場合は空文字で作成する。
func newProfile(identityID, email, fullName string) *model.Profile {
	now := time.Now()
	return &model.Profile{
		ID:          identityID,
		Email:       email,
		FullName:    fullName,
		Preferences: map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
