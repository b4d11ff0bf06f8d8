// Package schedule はワーカージョブの日次スケジューリングを提供する。
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Job はスケジュール実行可能なジョブのインターフェース。
type Job interface {
	Run(ctx context.Context) error
}

// DailyScheduler はジョブを毎日決まった時刻に実行するスケジューラ。
// cronのエントリ登録と停止処理をラップする。
type DailyScheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewDailyScheduler はDailySchedulerを生成する。
func NewDailyScheduler(logger *slog.Logger) *DailyScheduler {
	return &DailyScheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Add はジョブを毎日at（HH:MM、サーバーローカル時刻）に実行するよう登録する。
func (s *DailyScheduler) Add(name, at string, job Job) error {
	spec, err := BuildDailySpec(at)
	if err != nil {
		return err
	}
	return s.addSpec(name, spec, job)
}

// AddEvery はジョブを固定間隔で実行するよう登録する。
// 間隔は1秒以上を指定する。
func (s *DailyScheduler) AddEvery(name string, interval time.Duration, job Job) error {
	if interval < time.Second {
		return fmt.Errorf("interval for job %q must be at least 1s, got %v", name, interval)
	}
	return s.addSpec(name, fmt.Sprintf("@every %s", interval), job)
}

// addSpec はcron式でジョブを登録し、実行前後のログ出力をラップする。
func (s *DailyScheduler) addSpec(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Info("scheduled job starting", slog.String("job", name))
		if err := job.Run(context.Background()); err != nil {
			s.logger.Error("scheduled job failed",
				slog.String("job", name),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.Info("scheduled job completed", slog.String("job", name))
	})
	if err != nil {
		return fmt.Errorf("failed to register job %q: %w", name, err)
	}

	s.logger.Info("scheduled job registered",
		slog.String("job", name),
		slog.String("spec", spec),
	)
	return nil
}

// Start はスケジューラを起動し、コンテキストのキャンセルまでブロックする。
// キャンセル時は実行中のジョブの完了を待ってから戻る。
func (s *DailyScheduler) Start(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

// BuildDailySpec はHH:MM形式の時刻を毎日実行のcron式に変換する。
func BuildDailySpec(at string) (string, error) {
	parts := strings.SplitN(at, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("schedule time must be in HH:MM format, got %q", at)
	}
	return fmt.Sprintf("%s %s * * *", strings.TrimPrefix(parts[1], "0"), strings.TrimPrefix(parts[0], "0")), nil
}
