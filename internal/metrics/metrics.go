// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 各サービスは必要なRecordメソッドのみを自前のインターフェースで受け取る。
type Collector struct {
	signups         prometheus.Counter
	loginFail       prometheus.Counter
	provisionOK     prometheus.Counter
	provisionFail   prometheus.Counter
	profileRepair   *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	sessionsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskman_signup_total",
			Help: "サインアップ成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskman_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		provisionOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskman_provision_success_total",
			Help: "初期プロビジョニング成功の合計数",
		}),
		provisionFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskman_provision_fail_total",
			Help: "初期プロビジョニング失敗の合計数",
		}),
		profileRepair: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskman_profile_repair_total",
			Help: "プロフィール修復チェックの実行数（created別）",
		}, []string{"created"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskman_sessions_cleaned_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.signups,
		c.loginFail,
		c.provisionOK,
		c.provisionFail,
		c.profileRepair,
		c.httpStatus,
		c.sessionsCleaned,
	)

	return c
}

// RecordSignup はサインアップ成功を記録する。
func (c *Collector) RecordSignup() {
	c.signups.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordProvisionSuccess は初期プロビジョニング成功を記録する。
func (c *Collector) RecordProvisionSuccess() {
	c.provisionOK.Inc()
}

// RecordProvisionFailure は初期プロビジョニング失敗を記録する。
func (c *Collector) RecordProvisionFailure() {
	c.provisionFail.Inc()
}

// RecordProfileRepair はプロフィール修復チェックの結果を記録する。
// createdは修復チェックで実際にプロフィールが作成されたかどうか。
func (c *Collector) RecordProfileRepair(created bool) {
	c.profileRepair.WithLabelValues(strconv.FormatBool(created)).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSessionsCleaned はクリーンアップで削除されたセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
// ルーターが/metricsパスに直接マウントする。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
