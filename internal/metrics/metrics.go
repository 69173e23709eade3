// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層やミドルウェアから利用する。
type MetricsCollector interface {
	RecordSignup(userType string)
	RecordSigninSuccess()
	RecordSigninFailure()
	RecordRoleResolution(state string)
	RecordBookingCreated()
	RecordBookingStatusChange(status string)
	RecordNotificationFailure()
	RecordHTTPStatus(statusCode int)
	RecordRealtimeConnections(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signups          *prometheus.CounterVec
	signinSuccess    prometheus.Counter
	signinFail       prometheus.Counter
	roleResolutions  *prometheus.CounterVec
	bookingsCreated  prometheus.Counter
	bookingStatus    *prometheus.CounterVec
	notificationFail prometheus.Counter
	httpStatus       *prometheus.CounterVec
	realtimeConns    prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artspace_signups_total",
			Help: "ユーザー登録の合計数（ユーザー種別ごと）",
		}, []string{"user_type"}),
		signinSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artspace_signin_success_total",
			Help: "サインイン成功の合計数",
		}),
		signinFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artspace_signin_fail_total",
			Help: "サインイン失敗の合計数",
		}),
		roleResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artspace_role_resolutions_total",
			Help: "ロール解決結果の合計数（状態ごと）",
		}, []string{"state"}),
		bookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artspace_bookings_created_total",
			Help: "作成された予約の合計数",
		}),
		bookingStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artspace_booking_status_changes_total",
			Help: "予約ステータス遷移の合計数（遷移先ごと）",
		}, []string{"status"}),
		notificationFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "artspace_notification_fail_total",
			Help: "予約通知送信失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artspace_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		realtimeConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "artspace_realtime_connections",
			Help: "現在のWebSocket接続数",
		}),
	}

	reg.MustRegister(
		c.signups,
		c.signinSuccess,
		c.signinFail,
		c.roleResolutions,
		c.bookingsCreated,
		c.bookingStatus,
		c.notificationFail,
		c.httpStatus,
		c.realtimeConns,
	)

	return c
}

// RecordSignup はユーザー登録を記録する。user_typeが空の場合はunsetとして記録する。
func (c *Collector) RecordSignup(userType string) {
	if userType == "" {
		userType = "unset"
	}
	c.signups.WithLabelValues(userType).Inc()
}

// RecordSigninSuccess はサインイン成功を記録する。
func (c *Collector) RecordSigninSuccess() {
	c.signinSuccess.Inc()
}

// RecordSigninFailure はサインイン失敗を記録する。
func (c *Collector) RecordSigninFailure() {
	c.signinFail.Inc()
}

// RecordRoleResolution はロール解決の結果状態を記録する。
func (c *Collector) RecordRoleResolution(state string) {
	c.roleResolutions.WithLabelValues(state).Inc()
}

// RecordBookingCreated は予約作成を記録する。
func (c *Collector) RecordBookingCreated() {
	c.bookingsCreated.Inc()
}

// RecordBookingStatusChange は予約ステータス遷移を記録する。
func (c *Collector) RecordBookingStatusChange(status string) {
	c.bookingStatus.WithLabelValues(status).Inc()
}

// RecordNotificationFailure は予約通知の送信失敗を記録する。
func (c *Collector) RecordNotificationFailure() {
	c.notificationFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRealtimeConnections は現在のWebSocket接続数を記録する。
func (c *Collector) RecordRealtimeConnections(count int) {
	c.realtimeConns.Set(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
