// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// shoppinglist、shoppingitemの各Recorderとミドルウェアの記録先を兼ねる。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	listsCreated    prometheus.Counter
	itemsCreated    prometheus.Counter
	itemsPurchased  prometheus.Counter
	purchasedPurged prometheus.Counter
	throttled       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shoplist_http_requests_total",
			Help: "HTTPリクエスト数（メソッド、ルート、ステータス別）",
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shoplist_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		listsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shoplist_lists_created_total",
			Help: "作成された買い物リストの合計数",
		}),
		itemsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shoplist_items_created_total",
			Help: "作成されたアイテムの合計数",
		}),
		itemsPurchased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shoplist_items_purchased_total",
			Help: "一括購入で購入済みになったアイテムの合計数",
		}),
		purchasedPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shoplist_purchased_items_deleted_total",
			Help: "削除された購入済みアイテムの合計数",
		}),
		throttled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shoplist_throttled_requests_total",
			Help: "レート制限で拒否されたリクエスト数（スコープ別）",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.listsCreated,
		c.itemsCreated,
		c.itemsPurchased,
		c.purchasedPurged,
		c.throttled,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ListCreated はリスト作成を記録する。
func (c *Collector) ListCreated() {
	c.listsCreated.Inc()
}

// ItemCreated はアイテム作成を記録する。
func (c *Collector) ItemCreated() {
	c.itemsCreated.Inc()
}

// ItemsPurchased は一括購入で状態が変化したアイテム数を記録する。
func (c *Collector) ItemsPurchased(n int) {
	c.itemsPurchased.Add(float64(n))
}

// PurchasedItemsDeleted は削除された購入済みアイテム数を記録する。
// APIからの一括削除とワーカーの定期削除の両方で使う。
func (c *Collector) PurchasedItemsDeleted(n int64) {
	c.purchasedPurged.Add(float64(n))
}

// Throttled はレート制限による拒否をスコープ別に記録する。
func (c *Collector) Throttled(scope string) {
	c.throttled.WithLabelValues(scope).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
