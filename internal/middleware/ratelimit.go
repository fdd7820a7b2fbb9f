package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/shoplist/internal/model"
)

// スロットルのスコープ名。メトリクスのラベルとログに使用する。
const (
	ScopeUserMinute = "user_minute"
	ScopeUserDay    = "user_day"
)

// ThrottleRecorder はスロットル発生を記録するインターフェース。
type ThrottleRecorder interface {
	Throttled(scope string)
}

type nopThrottleRecorder struct{}

func (nopThrottleRecorder) Throttled(string) {}

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	PerMinute       int           // ユーザーごとの1分あたり上限。0で無効
	PerDay          int           // ユーザーごとの1日あたり上限。0で無効
	CleanupInterval time.Duration // 満杯に戻ったエントリのクリーンアップ間隔
	Recorder        ThrottleRecorder
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		PerMinute:       60,
		PerDay:          5000,
		CleanupInterval: 5 * time.Minute,
	}
}

// scopedLimiter はスコープ名付きのトークンバケット。
type scopedLimiter struct {
	scope   string
	burst   int
	limiter *rate.Limiter
}

// userLimiters はユーザーごとのリミッター群。分単位のスコープを先に評価する。
type userLimiters struct {
	limiters []scopedLimiter
}

// RateLimiter はユーザーごとの分・日単位のレート制限を管理する。
// 全スコープに空きがある場合にのみリクエストを通し、拒否時はどのスコープも消費しない。
type RateLimiter struct {
	config   RateLimiterConfig
	recorder ThrottleRecorder
	now      func() time.Time

	mu    sync.Mutex
	users map[string]*userLimiters

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで不要になったエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	recorder := config.Recorder
	if recorder == nil {
		recorder = nopThrottleRecorder{}
	}

	rl := &RateLimiter{
		config:   config,
		recorder: recorder,
		now:      time.Now,
		users:    make(map[string]*userLimiters),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware はユーザー単位のレート制限ミドルウェアを返す。
// リクエストコンテキストに認証済みユーザーが必要（認証ミドルウェアの後に配置）。
func (rl *RateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := ActorFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			scope, wait, ok := rl.allow(actor.UserID)
			if !ok {
				rl.recorder.Throttled(scope)
				slog.Warn("rate limit exceeded",
					slog.String("user_id", actor.UserID),
					slog.String("scope", scope),
				)
				writeRateLimitResponse(w, wait)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserCount は現在管理されているユーザーエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) UserCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.users)
}

// allow は全スコープから1トークンずつ予約する。
// いずれかのスコープが不足する場合は予約を全て取り消し、そのスコープ名と待機時間を返す。
func (rl *RateLimiter) allow(userID string) (string, time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	ul := rl.getOrCreate(userID)

	reserved := make([]*rate.Reservation, 0, len(ul.limiters))
	for _, sl := range ul.limiters {
		res := sl.limiter.ReserveN(now, 1)
		if !res.OK() {
			cancelAll(reserved, now)
			return sl.scope, time.Duration(math.MaxInt64), false
		}
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			cancelAll(reserved, now)
			return sl.scope, delay, false
		}
		reserved = append(reserved, res)
	}
	return "", 0, true
}

func cancelAll(reserved []*rate.Reservation, now time.Time) {
	for _, res := range reserved {
		res.CancelAt(now)
	}
}

// getOrCreate はユーザーのリミッター群を取得または作成する。rl.muを保持して呼ぶこと。
func (rl *RateLimiter) getOrCreate(userID string) *userLimiters {
	if ul, exists := rl.users[userID]; exists {
		return ul
	}

	ul := &userLimiters{}
	if rl.config.PerMinute > 0 {
		ul.limiters = append(ul.limiters, newScopedLimiter(ScopeUserMinute, rl.config.PerMinute, time.Minute))
	}
	if rl.config.PerDay > 0 {
		ul.limiters = append(ul.limiters, newScopedLimiter(ScopeUserDay, rl.config.PerDay, 24*time.Hour))
	}
	rl.users[userID] = ul
	return ul
}

// newScopedLimiter はperの期間にlimit件まで許可するリミッターを生成する。
func newScopedLimiter(scope string, limit int, per time.Duration) scopedLimiter {
	return scopedLimiter{
		scope:   scope,
		burst:   limit,
		limiter: rate.NewLimiter(rate.Limit(float64(limit)/per.Seconds()), limit),
	}
}

// cleanupLoop はバックグラウンドで不要エントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は全スコープのバケットが満杯に戻ったエントリを削除する。
// 満杯のバケットは新規作成と区別できないため、削除しても制限は緩まない。
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for userID, ul := range rl.users {
		full := true
		for _, sl := range ul.limiters {
			if sl.limiter.TokensAt(now) < float64(sl.burst) {
				full = false
				break
			}
		}
		if full {
			delete(rl.users, userID)
		}
	}
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, wait time.Duration) {
	retryAfterSec := int(math.Ceil(wait.Seconds()))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, &model.APIError{
		Code:     model.ErrCodeRateLimitExceeded,
		Message:  "Request was throttled.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	})
}
