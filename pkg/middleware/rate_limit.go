package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/proseed/proseed/pkg/composables"
	"github.com/proseed/proseed/pkg/httpapi"
)

type RateLimitConfig struct {
	RequestsPerPeriod int
	Period            time.Duration
	Store             limiter.Store
	KeyFunc           func(r *http.Request) string
}

func NewMemoryStore() limiter.Store {
	return memory.NewStore()
}

func NewRedisStore(redisURL string) (limiter.Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	store, err := sredis.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{
		Prefix: "proseed_rate_limit",
	})
	if err != nil {
		return nil, errors.Wrap(err, "create redis rate limit store")
	}
	return store, nil
}

// IPKeyFunc limits per client address.
func IPKeyFunc(r *http.Request) string {
	if params, ok := composables.UseParams(r.Context()); ok && params.IP != "" {
		return params.IP
	}
	return r.RemoteAddr
}

func RateLimit(config RateLimitConfig) mux.MiddlewareFunc {
	if config.Period == 0 {
		config.Period = time.Second
	}
	if config.Store == nil {
		config.Store = NewMemoryStore()
	}
	if config.KeyFunc == nil {
		config.KeyFunc = IPKeyFunc
	}
	instance := limiter.New(config.Store, limiter.Rate{
		Period: config.Period,
		Limit:  int64(config.RequestsPerPeriod),
	})

	return func(next http.Handler) http.Handler {
		if config.RequestsPerPeriod <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := instance.Get(r.Context(), config.KeyFunc(r))
			if err != nil {
				composables.UseLogger(r.Context()).WithError(err).Warn("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset, 10))
			if result.Reached {
				_ = httpapi.WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests",
					map[string]string{"request_id": composables.UseRequestID(r.Context())})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
