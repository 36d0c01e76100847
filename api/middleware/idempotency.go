package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/teamhub-backend/api/responses"
	"github.com/angelmondragon/teamhub-backend/api/validators"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/teamhub-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
	inflightTTL            = time.Minute
)

// replayRule opts a route into idempotent replay. Prefix rules match any
// path below the given one.
type replayRule struct {
	method string
	path   string
	prefix bool
	ttl    time.Duration
}

// Routes that move balance keep their records for a week.
var replayRules = []replayRule{
	{method: http.MethodPost, path: "/api/v1/credit/topup", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, path: "/api/v1/meals/slots", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, path: "/api/v1/credit/transfer", ttl: criticalIdempotencyTTL},
	{method: http.MethodPatch, path: "/api/v1/credit/topup/", prefix: true, ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, path: "/api/v1/meals/orders", prefix: true, ttl: criticalIdempotencyTTL},
	{method: http.MethodDelete, path: "/api/v1/meals/orders/", prefix: true, ttl: criticalIdempotencyTTL},
	{method: http.MethodDelete, path: "/api/v1/meals/slots/", prefix: true, ttl: criticalIdempotencyTTL},
}

func (r replayRule) matches(method, pattern string) bool {
	if r.method != method {
		return false
	}
	if r.prefix {
		return strings.HasPrefix(pattern, r.path)
	}
	return pattern == r.path
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, rule := range replayRules {
		if rule.matches(method, pattern) {
			return rule.ttl, true
		}
	}
	return 0, false
}

// storedResponse is what gets written to redis for a completed request.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

func (s storedResponse) writeTo(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// the routes in replayRules. Keys are scoped per user, method and path. A nil
// store disables the middleware.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, ok := routeTTL(r.Method, routePattern(r))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			fail := func(err error) { responses.WriteError(ctx, logg, w, err) }

			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				fail(pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := validators.ReadBody(r)
			if err != nil {
				fail(err)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := requestHash(body)
			key := store.IdempotencyKey(replayScope(r), clientKey)

			prior, err := lookupResponse(ctx, store, key)
			if err != nil {
				fail(err)
				return
			}
			if prior != nil {
				if prior.RequestHash != hash {
					fail(pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
					return
				}
				prior.writeTo(w)
				return
			}

			lock := pkgredis.InflightKey(key)
			claimed, err := store.SetNX(ctx, lock, hash, inflightTTL)
			if err != nil {
				fail(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				fail(pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still in progress"))
				return
			}
			defer func() {
				if err := store.Del(context.WithoutCancel(ctx), lock); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
			}()

			rec := newResponseRecorder(w, true)
			next.ServeHTTP(rec, r)

			// server failures stay retryable under the same key
			if rec.Status() >= http.StatusInternalServerError {
				return
			}
			saveResponse(ctx, logg, store, key, ttl, storedResponse{
				Status:      rec.Status(),
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
				RequestHash: hash,
			})
		})
	}
}

func lookupResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	return &stored, nil
}

func saveResponse(ctx context.Context, logg *logger.Logger, store pkgredis.IdempotencyStore, key string, ttl time.Duration, resp storedResponse) {
	payload, err := json.Marshal(resp)
	if err == nil {
		_, err = store.SetNX(ctx, key, string(payload), ttl)
	}
	if err != nil && logg != nil {
		logg.Error(ctx, "persist idempotency record", err)
	}
}

func replayScope(r *http.Request) string {
	return UserIDFromContext(r.Context()) + "|" + r.Method + "|" + r.URL.Path
}

func requestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// routePattern prefers chi's resolved pattern. Group middleware only sees
// the mount pattern ("/api/v1/*") so the concrete path is used instead.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" && !strings.HasSuffix(pattern, "*") {
			return pattern
		}
	}
	return r.URL.Path
}
