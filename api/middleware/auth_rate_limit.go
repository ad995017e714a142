package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/koumale-backend/api/responses"
	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

// maxPeekBytes bounds how much of an auth body is buffered to find the email.
const maxPeekBytes = 64 << 10

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy throttles one auth surface by client IP and by the
// email in the JSON body. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// key scopes a counter as <policy>:<dimension>:<subject>; the store namespaces it.
func (p AuthRateLimitPolicy) key(dimension, subject string) string {
	return p.name + ":" + dimension + ":" + subject
}

// AuthRateLimit rejects requests over either limit with 429 and Retry-After.
// Store failures surface as 500.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.ipLimit > 0 {
				if ip := clientIP(r); ip != "" {
					if blocked, err := policy.hit(ctx, store, "ip", ip, policy.ipLimit); err != nil {
						responses.WriteError(ctx, logg, w, err)
						return
					} else if blocked != nil {
						policy.reject(ctx, logg, w, blocked.with("ip", ip))
						return
					}
				}
			}

			if policy.emailLimit > 0 {
				email, err := peekEmail(r)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				if email != "" {
					digest := hashValue(email)
					if blocked, err := policy.hit(ctx, store, "email", digest, policy.emailLimit); err != nil {
						responses.WriteError(ctx, logg, w, err)
						return
					} else if blocked != nil {
						policy.reject(ctx, logg, w, blocked.with("email_hash", digest))
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

type rateBlock map[string]any

func (b rateBlock) with(k string, v any) rateBlock {
	b[k] = v
	return b
}

// hit bumps one counter and returns the block details once it passes limit.
func (p AuthRateLimitPolicy) hit(ctx context.Context, store rateLimiterStore, dimension, subject string, limit int) (rateBlock, error) {
	count, err := store.IncrWithTTL(ctx, p.key(dimension, subject), p.window)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit store unavailable")
	}
	if count <= int64(limit) {
		return nil, nil
	}
	return rateBlock{"scope": dimension, "attempts": count, "limit": limit}, nil
}

func (p AuthRateLimitPolicy) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, block rateBlock) {
	if logg != nil {
		block["policy"] = p.name
		block["window_seconds"] = int(p.window.Seconds())
		logg.Warn(logg.WithFields(ctx, block), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(p.window.Round(time.Second).Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// peekEmail reads the normalized email from a JSON body and restores the body
// for the next handler.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes+1))
	if err != nil {
		return "", err
	}
	rest := r.Body
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(body), rest), rest}
	if len(body) > maxPeekBytes {
		return "", nil
	}

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(payload.Email)), nil
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
