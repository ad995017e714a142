package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = remote
	return req
}

func TestAuthRateLimitThresholds(t *testing.T) {
	cases := []struct {
		name       string
		policy     AuthRateLimitPolicy
		requests   []*http.Request
		wantStatus []int
	}{
		{
			name:   "email limit counts case-insensitively",
			policy: NewAuthRateLimitPolicy("login", time.Minute, 0, 2),
			requests: []*http.Request{
				loginRequest("awa@koumale.test", "1.2.3.4:1"),
				loginRequest(" AWA@koumale.test", "1.2.3.5:1"),
				loginRequest("awa@KOUMALE.test", "1.2.3.6:1"),
			},
			wantStatus: []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:   "ip limit ignores email",
			policy: NewAuthRateLimitPolicy("register", time.Minute, 1, 0),
			requests: []*http.Request{
				loginRequest("a@koumale.test", "5.6.7.8:1234"),
				loginRequest("b@koumale.test", "5.6.7.8:4321"),
			},
			wantStatus: []int{http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:   "distinct emails have separate budgets",
			policy: NewAuthRateLimitPolicy("login", time.Minute, 0, 1),
			requests: []*http.Request{
				loginRequest("a@koumale.test", "9.9.9.9:1"),
				loginRequest("b@koumale.test", "9.9.9.9:1"),
			},
			wantStatus: []int{http.StatusOK, http.StatusOK},
		},
		{
			name:   "zero window disables",
			policy: NewAuthRateLimitPolicy("login", 0, 1, 1),
			requests: []*http.Request{
				loginRequest("a@koumale.test", "9.9.9.9:1"),
				loginRequest("a@koumale.test", "9.9.9.9:1"),
			},
			wantStatus: []int{http.StatusOK, http.StatusOK},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := AuthRateLimit(tc.policy, newFakeRateStore(), nil)(okHandler())
			for i, req := range tc.requests {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				if rec.Code != tc.wantStatus[i] {
					t.Fatalf("request %d: expected %d, got %d", i, tc.wantStatus[i], rec.Code)
				}
			}
		})
	}
}

func TestAuthRateLimitRejectionEnvelope(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", 90*time.Second, 1, 0), newFakeRateStore(), nil)(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), loginRequest("x@koumale.test", "1.1.1.1:1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("x@koumale.test", "1.1.1.1:1"))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "90" {
		t.Fatalf("expected Retry-After 90, got %q", got)
	}
	var payload struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Success || payload.Code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestAuthRateLimitRestoresBody(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 5, 5), newFakeRateStore(), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if !strings.Contains(string(body), `"email":"tester@koumale.test"`) {
				t.Fatalf("body not restored: %s", body)
			}
			w.WriteHeader(http.StatusOK)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("tester@koumale.test", "1.2.3.4:5678"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimitStoreFailure(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 1, 1), store, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("x@koumale.test", "1.1.1.1:1"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestClientIPPrefersForwardedHop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:80"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected socket peer, got %q", got)
	}
	req.Header.Set("X-Real-IP", "41.202.1.1")
	if got := clientIP(req); got != "41.202.1.1" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", " 197.1.1.1 , 10.0.0.2")
	if got := clientIP(req); got != "197.1.1.1" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
