package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/projectboard/internal/model"
)

// mockProvider はSessionProviderのテスト用モック。
type mockProvider struct {
	findFn func(ctx context.Context, creds Credentials) (*model.Session, error)
	calls  int
	last   Credentials
}

func (m *mockProvider) FindSession(ctx context.Context, creds Credentials) (*model.Session, error) {
	m.calls++
	m.last = creds
	return m.findFn(ctx, creds)
}

func sessionFor(userID string) func(context.Context, Credentials) (*model.Session, error) {
	return func(_ context.Context, _ Credentials) (*model.Session, error) {
		return &model.Session{SessionID: "s1", UserID: userID}, nil
	}
}

func TestResolver_BearerToken(t *testing.T) {
	provider := &mockProvider{findFn: sessionFor("user-1")}
	r := NewResolver(provider)

	req := httptest.NewRequest(http.MethodGet, "/project", nil)
	req.Header.Set("Authorization", "Bearer tok-123")

	res := r.Resolve(req)
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if res.Session.UserID != "user-1" {
		t.Errorf("userID = %q, want %q", res.Session.UserID, "user-1")
	}
	if provider.last.Token != "tok-123" {
		t.Errorf("token = %q, want %q", provider.last.Token, "tok-123")
	}
	if provider.last.Header.Get("Authorization") != "Bearer tok-123" {
		t.Error("Authorization header should be forwarded to the provider")
	}
}

func TestResolver_SignedCookie(t *testing.T) {
	provider := &mockProvider{findFn: sessionFor("user-1")}
	r := NewResolver(provider)

	req := httptest.NewRequest(http.MethodGet, "/project", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "tok-abc.c2lnbmF0dXJl"})

	res := r.Resolve(req)
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.Err)
	}
	if provider.last.Token != "tok-abc" {
		t.Errorf("token = %q, want signature stripped %q", provider.last.Token, "tok-abc")
	}
	if provider.last.Header.Get("Cookie") == "" {
		t.Error("Cookie header should be forwarded to the provider")
	}
}

func TestResolver_CustomCookieName(t *testing.T) {
	provider := &mockProvider{findFn: sessionFor("user-1")}
	r := NewResolver(provider, WithCookieName("better-auth.session_token"))

	req := httptest.NewRequest(http.MethodGet, "/project", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "ignored"})
	if res := r.Resolve(req); res.OK() {
		t.Error("default cookie name should not be read when a custom name is configured")
	}

	req = httptest.NewRequest(http.MethodGet, "/project", nil)
	req.AddCookie(&http.Cookie{Name: "better-auth.session_token", Value: "tok"})
	if res := r.Resolve(req); !res.OK() {
		t.Errorf("expected success with custom cookie, got %v", res.Err)
	}
}

// TestResolver_IgnoresQueryAndBody はクエリやボディの資格情報を読まないことを検証する。
func TestResolver_IgnoresQueryAndBody(t *testing.T) {
	provider := &mockProvider{findFn: sessionFor("user-1")}
	r := NewResolver(provider)

	req := httptest.NewRequest(http.MethodGet, "/project?token=tok&session_token=tok", nil)

	res := r.Resolve(req)
	if res.OK() {
		t.Fatal("credentials in the query string must not authenticate")
	}
	if provider.calls != 0 {
		t.Errorf("provider calls = %d, want 0 without credentials", provider.calls)
	}
}

func TestResolver_Failures(t *testing.T) {
	tests := []struct {
		name   string
		findFn func(context.Context, Credentials) (*model.Session, error)
	}{
		{"provider error", func(context.Context, Credentials) (*model.Session, error) {
			return nil, errors.New("connection refused")
		}},
		{"no session", func(context.Context, Credentials) (*model.Session, error) {
			return nil, nil
		}},
		{"empty user id", sessionFor("")},
		{"provider panic", func(context.Context, Credentials) (*model.Session, error) {
			panic("boom")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&mockProvider{findFn: tt.findFn})

			req := httptest.NewRequest(http.MethodGet, "/project", nil)
			req.Header.Set("Authorization", "Bearer tok")

			res := r.Resolve(req)
			if res.OK() {
				t.Fatal("expected failure")
			}
			if res.Session != nil {
				t.Error("failed result must not carry a session")
			}
			if !errors.Is(res.Err, model.ErrNotAuthenticated) {
				t.Errorf("err = %v, want notAuthenticated tag", res.Err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCookieToken(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"tok", "tok"},
		{"tok.sig", "tok"},
		{"tok.sig%3D", "tok"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cookieToken(tt.value); got != tt.want {
			t.Errorf("cookieToken(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestSessionContext(t *testing.T) {
	ctx := context.Background()
	if _, err := UserIDFromContext(ctx); err == nil {
		t.Error("expected error for empty context")
	}

	ctx = ContextWithSession(ctx, &model.Session{UserID: "user-1"})
	got, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("UserIDFromContext error = %v", err)
	}
	if got != "user-1" {
		t.Errorf("userID = %q, want %q", got, "user-1")
	}
	if s, ok := SessionFromContext(ctx); !ok || s.UserID != "user-1" {
		t.Errorf("SessionFromContext = (%v, %v)", s, ok)
	}
}
