package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/shoplist/internal/model"
)

// --- モック定義 ---

type mockAuthenticator struct {
	authenticateFn func(ctx context.Context, token string) (*model.User, error)
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, token)
	}
	return nil, model.NewUnauthorizedError()
}

func newAuthTestHandler(authn Authenticator, captured *model.Actor) http.Handler {
	return NewTokenAuthMiddleware(authn)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := ActorFromContext(r.Context())
		if err == nil && captured != nil {
			*captured = actor
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Code
}

// --- テスト ---

func TestTokenAuthMiddleware_TokenScheme_InjectsActor(t *testing.T) {
	authn := &mockAuthenticator{
		authenticateFn: func(_ context.Context, token string) (*model.User, error) {
			if token != "tok-123" {
				t.Errorf("token = %q, want %q", token, "tok-123")
			}
			return &model.User{ID: "user-1", IsAdmin: true}, nil
		},
	}

	var actor model.Actor
	handler := newAuthTestHandler(authn, &actor)

	req := httptest.NewRequest(http.MethodGet, "/api/shopping-lists", nil)
	req.Header.Set("Authorization", "Token tok-123")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if actor.UserID != "user-1" || !actor.IsAdmin {
		t.Errorf("actor = %+v, want user-1 admin", actor)
	}
}

func TestTokenAuthMiddleware_BearerScheme_Accepted(t *testing.T) {
	authn := &mockAuthenticator{
		authenticateFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "user-2"}, nil
		},
	}

	var actor model.Actor
	handler := newAuthTestHandler(authn, &actor)

	req := httptest.NewRequest(http.MethodGet, "/api/shopping-lists", nil)
	req.Header.Set("Authorization", "bearer tok")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if actor.UserID != "user-2" {
		t.Errorf("UserID = %q, want %q", actor.UserID, "user-2")
	}
}

func TestTokenAuthMiddleware_MissingOrMalformedHeader_Returns401(t *testing.T) {
	headers := []string{"", "Token", "Basic dXNlcjpwYXNz", "Token a b", "tok-123"}

	for _, h := range headers {
		called := false
		authn := &mockAuthenticator{
			authenticateFn: func(_ context.Context, _ string) (*model.User, error) {
				called = true
				return &model.User{ID: "user-1"}, nil
			},
		}
		handler := newAuthTestHandler(authn, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/shopping-lists", nil)
		if h != "" {
			req.Header.Set("Authorization", h)
		}
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want %d", h, w.Code, http.StatusUnauthorized)
		}
		if called {
			t.Errorf("header %q: authenticator should not be called", h)
		}
	}
}

func TestTokenAuthMiddleware_InvalidToken_Returns401(t *testing.T) {
	handler := newAuthTestHandler(&mockAuthenticator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/shopping-lists", nil)
	req.Header.Set("Authorization", "Token expired")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if code := decodeErrorCode(t, w); code != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", code, model.ErrCodeUnauthorized)
	}
}

func TestTokenAuthMiddleware_BackendError_Returns500(t *testing.T) {
	authn := &mockAuthenticator{
		authenticateFn: func(_ context.Context, _ string) (*model.User, error) {
			return nil, errors.New("db down")
		},
	}
	handler := newAuthTestHandler(authn, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/shopping-lists", nil)
	req.Header.Set("Authorization", "Token tok")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestActorFromContext_Empty_ReturnsError(t *testing.T) {
	if _, err := ActorFromContext(context.Background()); err == nil {
		t.Error("expected error for context without actor")
	}
}

func TestContextWithActor_RoundTrip(t *testing.T) {
	ctx := ContextWithActor(context.Background(), model.Actor{UserID: "user-9"})

	actor, err := ActorFromContext(ctx)
	if err != nil {
		t.Fatalf("ActorFromContext returned error: %v", err)
	}
	if actor.UserID != "user-9" {
		t.Errorf("UserID = %q, want %q", actor.UserID, "user-9")
	}
}
