package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubSessionService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (domain.Result[*domain.User], error)
	loginFn    func(ctx context.Context, in ports.LoginInput) (domain.Result[*domain.User], error)
	currentFn  func(ctx context.Context) (domain.Result[*domain.User], error)
	logoutFn   func(ctx context.Context) error
	updateFn   func(ctx context.Context, p ports.ProfilePatch) (domain.Result[*domain.User], error)
}

func (s *stubSessionService) Register(ctx context.Context, in ports.RegisterInput) (domain.Result[*domain.User], error) {
	return s.registerFn(ctx, in)
}

func (s *stubSessionService) Login(ctx context.Context, in ports.LoginInput) (domain.Result[*domain.User], error) {
	return s.loginFn(ctx, in)
}

func (s *stubSessionService) Logout(ctx context.Context) error { return s.logoutFn(ctx) }

func (s *stubSessionService) Current(ctx context.Context) (domain.Result[*domain.User], error) {
	return s.currentFn(ctx)
}

func (s *stubSessionService) UpdateProfile(ctx context.Context, p ports.ProfilePatch) (domain.Result[*domain.User], error) {
	return s.updateFn(ctx, p)
}

type stubTokens struct{}

func (stubTokens) Issue(u *domain.User) (string, time.Time, error) {
	return "token-" + u.ID, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func jsonContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

// ---------------------------------------------------------------------------
// Register / Login
// ---------------------------------------------------------------------------

func TestSessionHandler_Register_Success(t *testing.T) {
	stub := &stubSessionService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (domain.Result[*domain.User], error) {
			if in.Name != "Amina Njeri" || in.Role != domain.RolePWD || len(in.Skills) != 1 {
				t.Fatalf("unexpected input: %+v", in)
			}
			return domain.FromLocal(&domain.User{ID: "amina@example.com", Username: "amina_njeri", Role: in.Role, Origin: domain.OriginLocal}), nil
		},
	}
	h := NewSessionHandler(stub, stubTokens{})

	c, rec := jsonContext(http.MethodPost, "/v1/session/register",
		`{"name":"Amina Njeri","email":"amina@example.com","phone":"0712","password":"Secur3!pass","confirm_password":"Secur3!pass","role":"pwd","skills":["typing"]}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["token"] != "token-amina@example.com" || resp["source"] != "local" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["username"] != "amina_njeri" || user["origin"] != "local" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
}

func TestSessionHandler_Register_InvalidPayload(t *testing.T) {
	stub := &stubSessionService{
		registerFn: func(context.Context, ports.RegisterInput) (domain.Result[*domain.User], error) {
			t.Fatalf("should not be called")
			return domain.Result[*domain.User]{}, nil
		},
	}
	h := NewSessionHandler(stub, stubTokens{})

	c, _ := jsonContext(http.MethodPost, "/v1/session/register", "not-json")
	if code := httpCode(h.Register(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestSessionHandler_Login_ErrorReturnedUnchanged(t *testing.T) {
	appErr := &domain.ApplicationError{Status: http.StatusBadRequest, Message: "Invalid credentials"}
	stub := &stubSessionService{
		loginFn: func(context.Context, ports.LoginInput) (domain.Result[*domain.User], error) {
			return domain.Result[*domain.User]{}, appErr
		},
	}
	h := NewSessionHandler(stub, stubTokens{})

	c, rec := jsonContext(http.MethodPost, "/v1/session/login", `{"email":"a@example.com","password":"bad"}`)
	err := h.Login(c)
	if !errors.Is(err, appErr) {
		t.Fatalf("expected the application error, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("no token may be written on failure, got %s", rec.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Current
// ---------------------------------------------------------------------------

func TestSessionHandler_Current_Success(t *testing.T) {
	stub := &stubSessionService{
		currentFn: func(context.Context) (domain.Result[*domain.User], error) {
			return domain.FromAPI(&domain.User{ID: "u1", Username: "amina", Role: domain.RolePWD}), nil
		},
	}
	h := NewSessionHandler(stub, stubTokens{})

	c, rec := jsonContext(http.MethodGet, "/v1/session", "")

	if err := h.Current(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"source":"api"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestSessionHandler_Logout(t *testing.T) {
	called := false
	stub := &stubSessionService{logoutFn: func(context.Context) error { called = true; return nil }}
	h := NewSessionHandler(stub, stubTokens{})

	c, rec := jsonContext(http.MethodPost, "/v1/session/logout", "")
	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called || rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 after logout, got %d (called=%v)", rec.Code, called)
	}
}
