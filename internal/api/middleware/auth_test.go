package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xapps/user-management-service/internal/core/domain"
	"github.com/xapps/user-management-service/internal/core/service"
)

func issueToken(t *testing.T, secret string, user domain.User, roles ...domain.RoleName) string {
	t.Helper()
	tokens := service.NewTokenService(secret, time.Hour)
	token, _, err := tokens.Issue(user, roles, time.Now().UTC())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func invoke(mw echo.MiddlewareFunc, authorization string) (*domain.Principal, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var seen *domain.Principal
	err := mw(func(c echo.Context) error {
		seen = PrincipalFrom(c)
		return nil
	})(c)
	return seen, err
}

func TestAuth_ValidToken(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	token := issueToken(t, "secret", domain.User{ID: 42, Username: "ada"}, domain.RoleAdministrator)

	principal, err := invoke(Auth(tokens), "Bearer "+token)
	if err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if principal == nil || principal.Subject.ID != 42 {
		t.Fatalf("principal not injected: %+v", principal)
	}
	if !principal.HasRole(domain.RoleAdministrator) {
		t.Fatalf("roles not carried through: %v", principal.Roles)
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)

	_, err := invoke(Auth(tokens), "")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestAuth_MalformedHeader(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)

	for _, header := range []string{"Basic abc", "Bearer", "token-without-scheme"} {
		_, err := invoke(Auth(tokens), header)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %v", header, err)
		}
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	forged := issueToken(t, "other-secret", domain.User{ID: 1, Username: "eve"}, domain.RoleGuest)

	_, err := invoke(Auth(tokens), "Bearer "+forged)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged token, got %v", err)
	}
}

func TestOptionalAuth_ValidToken(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	token := issueToken(t, "secret", domain.User{ID: 7, Username: "bob"}, domain.RoleGuest)

	principal, err := invoke(OptionalAuth(tokens), "Bearer "+token)
	if err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if principal == nil || principal.Subject.ID != 7 {
		t.Fatalf("principal not injected: %+v", principal)
	}
}

func TestOptionalAuth_AnonymousFallback(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour)
	forged := issueToken(t, "other-secret", domain.User{ID: 1, Username: "eve"}, domain.RoleGuest)

	for _, header := range []string{"", "Bearer garbage", "Bearer " + forged} {
		principal, err := invoke(OptionalAuth(tokens), header)
		if err != nil {
			t.Fatalf("header %q: expected pass-through, got %v", header, err)
		}
		if principal != nil {
			t.Fatalf("header %q: expected anonymous request, got %+v", header, principal)
		}
	}
}
