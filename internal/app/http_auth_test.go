package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskpad/internal/config"
	"taskpad/internal/store"
)

func newTestService() *Service {
	cfg := config.Config{
		TokenSecret: "test-secret",
		AccessTTL:   time.Hour,
		RefreshTTL:  24 * time.Hour,
	}
	return New(cfg, store.NewMemoryStore())
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("parse response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, decoded
}

func signUpAndIn(t *testing.T, handler http.Handler, email, password, username string) map[string]any {
	t.Helper()
	rr, _ := doJSON(t, handler, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": email, "password": password, "username": username,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status = %d body=%s", rr.Code, rr.Body.String())
	}
	rr, session := doJSON(t, handler, http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email": email, "password": password,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("signin status = %d body=%s", rr.Code, rr.Body.String())
	}
	return session
}

func TestSignUpReturnsNoTokens(t *testing.T) {
	handler := NewHTTPServer(newTestService(), "*").Handler()
	rr, payload := doJSON(t, handler, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "a@x.com", "password": "secret1", "username": "alice",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if payload["username"] != "alice" || payload["userId"] == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if _, ok := payload["accessToken"]; ok {
		t.Fatal("signup must not establish a session")
	}
}

func TestSignUpValidationMessageVerbatim(t *testing.T) {
	handler := NewHTTPServer(newTestService(), "*").Handler()
	rr, payload := doJSON(t, handler, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "", "password": "123", "username": "ab",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if payload["error"] != "Username must be at least 3 characters long" {
		t.Fatalf("error = %v", payload["error"])
	}
}

func TestSignUpDuplicateEmailConflicts(t *testing.T) {
	handler := NewHTTPServer(newTestService(), "*").Handler()
	signUpAndIn(t, handler, "a@x.com", "secret1", "alice")
	rr, payload := doJSON(t, handler, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "a@x.com", "password": "secret2", "username": "other",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d", rr.Code)
	}
	if payload["code"] != "EMAIL_EXISTS" {
		t.Fatalf("code = %v", payload["code"])
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	handler := NewHTTPServer(newTestService(), "*").Handler()
	signUpAndIn(t, handler, "a@x.com", "secret1", "alice")
	rr, payload := doJSON(t, handler, http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email": "a@x.com", "password": "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
	if payload["error"] != "invalid email or password" {
		t.Fatalf("error = %v", payload["error"])
	}
}

func TestSessionEndpointContract(t *testing.T) {
	handler := NewHTTPServer(newTestService(), "*").Handler()

	rr, payload := doJSON(t, handler, http.MethodGet, "/api/session", "", nil)
	if rr.Code != http.StatusOK || payload["authenticated"] != false {
		t.Fatalf("anonymous session: status=%d payload=%+v", rr.Code, payload)
	}

	session := signUpAndIn(t, handler, "a@x.com", "secret1", "alice")
	token := session["accessToken"].(string)

	rr, payload = doJSON(t, handler, http.MethodGet, "/api/session", token, nil)
	if rr.Code != http.StatusOK || payload["authenticated"] != true {
		t.Fatalf("authenticated session: status=%d payload=%+v", rr.Code, payload)
	}
	if payload["username"] != "alice" || payload["email"] != "a@x.com" {
		t.Fatalf("identity missing from session: %+v", payload)
	}

	rr, payload = doJSON(t, handler, http.MethodGet, "/api/session", "garbage", nil)
	if rr.Code != http.StatusOK || payload["authenticated"] != false {
		t.Fatalf("bad token must read as unauthenticated: %+v", payload)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	handler := NewHTTPServer(newTestService(), "*").Handler()
	session := signUpAndIn(t, handler, "a@x.com", "secret1", "alice")
	refresh := session["refreshToken"].(string)

	rr, rotated := doJSON(t, handler, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refreshToken": refresh,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh status = %d body=%s", rr.Code, rr.Body.String())
	}
	if rotated["refreshToken"] == refresh {
		t.Fatal("refresh token not rotated")
	}

	// The consumed token must be dead.
	rr, _ = doJSON(t, handler, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refreshToken": refresh,
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token accepted: status = %d", rr.Code)
	}
}

func TestSignOutRevokesRefreshSession(t *testing.T) {
	handler := NewHTTPServer(newTestService(), "*").Handler()
	session := signUpAndIn(t, handler, "a@x.com", "secret1", "alice")
	refresh := session["refreshToken"].(string)

	rr, _ := doJSON(t, handler, http.MethodPost, "/api/auth/signout", "", map[string]any{
		"refreshToken": refresh,
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("signout status = %d", rr.Code)
	}

	rr, _ = doJSON(t, handler, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refreshToken": refresh,
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("revoked refresh token accepted: status = %d", rr.Code)
	}
}
