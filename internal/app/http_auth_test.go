package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lexhub/api/internal/dict"
)

func newTestHandler(t *testing.T, client upstream) (*Service, http.Handler) {
	t.Helper()
	service, _ := newTestService(t, client)
	return service, NewHTTPServer(service, "*").Handler()
}

func doRequest(t *testing.T, handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return payload
}

func TestHealth(t *testing.T) {
	_, handler := newTestHandler(t, &fakeUpstream{})
	recorder := doRequest(t, handler, http.MethodGet, "/api/health", "", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("health returned %d", recorder.Code)
	}
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	_, handler := newTestHandler(t, &fakeUpstream{})
	for _, path := range []string{"/api/terms", "/api/bookmarks", "/api/stats", "/api/categories"} {
		recorder := doRequest(t, handler, http.MethodGet, path, "", "")
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s without token returned %d, want 401", path, recorder.Code)
		}
		if payload := decodeResponse(t, recorder); payload["code"] != "UNAUTHORIZED" {
			t.Fatalf("GET %s error code %v", path, payload["code"])
		}
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	_, handler := newTestHandler(t, &fakeUpstream{})
	token := testToken(t, "user-1", "alice", "user", time.Now().Add(-time.Minute))
	recorder := doRequest(t, handler, http.MethodGet, "/api/terms", token, "")
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expired token returned %d, want 401", recorder.Code)
	}
}

func TestSessionIntrospection(t *testing.T) {
	_, handler := newTestHandler(t, &fakeUpstream{})

	recorder := doRequest(t, handler, http.MethodGet, "/api/session", "", "")
	if payload := decodeResponse(t, recorder); payload["authenticated"] != false {
		t.Fatalf("anonymous session payload %+v", payload)
	}

	token := testToken(t, "user-1", "alice", "moderator", time.Now().Add(time.Hour))
	recorder = doRequest(t, handler, http.MethodGet, "/api/session", token, "")
	payload := decodeResponse(t, recorder)
	if payload["authenticated"] != true || payload["username"] != "alice" || payload["role"] != "moderator" {
		t.Fatalf("session payload %+v", payload)
	}
}

func TestLoginProxiesUpstream(t *testing.T) {
	issued := testToken(t, "user-1", "alice", "user", time.Now().Add(time.Hour))
	client := &fakeUpstream{
		loginFn: func(ctx context.Context, creds dict.Credentials) (dict.AuthResult, error) {
			if creds.Username != "alice" || creds.Password != "s3cret" {
				return dict.AuthResult{}, &dict.APIError{Status: 401, Message: "bad credentials"}
			}
			return dict.AuthResult{Token: issued}, nil
		},
	}
	_, handler := newTestHandler(t, client)

	recorder := doRequest(t, handler, http.MethodPost, "/api/auth/login", "", `{"username":"alice","password":"s3cret"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeResponse(t, recorder)
	if payload["token"] != issued || payload["username"] != "alice" {
		t.Fatalf("login payload %+v", payload)
	}

	recorder = doRequest(t, handler, http.MethodPost, "/api/auth/login", "", `{"username":"alice","password":"wrong"}`)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("bad credentials returned %d, want 401", recorder.Code)
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	_, handler := newTestHandler(t, &fakeUpstream{})
	recorder := doRequest(t, handler, http.MethodPost, "/api/auth/login", "", `{"username":`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("malformed body returned %d, want 400", recorder.Code)
	}
	if payload := decodeResponse(t, recorder); payload["code"] != "INVALID_BODY" {
		t.Fatalf("error code %v", payload["code"])
	}
}

func TestLoginValidatesBody(t *testing.T) {
	_, handler := newTestHandler(t, &fakeUpstream{})
	recorder := doRequest(t, handler, http.MethodPost, "/api/auth/login", "", `{"username":""}`)
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty credentials returned %d, want 422", recorder.Code)
	}
}

func TestPublicRoutesNeedNoToken(t *testing.T) {
	client := &fakeUpstream{
		publicTermsFn: func(ctx context.Context) ([]dict.Term, error) {
			return []dict.Term{{ID: "term-1", Term: "Chat"}}, nil
		},
	}
	_, handler := newTestHandler(t, client)

	recorder := doRequest(t, handler, http.MethodGet, "/api/public/terms", "", "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("public terms returned %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	terms, ok := payload["terms"].([]any)
	if !ok || len(terms) != 1 {
		t.Fatalf("public terms payload %+v", payload)
	}
}
