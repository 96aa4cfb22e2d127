package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func cookieFromRecorder(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	w := httptest.NewRecorder()
	CreateSession(w, 42)
	c := cookieFromRecorder(t, w, "session")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	uid, ok := ParseSession(r)
	if !ok || uid != 42 {
		t.Fatalf("expected uid 42, got %d ok=%v", uid, ok)
	}
}

func TestSessionTamperedSignatureRejected(t *testing.T) {
	w := httptest.NewRecorder()
	CreateSession(w, 42)
	c := cookieFromRecorder(t, w, "session")
	c.Value = "99." + c.Value[len("42."):]

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	if _, ok := ParseSession(r); ok {
		t.Fatal("tampered session accepted")
	}
}

func TestGrantCookieRoundTrip(t *testing.T) {
	w := httptest.NewRecorder()
	CreateGrantCookie(w, "sometoken", time.Hour)
	c := cookieFromRecorder(t, w, "intervention_access")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	token, ok := ParseGrantCookie(r)
	if !ok || token != "sometoken" {
		t.Fatalf("expected token round trip, got %q ok=%v", token, ok)
	}
}

func TestGrantCookieTamperedRejected(t *testing.T) {
	w := httptest.NewRecorder()
	CreateGrantCookie(w, "sometoken", time.Hour)
	c := cookieFromRecorder(t, w, "intervention_access")
	c.Value = "othertoken" + c.Value[len("sometoken"):]

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	if _, ok := ParseGrantCookie(r); ok {
		t.Fatal("tampered grant accepted")
	}
}

func TestRequireAuthRedirectsAnonymous(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireAuth(next)

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", w.Code)
	}

	// JSON clients get 401 instead of a redirect.
	r = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.Header.Set("Accept", "application/json")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for JSON, got %d", w.Code)
	}
}

func TestRequireAuthVerifier(t *testing.T) {
	SetUserVerifier(func(_ context.Context, uid uint) bool { return uid == 1 })
	t.Cleanup(func() { SetUserVerifier(nil) })

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Middleware(RequireAuth(next))

	okW := httptest.NewRecorder()
	okReq := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	sw := httptest.NewRecorder()
	CreateSession(sw, 1)
	okReq.AddCookie(cookieFromRecorder(t, sw, "session"))
	h.ServeHTTP(okW, okReq)
	if okW.Code != http.StatusOK {
		t.Fatalf("valid user rejected: %d", okW.Code)
	}

	badW := httptest.NewRecorder()
	badReq := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	sw2 := httptest.NewRecorder()
	CreateSession(sw2, 7)
	badReq.AddCookie(cookieFromRecorder(t, sw2, "session"))
	h.ServeHTTP(badW, badReq)
	if badW.Code != http.StatusSeeOther {
		t.Fatalf("stale session not rejected: %d", badW.Code)
	}
}
