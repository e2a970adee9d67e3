package credential

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestValidatorAlive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/student" {
			t.Errorf("probe path = %q", r.URL.Path)
		}
		if r.Header.Get("Cookie") == "" {
			t.Error("probe sent without session cookie")
		}
		w.Write([]byte("<html>student home</html>"))
	}))
	defer srv.Close()

	v := NewValidator(srv.URL, 2*time.Second)
	if !v.Alive(context.Background(), SessionCookieKey+"=tok") {
		t.Error("Alive = false for a live session")
	}
}

func TestValidatorDeadSessionRedirectsToLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/student", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>login</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	v := NewValidator(srv.URL, 2*time.Second)
	if v.Alive(context.Background(), SessionCookieKey+"=expired") {
		t.Error("Alive = true for a session bounced to the login page")
	}
}

func TestValidatorUnparsableCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unparsable cookie must not reach the network")
	}))
	defer srv.Close()

	v := NewValidator(srv.URL, 2*time.Second)
	if v.Alive(context.Background(), "not_a_cookie") {
		t.Error("Alive = true for an unparsable credential")
	}
}

func TestValidatorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewValidator(srv.URL, 2*time.Second)
	if v.Alive(context.Background(), SessionCookieKey+"=tok") {
		t.Error("Alive = true for a 500 response")
	}
}
