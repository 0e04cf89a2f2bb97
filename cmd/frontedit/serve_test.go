package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/goliatone/go-frontedit/internal/logging"
	"github.com/goliatone/go-frontedit/pkg/save"
)

func newTestServer(t *testing.T) *server {
	t.Helper()
	settings, err := LoadSettings("testdata/settings.yaml")
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	srv, err := newServer(context.Background(), &app{settings: settings, logger: logging.Discard})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return srv
}

func sessionCookie(t *testing.T, res *http.Response) *http.Cookie {
	t.Helper()
	for _, cookie := range res.Cookies() {
		if cookie.Name == sessionCookieName {
			return cookie
		}
	}
	t.Fatalf("expected %s cookie", sessionCookieName)
	return nil
}

var csrfPattern = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func TestServe_PageForGuest(t *testing.T) {
	handler := newTestServer(t).routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/about/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>About</h1>") || !strings.Contains(body, "Tea &amp; cake") {
		t.Fatalf("expected stripped page, got %s", body)
	}
	if strings.Contains(body, "fe-edit") {
		t.Fatalf("guest should not get editor markup, got %s", body)
	}
	if !strings.Contains(body, `<html lang="en">`) {
		t.Fatalf("expected locale from template func, got %s", body)
	}
	sessionCookie(t, rec.Result())
}

func TestServe_PageForEditor(t *testing.T) {
	handler := newTestServer(t).routes()

	req := httptest.NewRequest(http.MethodGet, "/about/", nil)
	req.SetBasicAuth("ed", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `class="fe-edit`) {
		t.Fatalf("expected editing wrappers, got %s", body)
	}
	if !strings.Contains(body, "/frontedit/assets/") {
		t.Fatalf("expected editor assets, got %s", body)
	}
}

func TestServe_WrongPasswordIsGuest(t *testing.T) {
	handler := newTestServer(t).routes()

	req := httptest.NewRequest(http.MethodGet, "/about/", nil)
	req.SetBasicAuth("ed", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), "fe-edit") {
		t.Fatalf("expected stripped page for a bad password")
	}
}

func TestServe_UnknownPath(t *testing.T) {
	handler := newTestServer(t).routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing/", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServe_Assets(t *testing.T) {
	handler := newTestServer(t).routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/frontedit/assets/frontedit.js", nil))
	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Fatalf("expected bundled script, got %d", rec.Code)
	}
}

func TestServe_EditFormRoundTrip(t *testing.T) {
	handler := newTestServer(t).routes()

	get := httptest.NewRequest(http.MethodGet, "/frontedit/edit?id=5&fields=title,featured&modal=1", nil)
	get.SetBasicAuth("ed", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, get)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `name="fields[5__title]"`) || !strings.Contains(body, `name="fields[5__featured]"`) {
		t.Fatalf("expected field inputs, got %s", body)
	}
	if !strings.Contains(body, `href="/frontedit/assets/frontedit.css"`) {
		t.Fatalf("expected stylesheet from global data, got %s", body)
	}
	match := csrfPattern.FindStringSubmatch(body)
	if match == nil {
		t.Fatalf("expected csrf token in form, got %s", body)
	}
	cookie := sessionCookie(t, rec.Result())

	form := url.Values{}
	form.Set("_csrf", match[1])
	form.Set("language", "0")
	form.Set("fields[5__title]", "About us")
	post := httptest.NewRequest(http.MethodPost, "/frontedit/edit?id=5&fields=title", strings.NewReader(form.Encode()))
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	post.SetBasicAuth("ed", "secret")
	post.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, post)

	body = rec.Body.String()
	if !strings.Contains(body, "Saved.") || !strings.Contains(body, `value="About us"`) {
		t.Fatalf("expected saved form, got %s", body)
	}
}

func TestServe_EditFormSavesCheckbox(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.routes()

	get := httptest.NewRequest(http.MethodGet, "/frontedit/edit?id=5&fields=featured", nil)
	get.SetBasicAuth("ed", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, get)
	match := csrfPattern.FindStringSubmatch(rec.Body.String())
	if match == nil {
		t.Fatalf("expected csrf token in form, got %s", rec.Body.String())
	}
	cookie := sessionCookie(t, rec.Result())

	form := url.Values{}
	form.Set("_csrf", match[1])
	form.Set("language", "0")
	form.Add("fields[5__featured]", "false")
	form.Add("fields[5__featured]", "true")
	post := httptest.NewRequest(http.MethodPost, "/frontedit/edit?id=5&fields=featured", strings.NewReader(form.Encode()))
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	post.SetBasicAuth("ed", "secret")
	post.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, post)

	if body := rec.Body.String(); !strings.Contains(body, "Saved.") {
		t.Fatalf("expected saved form, got %s", body)
	}
	stored, err := srv.store.Get(context.Background(), "5")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := stored.Get("featured"); got != true {
		t.Fatalf("expected featured saved as true, got %v", got)
	}
}

func TestServe_EditFormRequiresPermission(t *testing.T) {
	handler := newTestServer(t).routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/frontedit/edit?id=5&fields=title", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestServe_SaveEndpoint(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.routes()

	page := httptest.NewRecorder()
	handler.ServeHTTP(page, httptest.NewRequest(http.MethodGet, "/about/", nil))
	cookie := sessionCookie(t, page.Result())
	token := srv.editor.Token(cookie.Value)

	payload := `{"id":5,"language":0,"_csrf":"` + token + `","fields":{"5__summary":"Scones"}}`
	req := httptest.NewRequest(http.MethodPost, "/frontedit/save", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("ed", "secret")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result save.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != save.StatusSuccess || result.Unformatted["5__summary"] != "Scones" {
		t.Fatalf("unexpected result %+v", result)
	}

	forged := httptest.NewRequest(http.MethodPost, "/frontedit/save",
		strings.NewReader(`{"_csrf":"forged","fields":{"5__summary":"x"}}`))
	forged.Header.Set("Content-Type", "application/json")
	forged.SetBasicAuth("ed", "secret")
	forged.AddCookie(cookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, forged)
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != save.StatusError || result.Error != save.FailedCSRFMessage {
		t.Fatalf("expected csrf failure, got %+v", result)
	}
}
