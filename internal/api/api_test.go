package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/sellerhub"
	"github.com/MrEthical07/sellerhub/blob"
	"github.com/MrEthical07/sellerhub/catalog"
	"github.com/MrEthical07/sellerhub/internal/memstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeImages struct{}

func (fakeImages) Upload(_ context.Context, files []blob.File) ([]string, error) {
	urls := make([]string, len(files))
	for i, f := range files {
		urls[i] = "https://cdn.test/" + f.Name
	}
	return urls, nil
}

type testEnv struct {
	t        *testing.T
	mr       *miniredis.Miniredis
	engine   *sellerhub.Engine
	subjects *memstore.Subjects
	handler  http.Handler
}

func testConfig() sellerhub.Config {
	cfg := sellerhub.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-for-tests-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-for-tests-012345678")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})

	subjects := memstore.NewSubjects()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine, err := sellerhub.New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithSubjectStore(subjects).
		WithLogger(logger).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}

	products := catalog.NewService(memstore.NewProducts(), fakeImages{})
	srv := New(engine, products, logger, Config{CORSOrigin: "http://localhost:5173"})

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testEnv{
		t:        t,
		mr:       mr,
		engine:   engine,
		subjects: subjects,
		handler:  srv.Routes(),
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(email string) (string, []*http.Cookie) {
	e.t.Helper()

	rec := e.do(jsonRequest(http.MethodPost, "/seller/auth/google-register",
		fmt.Sprintf(`{"name":"Ana","email":%q,"picture":"https://img.test/ana.jpg"}`, email)))
	if rec.Code != http.StatusCreated && rec.Code != http.StatusOK {
		e.t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	body := decode(e.t, rec)
	return body["userId"].(string), rec.Result().Cookies()
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withCookies(req *http.Request, cookies ...*http.Cookie) *http.Request {
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return req
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestGoogleRegisterCreatesThenLogsIn(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPost, "/seller/auth/google-register",
		`{"name":"Ana","email":" Ana@X.com ","picture":"https://img.test/ana.jpg"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	first := decode(t, rec)
	if first["status"] != "success" {
		t.Fatalf("unexpected envelope: %v", first)
	}

	cookies := rec.Result().Cookies()
	for _, name := range []string{"accessToken", "refreshToken"} {
		c := cookieNamed(cookies, name)
		if c == nil || c.Value == "" {
			t.Fatalf("missing %s cookie", name)
		}
		if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.Path != "/" || c.MaxAge <= 0 {
			t.Fatalf("cookie %s has wrong attributes: %+v", name, c)
		}
	}
	if got := cookieNamed(cookies, "accessToken").MaxAge; got != int((72 * time.Hour).Seconds()) {
		t.Fatalf("access cookie max-age = %d", got)
	}

	rec = env.do(jsonRequest(http.MethodPost, "/seller/auth/google-register",
		`{"name":"Ana","email":"ana@x.com","picture":"https://img.test/ana.jpg"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on second sign-in, got %d", rec.Code)
	}
	second := decode(t, rec)
	if first["userId"] != second["userId"] {
		t.Fatalf("same email resolved to different subjects: %v vs %v", first["userId"], second["userId"])
	}
	if env.subjects.Len() != 1 {
		t.Fatalf("expected one stored subject, got %d", env.subjects.Len())
	}
}

func TestGoogleRegisterValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPost, "/seller/auth/google-register", `{"name":"","email":"nope"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "fail" {
		t.Fatalf("expected fail status, got %v", body["status"])
	}
	fields, ok := body["errors"].(map[string]any)
	if !ok || fields["email"] == nil || fields["name"] == nil {
		t.Fatalf("expected field errors for name and email, got %v", body["errors"])
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("no cookies expected on validation failure")
	}

	rec = env.do(jsonRequest(http.MethodPost, "/seller/auth/google-register", `{not json`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestIssuanceFailureSetsNoCookies(t *testing.T) {
	env := newTestEnv(t)
	env.mr.Close()

	rec := env.do(jsonRequest(http.MethodPost, "/seller/auth/google-register",
		`{"name":"Ana","email":"ana@x.com"}`))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("cookies must not be set when the cache write fails")
	}
	body := decode(t, rec)
	if body["status"] != "error" {
		t.Fatalf("expected error status, got %v", body["status"])
	}
}

func TestVerifyUserGuard(t *testing.T) {
	env := newTestEnv(t)
	userID, cookies := env.register("ana@x.com")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/seller/auth/verify-user", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "token missing" {
		t.Fatalf("expected token missing, got %v", msg)
	}

	access := cookieNamed(cookies, "accessToken")
	dot := strings.LastIndex(access.Value, ".")
	tampered := &http.Cookie{Name: "accessToken", Value: access.Value[:dot+1] + "c2lnbmF0dXJlLWZyb20tZWxzZXdoZXJl"}
	rec = env.do(withCookies(httptest.NewRequest(http.MethodGet, "/seller/auth/verify-user", nil), tampered))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered token, got %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "invalid token" {
		t.Fatalf("expected invalid token, got %v", msg)
	}

	rec = env.do(withCookies(httptest.NewRequest(http.MethodGet, "/seller/auth/verify-user", nil), access))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	user := decode(t, rec)["user"].(map[string]any)
	if user["id"] != userID || user["email"] != "ana@x.com" {
		t.Fatalf("unexpected user: %v", user)
	}
	if _, leaked := user["CredentialHash"]; leaked {
		t.Fatalf("credential hash must not be serialized")
	}
}

func TestRefreshRotatesAndRejectsReplay(t *testing.T) {
	env := newTestEnv(t)
	userID, cookies := env.register("ana@x.com")
	oldRefresh := cookieNamed(cookies, "refreshToken")

	// No access cookie: the refresh endpoint is not guarded.
	rec := env.do(withCookies(httptest.NewRequest(http.MethodGet, "/seller/auth/refresh-token", nil), oldRefresh))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["userId"]; got != userID {
		t.Fatalf("expected userId %s, got %v", userID, got)
	}

	newRefresh := cookieNamed(rec.Result().Cookies(), "refreshToken")
	if newRefresh == nil || newRefresh.Value == oldRefresh.Value {
		t.Fatalf("refresh cookie was not rotated")
	}
	cached, err := env.mr.Get("rt:" + userID)
	if err != nil || cached != newRefresh.Value {
		t.Fatalf("cache does not hold the rotated token")
	}

	rec = env.do(withCookies(httptest.NewRequest(http.MethodGet, "/seller/auth/refresh-token", nil), oldRefresh))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on replay, got %d", rec.Code)
	}
	if msg := decode(t, rec)["message"]; msg != "refresh token mismatch or expired" {
		t.Fatalf("unexpected message: %v", msg)
	}

	rec = env.do(httptest.NewRequest(http.MethodGet, "/seller/auth/refresh-token", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without refresh cookie, got %d", rec.Code)
	}

	// An access token is not a refresh token.
	access := cookieNamed(cookies, "accessToken")
	rec = env.do(withCookies(httptest.NewRequest(http.MethodGet, "/seller/auth/refresh-token", nil),
		&http.Cookie{Name: "refreshToken", Value: access.Value}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for access token presented as refresh, got %d", rec.Code)
	}
}

func TestLogoutRevokesButAccessStaysValid(t *testing.T) {
	env := newTestEnv(t)
	userID, cookies := env.register("ana@x.com")

	rec := env.do(withCookies(httptest.NewRequest(http.MethodGet, "/seller/auth/logout", nil), cookies...))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, name := range []string{"accessToken", "refreshToken"} {
		c := cookieNamed(rec.Result().Cookies(), name)
		if c == nil || c.MaxAge >= 0 || c.Value != "" {
			t.Fatalf("cookie %s not cleared: %+v", name, c)
		}
	}
	if env.mr.Exists("rt:" + userID) {
		t.Fatalf("cache entry should be deleted on logout")
	}

	rec = env.do(withCookies(httptest.NewRequest(http.MethodGet, "/seller/auth/refresh-token", nil),
		cookieNamed(cookies, "refreshToken")))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 refreshing after logout, got %d", rec.Code)
	}

	rec = env.do(withCookies(httptest.NewRequest(http.MethodGet, "/seller/auth/verify-user", nil),
		cookieNamed(cookies, "accessToken")))
	if rec.Code != http.StatusOK {
		t.Fatalf("access token should remain valid until expiry, got %d", rec.Code)
	}
}

func TestLogoutWithoutCookiesStillClears(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/seller/auth/logout", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(rec.Result().Cookies()) != 2 {
		t.Fatalf("expected both cookies cleared")
	}
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, images map[string][]byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for name, data := range images {
		fw, err := mw.CreateFormFile("image", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = fw.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func productFields() map[string]string {
	return map[string]string{
		"productName":   "Desk Lamp",
		"price":         "19.99",
		"stockQuantity": "4",
		"category":      "home",
		"brand":         "Lumo",
		"description":   "Warm light",
	}
}

func TestProductLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, cookies := env.register("ana@x.com")
	access := cookieNamed(cookies, "accessToken")

	rec := env.do(withCookies(multipartRequest(t, http.MethodPost, "/seller/product/add-product",
		productFields(), map[string][]byte{"a.jpg": []byte("a")}), access))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	product := decode(t, rec)["product"].(map[string]any)
	id := product["id"].(string)
	if urls := product["photoURLs"].([]any); len(urls) != 1 || urls[0] != "https://cdn.test/a.jpg" {
		t.Fatalf("unexpected photo urls: %v", urls)
	}

	rec = env.do(withCookies(httptest.NewRequest(http.MethodGet, "/seller/product/get-active-user-products", nil), access))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if n := decode(t, rec)["results"]; n != float64(1) {
		t.Fatalf("expected 1 product, got %v", n)
	}

	rec = env.do(withCookies(httptest.NewRequest(http.MethodGet, "/seller/product/get-product-with-id/"+id, nil), access))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	edit := productFields()
	edit["id"] = id
	edit["price"] = "25"
	rec = env.do(withCookies(multipartRequest(t, http.MethodPut, "/seller/product/edit-product",
		edit, map[string][]byte{"b.jpg": []byte("b")}), access))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on edit, got %d: %s", rec.Code, rec.Body.String())
	}
	product = decode(t, rec)["product"].(map[string]any)
	if product["price"] != float64(25) || len(product["photoURLs"].([]any)) != 2 {
		t.Fatalf("edit not applied: %v", product)
	}

	// A second seller cannot see the first seller's product.
	_, other := env.register("bob@x.com")
	rec = env.do(withCookies(httptest.NewRequest(http.MethodGet, "/seller/product/get-product-with-id/"+id, nil),
		cookieNamed(other, "accessToken")))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign product, got %d", rec.Code)
	}
}

func TestAddProductRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	_, cookies := env.register("ana@x.com")
	access := cookieNamed(cookies, "accessToken")

	fields := productFields()
	fields["price"] = "cheap"
	rec := env.do(withCookies(multipartRequest(t, http.MethodPost, "/seller/product/add-product", fields, nil), access))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if errs := decode(t, rec)["errors"].(map[string]any); errs["price"] == nil {
		t.Fatalf("expected price field error, got %v", errs)
	}

	rec = env.do(multipartRequest(t, http.MethodPost, "/seller/product/add-product", productFields(), nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without access cookie, got %d", rec.Code)
	}

	edit := productFields()
	rec = env.do(withCookies(multipartRequest(t, http.MethodPut, "/seller/product/edit-product", edit, nil), access))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for edit without id, got %d", rec.Code)
	}
}

func TestAddProductRejectsNonFinitePrice(t *testing.T) {
	env := newTestEnv(t)
	_, cookies := env.register("ana@x.com")
	access := cookieNamed(cookies, "accessToken")

	for _, price := range []string{"+Inf", "-Inf", "NaN", "1e400"} {
		fields := productFields()
		fields["price"] = price
		rec := env.do(withCookies(multipartRequest(t, http.MethodPost, "/seller/product/add-product", fields, nil), access))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("price %q: expected 400, got %d: %s", price, rec.Code, rec.Body.String())
		}
		if errs := decode(t, rec)["errors"].(map[string]any); errs["price"] == nil {
			t.Fatalf("price %q: expected price field error, got %v", price, errs)
		}
	}

	rec := env.do(withCookies(httptest.NewRequest(http.MethodGet, "/seller/product/get-active-user-products", nil), access))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if n := decode(t, rec)["results"]; n != float64(0) {
		t.Fatalf("expected no stored products, got %v", n)
	}
}

func TestAddProductRequiresStockQuantity(t *testing.T) {
	env := newTestEnv(t)
	_, cookies := env.register("ana@x.com")
	access := cookieNamed(cookies, "accessToken")

	fields := productFields()
	delete(fields, "stockQuantity")
	rec := env.do(withCookies(multipartRequest(t, http.MethodPost, "/seller/product/add-product", fields, nil), access))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if errs := decode(t, rec)["errors"].(map[string]any); errs["stockQuantity"] == nil {
		t.Fatalf("expected stockQuantity field error, got %v", errs)
	}

	fields["stockQuantity"] = "0"
	rec = env.do(withCookies(multipartRequest(t, http.MethodPost, "/seller/product/add-product", fields, nil), access))
	if rec.Code != http.StatusCreated {
		t.Fatalf("zero stock is valid, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/seller/product/add-product", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := env.do(req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" ||
		rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("missing CORS headers: %v", rec.Header())
	}
}

func TestHealthAndRequestID(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") != "req-123" {
		t.Fatalf("request id not echoed")
	}

	env.mr.Close()
	rec = env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with redis down, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if decode(t, rec)["status"] != "fail" {
		t.Fatalf("expected fail envelope")
	}
}

func TestWriteJSONUnencodableBodyIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, envelope{"price": math.Inf(1)})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decode(t, rec)["status"]; got != "error" {
		t.Fatalf("expected error envelope, got %v", got)
	}
}
