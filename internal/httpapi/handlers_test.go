package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"voiceagent-dashboard/internal/activity"
	"voiceagent-dashboard/internal/apikeys"
	"voiceagent-dashboard/internal/auth"
	"voiceagent-dashboard/internal/config"
	"voiceagent-dashboard/internal/crm"
	"voiceagent-dashboard/internal/gemini"
	"voiceagent-dashboard/internal/vapi"
)

type testEnv struct {
	router  *gin.Engine
	keys    *apikeys.Service
	manager *auth.Manager
}

func newTestEnv(t *testing.T, h Handlers) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	if h.CRM == nil {
		h.CRM = crm.NewService(crm.NewMemoryRepo(), activity.NewService(activity.NewMemoryRepo()))
	}
	if h.Keys == nil {
		h.Keys = apikeys.NewService(apikeys.NewMemoryRepo())
	}
	h.Auth = auth.NewService(auth.NewMemoryUserStore(), m)

	r := gin.New()
	registerTestRoutes(r, h, auth.RequireAccessToken(m))
	return &testEnv{router: r, keys: h.Keys, manager: m}
}

// registerTestRoutes mirrors cmd/api route wiring for the handlers under
// test.
func registerTestRoutes(r *gin.Engine, h Handlers, authMW gin.HandlerFunc) {
	ag := r.Group("/v1/auth")
	ag.POST("/register", h.Register)
	ag.POST("/login", h.Login)
	ag.POST("/refresh", h.Refresh)

	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.GET("/me", h.Me)
	v1.GET("/customers", h.ListCustomers)
	v1.POST("/customers", h.CreateCustomer)
	v1.GET("/customers/:id", h.GetCustomer)
	v1.PUT("/customers/:id", h.UpdateCustomer)
	v1.DELETE("/customers/:id", h.DeleteCustomer)
	v1.GET("/notes", h.ListNotes)
	v1.POST("/notes", h.CreateNote)
	v1.GET("/calls", h.ListCalls)
	v1.GET("/settings/api-keys", h.GetAPIKeys)
	v1.POST("/settings/api-keys", h.SaveAPIKeys)
	v1.POST("/summaries", h.Summarize)
}

func (e *testEnv) token(t *testing.T, uid string) string {
	t.Helper()
	pair, err := e.manager.IssuePair(time.Now(), uid, uid+"@example.com")
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}
	return pair.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestEnv(t, Handlers{})
	if w := e.do(t, http.MethodGet, "/v1/customers", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	e := newTestEnv(t, Handlers{})

	w := e.do(t, http.MethodPost, "/v1/auth/register", "", `{"email":"owner@example.com","password":"hunter2hunter2"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"owner@example.com","password":"hunter2hunter2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	access, _ := out["access_token"].(string)
	if access == "" {
		t.Fatalf("missing access token: %v", out)
	}

	w = e.do(t, http.MethodGet, "/v1/me", access, "")
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
}

func TestCreateCustomerValidationDetails(t *testing.T) {
	e := newTestEnv(t, Handlers{})
	tok := e.token(t, "user-1")

	w := e.do(t, http.MethodPost, "/v1/customers", tok, `{"phone_number":"","status":"bogus"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	details, _ := out["details"].([]any)
	if len(details) != 2 {
		t.Fatalf("details = %v, want phone + status violations", details)
	}
}

func TestCustomerCRUDAndConflict(t *testing.T) {
	e := newTestEnv(t, Handlers{})
	tok := e.token(t, "user-1")

	w := e.do(t, http.MethodPost, "/v1/customers", tok, `{"phone_number":"+12025550147","name":"Alice"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	customer := out["customer"].(map[string]any)
	id := customer["id"].(string)

	if w := e.do(t, http.MethodPost, "/v1/customers", tok, `{"phone_number":"+12025550147"}`); w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409", w.Code)
	}

	w = e.do(t, http.MethodPut, "/v1/customers/"+id, tok, `{"name":"Alice B"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", w.Code, w.Body.String())
	}

	if w := e.do(t, http.MethodGet, "/v1/customers/missing", tok, ""); w.Code != http.StatusNotFound {
		t.Fatalf("get missing status = %d, want 404", w.Code)
	}

	if w := e.do(t, http.MethodDelete, "/v1/customers/"+id, tok, ""); w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/v1/customers/"+id, tok, ""); w.Code != http.StatusNotFound {
		t.Fatalf("deleted customer still readable, status = %d", w.Code)
	}
}

func TestUserScoping(t *testing.T) {
	e := newTestEnv(t, Handlers{})
	tokA := e.token(t, "user-a")
	tokB := e.token(t, "user-b")

	w := e.do(t, http.MethodPost, "/v1/customers", tokA, `{"phone_number":"+12025550147"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	id := decode(t, w)["customer"].(map[string]any)["id"].(string)

	if w := e.do(t, http.MethodGet, "/v1/customers/"+id, tokB, ""); w.Code != http.StatusNotFound {
		t.Fatalf("cross-user read status = %d, want 404", w.Code)
	}
}

func TestListCallsWithoutCredential(t *testing.T) {
	e := newTestEnv(t, Handlers{Vapi: vapi.NewClient("http://example.invalid")})
	tok := e.token(t, "user-1")

	w := e.do(t, http.MethodGet, "/v1/calls", tok, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestListCallsQuickAnalytics(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":"a","status":"completed","createdAt":"2025-06-01T10:00:00Z",
			 "startedAt":"2025-06-01T10:00:00Z","endedAt":"2025-06-01T10:01:00Z","cost":1.5},
			{"id":"b","status":"failed","createdAt":"2025-06-01T11:00:00Z","cost":0.5}
		]`)
	}))
	defer upstream.Close()

	e := newTestEnv(t, Handlers{Vapi: vapi.NewClient(upstream.URL)})
	tok := e.token(t, "user-1")
	if w := e.do(t, http.MethodPost, "/v1/settings/api-keys", tok, `{"vapi_private_key":"vapi-key-123456"}`); w.Code != http.StatusOK {
		t.Fatalf("save keys status = %d", w.Code)
	}

	w := e.do(t, http.MethodGet, "/v1/calls", tok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	stats := out["analytics"].(map[string]any)
	if stats["totalCalls"].(float64) != 2 {
		t.Fatalf("totalCalls = %v", stats["totalCalls"])
	}
	if stats["successRate"].(float64) != 50 {
		t.Fatalf("successRate = %v", stats["successRate"])
	}
	if stats["avgDuration"].(float64) != 60 {
		t.Fatalf("avgDuration = %v", stats["avgDuration"])
	}
	if stats["cost"].(float64) != 2 {
		t.Fatalf("cost = %v, want 2", stats["cost"])
	}
}

func TestAPIKeysMaskedOnRead(t *testing.T) {
	e := newTestEnv(t, Handlers{})
	tok := e.token(t, "user-1")

	if w := e.do(t, http.MethodPost, "/v1/settings/api-keys", tok, `{"gemini_api_key":"gem-1234567890"}`); w.Code != http.StatusOK {
		t.Fatalf("save status = %d", w.Code)
	}

	w := e.do(t, http.MethodGet, "/v1/settings/api-keys", tok, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	out := decode(t, w)
	masked := out["apiKeys"].(map[string]any)["gemini_api_key"].(string)
	if !strings.Contains(masked, "•") || strings.Contains(masked, "1234567") {
		t.Fatalf("key not masked: %q", masked)
	}
}

func TestSummarizeEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"Caller booked a table."}]}}]}`)
	}))
	defer upstream.Close()

	e := newTestEnv(t, Handlers{Summarizer: gemini.NewSummarizer(gemini.NewClient(upstream.URL), nil)})
	tok := e.token(t, "user-1")

	// no key stored yet
	w := e.do(t, http.MethodPost, "/v1/summaries", tok, `{"conversation_text":"Customer: table for two"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status without key = %d, want 400", w.Code)
	}

	if w := e.do(t, http.MethodPost, "/v1/settings/api-keys", tok, `{"gemini_api_key":"gem-1234567890"}`); w.Code != http.StatusOK {
		t.Fatalf("save keys status = %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/v1/summaries", tok, `{"conversation_text":"Customer: table for two"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["summary"].(string); got != "Caller booked a table." {
		t.Fatalf("summary = %q", got)
	}
}
