package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeweyHur/online-trpg/internal/adapter/gemini"
	"github.com/DeweyHur/online-trpg/internal/domain"
	"github.com/DeweyHur/online-trpg/internal/engine"
	"github.com/DeweyHur/online-trpg/internal/policy"
	"github.com/DeweyHur/online-trpg/internal/repository"
	"github.com/DeweyHur/online-trpg/internal/service"
	"github.com/DeweyHur/online-trpg/tests/helpers"
)

func newTestHandler(t *testing.T, completion engine.Completion) (*Handler, store.Store) {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if completion == nil {
		completion = gemini.NewMockClient()
	}
	return NewHandler(service.New(db, completion, policyEngine)), db
}

func createSession(t *testing.T, h *Handler) string {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(`{"geminiApiKey":"key","startingPrompt":"A tavern at dusk"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	if err := h.CreateSession(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Session map[string]json.RawMessage `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	assert.JSONEq(t, `null`, string(resp.Session["current_turn"]))
	assert.JSONEq(t, `{}`, string(resp.Session["players"]))
	assert.JSONEq(t, `[]`, string(resp.Session["chat_history"]))
	assert.JSONEq(t, `[]`, string(resp.Session["turn_order"]))

	var id string
	require.NoError(t, json.Unmarshal(resp.Session["id"], &id))
	return id
}

func TestCreateAndGetSession(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	id := createSession(t, h)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(id)

	if err := h.GetSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	assert.Contains(t, rec.Body.String(), `"gemini_api_key":"key"`)
}

func TestGetSessionNotFound(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess_missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues("sess_missing")

	if err := h.GetSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	assert.JSONEq(t, `{"error":"Session not found"}`, rec.Body.String())
}

func putSession(t *testing.T, h *Handler, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/sessions/"+id, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(id)
	if err := h.UpdateSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestUpdateSessionPartialFields(t *testing.T) {
	h, db := newTestHandler(t, nil)
	id := createSession(t, h)

	rec := putSession(t, h, id, `{"players":{"m1":"Alice","m2":"Bob"},"turn_order":["Alice","Bob"],"current_turn":"Bob"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = putSession(t, h, id, `{"chat_history":[{"role":"user","parts":[{"text":"hi"}],"author":"Alice"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := db.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.CurrentTurn)
	assert.Equal(t, []string{"Alice", "Bob"}, got.Players.Names())
	require.Len(t, got.ChatHistory, 1)
	assert.Equal(t, "Alice", got.ChatHistory[0].Author)
}

func TestUpdateSessionRejected(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	id := createSession(t, h)

	for _, body := range []string{
		`{"current_turn":"Ghost"}`,
		`{"id":"sess_other"}`,
		`{"mood":"grim"}`,
		`not json`,
	} {
		rec := putSession(t, h, id, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}

	if rec := putSession(t, h, "sess_missing", `{"turn_order":[]}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	e := echo.New()
	rec := httptest.NewRecorder()
	if err := h.Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetSeededSession(t *testing.T) {
	h, db := newTestHandler(t, nil)
	helpers.SeedSession(t, db, helpers.TavernSession("sess_tavern"))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess_tavern", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues("sess_tavern")

	if err := h.GetSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Session map[string]json.RawMessage `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.JSONEq(t, `{"mem_alice":"Alice","mem_bob":"Bob"}`, string(resp.Session["players"]))
	assert.JSONEq(t, `["Alice","Bob"]`, string(resp.Session["turn_order"]))
	assert.JSONEq(t, `"Alice"`, string(resp.Session["current_turn"]))
	assert.JSONEq(t, `{"Alice":{"HP":"10/10"},"Bob":{"HP":"8/8"}}`, string(resp.Session["character_stats"]))
}

func TestUpdateSeededSessionRejectsUnknownTurn(t *testing.T) {
	h, db := newTestHandler(t, nil)
	helpers.SeedSession(t, db, helpers.TavernSession("sess_tavern"))

	rec := putSession(t, h, "sess_tavern", `{"current_turn":"Ghost"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := db.GetSession(context.Background(), "sess_tavern")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.CurrentTurn)
}
