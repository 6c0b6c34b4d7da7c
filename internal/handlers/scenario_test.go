package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knakagawa/parody-engine/internal/generator"
	"github.com/knakagawa/parody-engine/internal/services"
	"github.com/knakagawa/parody-engine/internal/storage"
	"github.com/knakagawa/parody-engine/pkg/chat"
	"github.com/knakagawa/parody-engine/pkg/patterns"
	"github.com/knakagawa/parody-engine/pkg/session"
)

const handlerDoc = `{
	"CHARACTER_SPECIFICS": {
		"YUKARI": [
			{"pattern": "tsundere|annoyed", "tags": ["#tsundere_queen"]}
		],
		"JUNPEI": [
			{"pattern": "joke|baseball", "tags": ["#class_clown"]}
		]
	},
	"GENERAL": [
		{"pattern": "dorm", "tags": ["#dorm_life"]}
	]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestHandler(t *testing.T, llm services.LLMService) (*ScenarioHandler, *storage.MockSessionStore) {
	t.Helper()

	store, err := patterns.Parse([]byte(handlerDoc), "json")
	require.NoError(t, err)

	sessions := storage.NewMockSessionStore()
	engine := generator.New(store, nil, llm, nil, nil, testLogger(), 5)
	return NewScenarioHandler(engine, sessions, testLogger()), sessions
}

func postScenario(t *testing.T, h http.Handler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios", bytes.NewReader(data))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestScenarioHandler_Create(t *testing.T) {
	h, sessions := newTestHandler(t, services.NewMockLLMService())

	w := postScenario(t, h, chat.ScenarioRequest{
		Setting:    "the dorm lounge",
		Characters: []string{"yukari", "junpei"},
		Context:    "YUKARI: I'm so annoyed right now.",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp chat.ScenarioResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEqual(t, uuid.Nil, resp.SessionID)
	assert.NotEmpty(t, resp.Scene)
	assert.Contains(t, resp.Tags, "#tsundere_queen")
	assert.False(t, resp.Cached)

	saved, err := sessions.LoadSession(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, resp.Scene, saved.CurrentScene)
	assert.Equal(t, session.PhaseDisplaying, saved.Phase)
}

func TestScenarioHandler_CreateValidation(t *testing.T) {
	h, _ := newTestHandler(t, services.NewMockLLMService())

	tests := []struct {
		name string
		req  chat.ScenarioRequest
	}{
		{
			name: "missing setting",
			req:  chat.ScenarioRequest{Characters: []string{"YUKARI"}},
		},
		{
			name: "no characters",
			req:  chat.ScenarioRequest{Setting: "the dorm"},
		},
		{
			name: "invalid config",
			req: chat.ScenarioRequest{
				Setting:    "the dorm",
				Characters: []string{"YUKARI"},
				Config:     &session.GenerationConfig{PatternStrictness: 2.0, TagWeight: 1.0, MaxTags: 3, Temperature: 1.0, MaxTokens: 100, TopP: 0.9},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := postScenario(t, h, tc.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestScenarioHandler_CreateInvalidJSON(t *testing.T) {
	h, _ := newTestHandler(t, services.NewMockLLMService())

	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScenarioHandler_ProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"rate limited", services.ErrRateLimited, http.StatusTooManyRequests},
		{"auth rejected", services.ErrAuth, http.StatusBadGateway},
		{"malformed response", services.ErrMalformedResponse, http.StatusBadGateway},
		{"network failure", services.ErrNetwork, http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			llm := services.NewMockLLMService()
			llm.GenerateSceneFunc = func(ctx context.Context, messages []chat.ChatMessage, cfg session.GenerationConfig) (string, error) {
				return "", tc.err
			}
			h, _ := newTestHandler(t, llm)

			w := postScenario(t, h, chat.ScenarioRequest{
				Setting:    "the dorm",
				Characters: []string{"YUKARI"},
			})
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestScenarioHandler_RateLimitSetsRetryAfter(t *testing.T) {
	llm := services.NewMockLLMService()
	llm.GenerateSceneFunc = func(ctx context.Context, messages []chat.ChatMessage, cfg session.GenerationConfig) (string, error) {
		return "", services.ErrRateLimited
	}
	h, _ := newTestHandler(t, llm)

	w := postScenario(t, h, chat.ScenarioRequest{
		Setting:    "the dorm",
		Characters: []string{"YUKARI"},
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestScenarioHandler_Refine(t *testing.T) {
	llm := services.NewMockLLMService()
	h, sessions := newTestHandler(t, llm)

	s, err := session.New("the dorm", []string{"YUKARI"}, session.DefaultConfig())
	require.NoError(t, err)
	s.SetScene("YUKARI: The original scene.")
	require.NoError(t, sessions.SaveSession(context.Background(), s))

	llm.GenerateSceneFunc = func(ctx context.Context, messages []chat.ChatMessage, cfg session.GenerationConfig) (string, error) {
		return "YUKARI: A sillier scene.\nEND SCENE", nil
	}

	body, err := json.Marshal(chat.RefineRequest{Notes: "make it sillier"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios/"+s.ID.String()+"/refine", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp chat.ScenarioResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "YUKARI: A sillier scene.", resp.Scene)

	saved, err := sessions.LoadSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "YUKARI: A sillier scene.", saved.CurrentScene)
}

func TestScenarioHandler_RefineMissingSession(t *testing.T) {
	h, _ := newTestHandler(t, services.NewMockLLMService())

	body, err := json.Marshal(chat.RefineRequest{Notes: "sillier"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios/"+uuid.New().String()+"/refine", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScenarioHandler_RefineBeforeScene(t *testing.T) {
	h, sessions := newTestHandler(t, services.NewMockLLMService())

	s, err := session.New("the dorm", []string{"YUKARI"}, session.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, sessions.SaveSession(context.Background(), s))

	body, err := json.Marshal(chat.RefineRequest{Notes: "sillier"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios/"+s.ID.String()+"/refine", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestScenarioHandler_RefineEmptyNotes(t *testing.T) {
	h, _ := newTestHandler(t, services.NewMockLLMService())

	body, err := json.Marshal(chat.RefineRequest{Notes: "  "})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios/"+uuid.New().String()+"/refine", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScenarioHandler_Read(t *testing.T) {
	h, sessions := newTestHandler(t, services.NewMockLLMService())

	s, err := session.New("the mall", []string{"AIGIS"}, session.DefaultConfig())
	require.NoError(t, err)
	s.SetScene("AIGIS: Scanning for fun.")
	require.NoError(t, sessions.SaveSession(context.Background(), s))

	req := httptest.NewRequest(http.MethodGet, "/v1/scenarios/"+s.ID.String(), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var loaded session.Session
	require.NoError(t, json.NewDecoder(w.Body).Decode(&loaded))
	assert.Equal(t, "the mall", loaded.Setting)
	assert.Equal(t, "AIGIS: Scanning for fun.", loaded.CurrentScene)
}

func TestScenarioHandler_Delete(t *testing.T) {
	h, sessions := newTestHandler(t, services.NewMockLLMService())

	s, err := session.New("the dorm", []string{"YUKARI"}, session.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, sessions.SaveSession(context.Background(), s))

	req := httptest.NewRequest(http.MethodDelete, "/v1/scenarios/"+s.ID.String(), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	loaded, err := sessions.LoadSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestScenarioHandler_InvalidID(t *testing.T) {
	h, _ := newTestHandler(t, services.NewMockLLMService())

	req := httptest.NewRequest(http.MethodGet, "/v1/scenarios/not-a-uuid", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScenarioHandler_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t, services.NewMockLLMService())

	req := httptest.NewRequest(http.MethodPut, "/v1/scenarios", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
