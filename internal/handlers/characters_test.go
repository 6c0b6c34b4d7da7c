package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knakagawa/parody-engine/pkg/patterns"
)

func TestCharactersHandler_List(t *testing.T) {
	store, err := patterns.Parse([]byte(handlerDoc), "json")
	require.NoError(t, err)

	h := NewCharactersHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/v1/characters", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp CharactersResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, []string{"JUNPEI", "YUKARI"}, resp.Characters)
}

func TestCharactersHandler_MethodNotAllowed(t *testing.T) {
	store, err := patterns.Parse([]byte(handlerDoc), "json")
	require.NoError(t, err)

	h := NewCharactersHandler(store, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/characters", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
