//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/knakagawa/parody-engine/pkg/chat"
)

// These tests run against a live API with a real LLM provider behind it.
// Start the server first (go run ./cmd/api) and run:
//
//	go test -tags=integration ./integration/...

var (
	apiBaseURL string
	client     *http.Client
)

func TestMain(m *testing.M) {
	apiBaseURL = os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:8080"
	}
	client = &http.Client{Timeout: 3 * time.Minute}

	fmt.Printf("Running Parody Engine Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", apiBaseURL)

	resp, err := client.Get(apiBaseURL + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "API is not reachable at %s: %v\n", apiBaseURL, err)
		os.Exit(1)
	}
	_ = resp.Body.Close()

	os.Exit(m.Run())
}

func postJSON(t *testing.T, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	resp, err := client.Post(apiBaseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Request to %s failed: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp, respBody
}

func TestScenarioLifecycle(t *testing.T) {
	resp, body := postJSON(t, "/v1/scenarios", chat.ScenarioRequest{
		Setting:    "the dorm lounge",
		Characters: []string{"YUKARI", "JUNPEI"},
		Context:    "YUKARI: I cannot believe you did that.",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Create returned %d: %s", resp.StatusCode, string(body))
	}

	var created chat.ScenarioResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("Failed to parse create response: %v", err)
	}
	if created.SessionID == uuid.Nil {
		t.Fatal("Create response missing session ID")
	}
	if created.Scene == "" {
		t.Fatal("Create response missing scene")
	}
	t.Logf("Generated scene (%d chars), tags: %v", len(created.Scene), created.Tags)

	resp, body = postJSON(t, fmt.Sprintf("/v1/scenarios/%s/refine", created.SessionID),
		chat.RefineRequest{Notes: "make it shorter and sillier"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Refine returned %d: %s", resp.StatusCode, string(body))
	}

	var refined chat.ScenarioResponse
	if err := json.Unmarshal(body, &refined); err != nil {
		t.Fatalf("Failed to parse refine response: %v", err)
	}
	if refined.Scene == "" {
		t.Fatal("Refine response missing scene")
	}

	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/v1/scenarios/%s", apiBaseURL, created.SessionID), nil)
	if err != nil {
		t.Fatalf("Failed to build delete request: %v", err)
	}
	delResp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Delete request failed: %v", err)
	}
	_ = delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("Delete returned %d", delResp.StatusCode)
	}
}

func TestCharactersEndpoint(t *testing.T) {
	resp, err := client.Get(apiBaseURL + "/v1/characters")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Characters endpoint returned %d", resp.StatusCode)
	}

	var charsResp struct {
		Characters []string `json:"characters"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&charsResp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(charsResp.Characters) == 0 {
		t.Fatal("Expected at least one known character")
	}
}
