package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/knakagawa/parody-engine/pkg/chat"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CharactersResponse struct {
	Characters []string `json:"characters"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func createScenario(client *http.Client, baseURL string, req chat.ScenarioRequest) (*chat.ScenarioResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/scenarios",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to create scenario: %s", errorResp.Error)
	}

	var scenarioResp chat.ScenarioResponse
	if err := json.Unmarshal(body, &scenarioResp); err != nil {
		return nil, fmt.Errorf("failed to parse scenario response: %w", err)
	}

	return &scenarioResp, nil
}

func refineScenario(client *http.Client, baseURL string, sessionID uuid.UUID, notes string) (*chat.ScenarioResponse, error) {
	jsonData, err := json.Marshal(chat.RefineRequest{Notes: notes})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		fmt.Sprintf("%s/v1/scenarios/%s/refine", baseURL, sessionID),
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to refine scene: %s", errorResp.Error)
	}

	var scenarioResp chat.ScenarioResponse
	if err := json.Unmarshal(body, &scenarioResp); err != nil {
		return nil, fmt.Errorf("failed to parse refine response: %w", err)
	}

	return &scenarioResp, nil
}

func deleteScenario(client *http.Client, baseURL string, sessionID uuid.UUID) error {
	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/v1/scenarios/%s", baseURL, sessionID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return nil
}

func listCharacters(client *http.Client, baseURL string) ([]string, error) {
	resp, err := client.Get(baseURL + "/v1/characters")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var charsResp CharactersResponse
	if err := json.Unmarshal(body, &charsResp); err != nil {
		return nil, err
	}
	return charsResp.Characters, nil
}
