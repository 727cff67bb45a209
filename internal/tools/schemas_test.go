package tools

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResponseErrorFieldOmittedOnSuccess(t *testing.T) {
	resp := SaveFactResponse{
		Status: "success",
		ID:     "abc123",
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal SaveFactResponse: %v", err)
	}

	var jsonMap map[string]interface{}
	if err := json.Unmarshal(data, &jsonMap); err != nil {
		t.Fatalf("Failed to unmarshal JSON into map: %v", err)
	}

	if _, exists := jsonMap["error"]; exists {
		t.Error("Expected 'error' field to be omitted when empty")
	}
	if jsonMap["status"] != "success" || jsonMap["id"] != "abc123" {
		t.Errorf("Unexpected JSON contents: %v", jsonMap)
	}
}

func TestRetrieveRequestLimitOmittedWhenZero(t *testing.T) {
	data, err := json.Marshal(RetrieveFactsRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Failed to marshal RetrieveFactsRequest: %v", err)
	}

	if strings.Contains(string(data), "limit") {
		t.Errorf("Expected zero limit to be omitted, got %s", data)
	}
}

func TestSampleQueriesAreReadonly(t *testing.T) {
	for _, sq := range SampleQueries {
		if !strings.HasPrefix(strings.ToUpper(sq.Query), "SELECT") {
			t.Errorf("Sample query is not a SELECT: %s", sq.Query)
		}
		if sq.Description == "" {
			t.Errorf("Sample query missing description: %s", sq.Query)
		}
	}
}
