package jsonx

import (
	"strings"
	"testing"
)

type payload struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestPureJSON(t *testing.T) {
	result, err := Unmarshal[payload](`{"name": "test", "value": 42}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Name != "test" || result.Value != 42 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestJSONWithSurroundingText(t *testing.T) {
	response := `Let me think... {"name": "test", "value": 42} Done!`
	result, err := Unmarshal[payload](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Name != "test" || result.Value != 42 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestJSONInCodeFence(t *testing.T) {
	response := "```json\n{\"name\": \"fenced\", \"value\": 7}\n```"
	result, err := Unmarshal[payload](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Name != "fenced" || result.Value != 7 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestTopLevelArray(t *testing.T) {
	response := `Here are the concepts: ["habeas corpus", "due process"] as requested.`
	result, err := Unmarshal[[]string](response)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 || result[0] != "habeas corpus" {
		t.Errorf("unexpected result: %v", result)
	}
}

func TestNoJSON(t *testing.T) {
	_, err := Unmarshal[payload]("This is just plain text without any JSON.")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "no valid JSON") {
		t.Errorf("expected 'no valid JSON' in error, got: %v", err)
	}
}

func TestInvalidJSON(t *testing.T) {
	_, err := Unmarshal[payload](`{"name": "test", value: }`)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestWrongShape(t *testing.T) {
	// Valid JSON, wrong type for the target field.
	_, err := Unmarshal[payload](`{"name": "test", "value": "not a number"}`)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
