// Package jsonx provides JSON extraction utilities for parsing LLM responses.
//
// Models often return JSON embedded in prose or wrapped in markdown code
// blocks. This package locates the JSON payload - an object or a top-level
// array - and unmarshals it into a typed value.
package jsonx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Extract finds and returns the JSON portion of a response string.
// It handles common model response patterns:
//  1. Pure JSON - returns the full response
//  2. JSON wrapped in markdown code blocks (```json ... ```)
//  3. A JSON object or array embedded in surrounding text
//
// Limitations: uses outermost bracket matching, not a full parser, so it
// may fail when unbalanced brackets appear inside string values.
func Extract(response string) (string, error) {
	response = stripCodeFence(response)

	var probe interface{}
	if err := json.Unmarshal([]byte(response), &probe); err == nil {
		return response, nil
	}

	if s, ok := slice(response, "{", "}"); ok {
		return s, nil
	}
	if s, ok := slice(response, "[", "]"); ok {
		return s, nil
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("no valid JSON in response: %q", preview)
}

// Unmarshal extracts the JSON portion of a response and unmarshals it into T.
func Unmarshal[T any](response string) (T, error) {
	var result T
	payload, err := Extract(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return result, fmt.Errorf("unmarshal extracted JSON: %w", err)
	}
	return result, nil
}

// slice returns the span between the first open and last close delimiter,
// if that span parses as JSON.
func slice(response, open, close string) (string, bool) {
	start := strings.Index(response, open)
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(response, close)
	if end <= start {
		return "", false
	}
	candidate := response[start : end+1]
	var probe interface{}
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return "", false
	}
	return candidate, true
}

// stripCodeFence removes markdown code block markers.
// Handles ```json\n...\n``` and ```\n...\n```.
func stripCodeFence(response string) string {
	trimmed := strings.TrimSpace(response)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}

	return trimmed
}
