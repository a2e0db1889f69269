package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sweetswap/internal/models"
)

var (
	// ErrNoPayload means the response held nothing that could be JSON
	ErrNoPayload = errors.New("no JSON payload in response")
	// ErrMissingName means the payload parsed but had no substitute name
	ErrMissingName = errors.New("payload has no substitute name")
)

const fence = "```"

// ExtractPayload pulls a JSON document out of free-form model output. If the
// text contains a fenced block (``` or ```json) its body is returned,
// otherwise the whole trimmed text. ok is false when nothing is left.
func ExtractPayload(text string) (payload string, ok bool) {
	trimmed := strings.TrimSpace(text)

	if open := strings.Index(trimmed, fence); open >= 0 {
		body := trimmed[open+len(fence):]

		// Drop the info string ("json", "JSON", ...) on the opening line
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
			body = body[nl+1:]
		} else {
			body = strings.TrimPrefix(strings.TrimPrefix(body, "json"), "JSON")
		}

		if end := strings.Index(body, fence); end >= 0 {
			body = body[:end]
		}

		payload = strings.TrimSpace(body)
		return payload, payload != ""
	}

	return trimmed, trimmed != ""
}

// candidatePayload mirrors the four-field shape requested in the prompt
type candidatePayload struct {
	Name          *string `json:"name"`
	Notes         *string `json:"notes"`
	SugarDelta    delta   `json:"sugar_delta"`
	CaffeineDelta delta   `json:"caffeine_delta"`
}

// delta accepts a JSON number or a numeric string. Anything else leaves it
// unset instead of rejecting the candidate.
type delta struct {
	value *float64
}

func (d *delta) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case float64:
		d.value = &v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			d.value = &f
		}
	}
	return nil
}

// ParseCandidate decodes a substitute candidate from model output
func ParseCandidate(text string) (models.SubstituteCandidate, error) {
	payload, ok := ExtractPayload(text)
	if !ok {
		return models.SubstituteCandidate{}, ErrNoPayload
	}

	var p candidatePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return models.SubstituteCandidate{}, fmt.Errorf("failed to decode payload: %w", err)
	}

	if p.Name == nil || strings.TrimSpace(*p.Name) == "" {
		return models.SubstituteCandidate{}, ErrMissingName
	}

	notes := defaultNotes
	if p.Notes != nil && strings.TrimSpace(*p.Notes) != "" {
		notes = strings.TrimSpace(*p.Notes)
	}

	return models.SubstituteCandidate{
		Name:          strings.TrimSpace(*p.Name),
		Notes:         notes,
		SugarDelta:    p.SugarDelta.value,
		CaffeineDelta: p.CaffeineDelta.value,
	}, nil
}
