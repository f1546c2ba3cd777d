// Package validate extracts and checks request payloads before they
// reach the service layer.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternlund/datapact/internal/apperr"
)

// Input is the validated payload for create and save operations.
type Input struct {
	User    string
	Request string
}

// DecodeBody parses a request body into a generic object. The body may
// arrive as a JSON object or as a JSON-encoded string containing an
// object (the gateway delivers the latter); both shapes are accepted.
func DecodeBody(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON in request body: %v", apperr.ErrInvalidInput, err)
	}
	if s, ok := v.(string); ok {
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON in request body: %v", apperr.ErrInvalidInput, err)
		}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: request body must be a JSON object", apperr.ErrInvalidInput)
	}
	return obj, nil
}

// ExtractInput pulls {user, request} out of a decoded body. A nested
// input_data wrapper is accepted for backward compatibility with older
// clients, falling back to top-level fields.
func ExtractInput(body map[string]any) (Input, error) {
	src := body
	if wrapped, ok := body["input_data"].(map[string]any); ok {
		src = wrapped
	}

	user, _ := src["user"].(string)
	if user == "" {
		return Input{}, fmt.Errorf("%w: missing required field: user", apperr.ErrInvalidInput)
	}
	req, _ := src["request"].(string)
	if req == "" {
		return Input{}, fmt.Errorf("%w: missing required field: request", apperr.ErrInvalidInput)
	}
	if err := checkEmailShape(user); err != nil {
		return Input{}, err
	}
	return Input{User: user, Request: req}, nil
}

// checkEmailShape is deliberately coarse: the owner field only needs to
// look like an email, so requiring both "@" and "." is the whole check.
// This is intentional, not a placeholder for full RFC validation.
func checkEmailShape(user string) error {
	if !strings.Contains(user, "@") || !strings.Contains(user, ".") {
		return fmt.Errorf("%w: user must be a valid email address", apperr.ErrInvalidInput)
	}
	return nil
}
