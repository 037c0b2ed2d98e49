package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"reliefbridge/pkg/e"
	"reliefbridge/pkg/validator"
)

const maxBodyBytes = 1 << 20

// DecodeJSON strictly decodes one JSON object from the body and validates it.
// An empty body decodes to the zero value when allowEmpty is set.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, allowEmpty bool) (T, error) {
	var target T

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&target); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return target, validator.ValidateStruct(target)
		}
		return target, fmt.Errorf("invalid JSON: %v: %w", err, e.ErrInvalidInput)
	}
	// trailing data after the first object
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return target, fmt.Errorf("invalid JSON: trailing data: %w", e.ErrInvalidInput)
	}

	if err := validator.ValidateStruct(target); err != nil {
		return target, err
	}
	return target, nil
}
