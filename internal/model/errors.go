// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "fmt"

// ValidationError reports malformed input that was rejected before any
// state change or network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// ValidateMessages checks a request payload: it must be non-empty and every
// message must be well-formed.
func ValidateMessages(msgs []Message) error {
	if len(msgs) == 0 {
		return &ValidationError{Field: "messages", Message: "conversation is empty"}
	}
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			ve := err.(*ValidationError)
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].%s", i, ve.Field),
				Message: ve.Message,
			}
		}
	}
	return nil
}
