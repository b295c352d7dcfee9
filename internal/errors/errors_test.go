// SPDX-License-Identifier: AGPL-3.0-only
package errors

import (
	"fmt"
	"testing"
)

func TestNotFound(t *testing.T) {
	err := NotFound("tool", "get_weather")
	expectedMsg := "resource not found: tool with ID get_weather"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestAlreadyExists(t *testing.T) {
	err := AlreadyExists("mention", "server-a")
	expectedMsg := "resource already exists: mention with ID server-a"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestInvalidInput(t *testing.T) {
	reason := "missing required field"
	err := InvalidInput(reason)
	expectedMsg := "invalid input: " + reason
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestBusy(t *testing.T) {
	err := Busy("conversation")
	expectedMsg := "busy: conversation already has a run in flight"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestInternal(t *testing.T) {
	originalErr := fmt.Errorf("database connection failed")
	err := Internal(originalErr)
	expectedMsg := "internal error: database connection failed"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}
