package internal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyQuestion is returned when a blank question is submitted
	ErrEmptyQuestion = errors.New("please input a question")
	// ErrSubmitInFlight is returned when the chat already has a pending submit
	ErrSubmitInFlight = errors.New("a question is already pending for this chat")
	// ErrNoChatSelected is returned when no chat is active
	ErrNoChatSelected = errors.New("no chat selected")
	// ErrUnknownChat is returned when selecting a chat outside the active namespace
	ErrUnknownChat = errors.New("chat does not belong to the selected namespace")
	// ErrChatNotFound is returned when a chat id is not registered
	ErrChatNotFound = errors.New("chat not found")
	// ErrInvalidTemperature is returned for temperatures outside [0,1]
	ErrInvalidTemperature = errors.New("temperature must be between 0 and 1")
)

// StorageError represents errors accessing the local database
type StorageError struct {
	Path string
	Op   string // "open", "migrate", "read", "write"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// StoreReadError represents a conversation that could not be loaded
type StoreReadError struct {
	ChatID string
	Err    error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("failed to load conversation [%s]: %v", e.ChatID, e.Err)
}

func (e *StoreReadError) Unwrap() error {
	return e.Err
}

// BackendError represents a failed answering-service call, either a
// logical error reported in the response body or a transport failure
type BackendError struct {
	Status  int    // HTTP status, 0 for transport failures
	Message string // message reported by the backend
	Err     error
}

func (e *BackendError) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("backend error: %s", e.Message)
	default:
		return fmt.Sprintf("backend error: %v", e.Err)
	}
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// MissingCredentialsError lists the credentials that are not configured
type MissingCredentialsError struct {
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing credentials: %s", strings.Join(e.Missing, ", "))
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
