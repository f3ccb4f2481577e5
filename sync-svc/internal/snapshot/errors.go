package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrEmptyOrder     = errors.New("order must contain at least one line")
	ErrMissingOrderID = errors.New("response did not include an orderId")
)

// SnapshotFetchError is returned for every failed snapshot read or mutating
// call. StatusCode is 0 when the request never produced a response.
type SnapshotFetchError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SnapshotFetchError) Error() string {
	return e.Message
}

func (e *SnapshotFetchError) Unwrap() error {
	return e.Err
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// readErrorMessage prefers the API's {error:{message}} body and falls back to
// a status-coded message.
func readErrorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil {
		var envelope errorEnvelope
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil && envelope.Error.Message != "" {
			return envelope.Error.Message
		}
	}
	return fmt.Sprintf("request failed (%d)", resp.StatusCode)
}

func transportError(err error) *SnapshotFetchError {
	return &SnapshotFetchError{Message: err.Error(), Err: err}
}
