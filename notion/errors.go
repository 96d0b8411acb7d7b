package notion

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrNoTargetBlock is returned by WriteTarget when the target store has no
// target_block.
var ErrNoTargetBlock = errors.New("notion: no target block configured")

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("notion: status %d (%s): %s", e.Status, e.Code, e.Message)
}

// newAPIError builds an APIError from a Notion error body
// ({"object":"error","status":..,"code":..,"message":..}).
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{
		Status:  status,
		Code:    gjson.GetBytes(body, "code").String(),
		Message: gjson.GetBytes(body, "message").String(),
	}
	if e.Message == "" {
		e.Message = string(body)
	}
	return e
}
