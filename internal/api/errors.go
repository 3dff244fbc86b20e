package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes returned in REST error bodies
const (
	CodeInternal  = "internal_server_error"
	CodeInvalidID = "invalid_post_id"
	CodeNotFound  = "post_not_found"
)

// Error represents an API error
type Error struct {
	Status  int
	Code    string
	Message string
}

// NewError creates a new API error
func NewError(status int, code, message string) *Error {
	return &Error{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d (%s): %s", e.Status, e.Code, e.Message)
}

// errorBody is the JSON error envelope used by REST routes
type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Data    errorBodyExtra `json:"data"`
}

type errorBodyExtra struct {
	Status int `json:"status"`
}

// abortWithError writes err as a REST error body. Errors that are not *Error
// become 500s.
func abortWithError(c *gin.Context, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = NewError(http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.Status, errorBody{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Data:    errorBodyExtra{Status: apiErr.Status},
	})
}
