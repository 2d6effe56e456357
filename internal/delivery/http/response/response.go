// Package response defines the uniform JSON envelope returned by every endpoint.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the wire shape of every response, success or failure.
type Envelope struct {
	Success bool          `json:"success"`
	Code    int           `json:"code"`
	Message string        `json:"message,omitempty"`
	Data    any           `json:"data,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

// ErrorPayload carries the machine-readable error information.
type ErrorPayload struct {
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// ListData wraps a page of items with its pagination metadata. Count is the
// number of items in this page; Total the match count across all pages.
type ListData struct {
	Items any   `json:"items"`
	Count int   `json:"count"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// OK writes a 200 envelope with the given data.
func OK(c echo.Context, data any) error {
	return JSON(c, http.StatusOK, data)
}

// Created writes a 201 envelope with the given data.
func Created(c echo.Context, data any) error {
	return JSON(c, http.StatusCreated, data)
}

// NoContent writes a 200 envelope without data. The envelope is kept (rather
// than a bare 204) so clients can always rely on the same shape.
func NoContent(c echo.Context) error {
	return JSON(c, http.StatusOK, nil)
}

// List writes a 200 envelope wrapping a page of items.
func List(c echo.Context, items any, count int, total int64, page, limit int) error {
	return JSON(c, http.StatusOK, &ListData{
		Items: items,
		Count: count,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// JSON writes a success envelope with an arbitrary status code.
func JSON(c echo.Context, code int, data any) error {
	return c.JSON(code, &Envelope{
		Success: true,
		Code:    code,
		Data:    data,
	})
}

// Fail writes a failure envelope.
func Fail(c echo.Context, httpCode int, message, errorCode, details string) error {
	return c.JSON(httpCode, &Envelope{
		Success: false,
		Code:    httpCode,
		Message: message,
		Error: &ErrorPayload{
			Code:    errorCode,
			Details: details,
		},
	})
}
