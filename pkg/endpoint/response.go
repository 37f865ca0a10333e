package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
)

// StatusError carries an HTTP status with an error.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return http.StatusText(e.Status)
	}
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status.
func (e *StatusError) StatusCode() int { return e.Status }

// StatusCoder is implemented by errors and results that choose their status.
type StatusCoder interface {
	StatusCode() int
}

// Error wraps err with an HTTP status.
func Error(status int, err error) error {
	return &StatusError{Status: status, Err: err}
}

// BadRequest wraps err as a 400.
func BadRequest(err error) error { return Error(http.StatusBadRequest, err) }

// NotFound wraps err as a 404.
func NotFound(err error) error { return Error(http.StatusNotFound, err) }

// Unauthorized wraps err as a 401.
func Unauthorized(err error) error { return Error(http.StatusUnauthorized, err) }

// Forbidden wraps err as a 403.
func Forbidden(err error) error { return Error(http.StatusForbidden, err) }

// ResponseWriter is implemented by results that write themselves.
type ResponseWriter interface {
	WriteResponse(w http.ResponseWriter) error
}

// Result pairs a value with an explicit status.
type Result struct {
	Status int
	Value  any
}

// StatusCode returns the result's status.
func (r Result) StatusCode() int { return r.Status }

// Created is a 201 result.
func Created(v any) Result { return Result{Status: http.StatusCreated, Value: v} }

// WriteResult writes a handler's return value. Nil results are 204.
func WriteResult(w http.ResponseWriter, v any) error {
	if isNil(v) {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	if rw, ok := v.(ResponseWriter); ok {
		return rw.WriteResponse(w)
	}
	if res, ok := v.(Result); ok {
		if isNil(res.Value) {
			w.WriteHeader(res.Status)
			return nil
		}
		return WriteJSON(w, res.Status, res.Value)
	}
	status := http.StatusOK
	if sc, ok := v.(StatusCoder); ok {
		status = sc.StatusCode()
	}
	return WriteJSON(w, status, v)
}

// WriteError writes err as {"error": message} with the status it carries,
// or 500.
func WriteError(w http.ResponseWriter, err error) error {
	status := http.StatusInternalServerError
	var sc StatusCoder
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}
	return WriteJSON(w, status, map[string]string{"error": err.Error()})
}

// WriteJSON renders a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
