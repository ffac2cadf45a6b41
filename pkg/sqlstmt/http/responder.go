// Package http serves statement rendering over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	resTypes "github.com/sllt/sqlstmt/pkg/sqlstmt/http/response"
)

// NewResponder creates a new Responder instance from the given http.ResponseWriter.
func NewResponder(w http.ResponseWriter, method string) *Responder {
	return &Responder{w: w, method: method}
}

// Responder encapsulates an http.ResponseWriter and is responsible for crafting structured responses.
type Responder struct {
	w      http.ResponseWriter
	method string
}

// Respond writes data as {code, data, message, meta}. A non-nil err replaces
// data and picks the status through StatusCodeResponder.
func (r Responder) Respond(data any, err error) {
	var resp any

	switch v := data.(type) {
	case resTypes.Raw:
		resp = v.Data
		if err != nil {
			resp = r.buildResponse(nil, nil, err)
		}
	case resTypes.Response:
		v.SetCustomHeaders(r.w)
		resp = r.buildResponse(v.Data, v.Meta, err)
	default:
		if isNil(data) {
			data = nil
		}

		resp = r.buildResponse(data, nil, err)
	}

	if r.w.Header().Get("Content-Type") == "" {
		r.w.Header().Set("Content-Type", "application/json")
	}

	jsonData, encodeErr := json.Marshal(resp)
	if encodeErr != nil {
		r.w.WriteHeader(http.StatusInternalServerError)

		_, _ = r.w.Write([]byte(`{"code":-1,"data":null,"message":"failed to encode response as JSON"}` + "\n"))

		return
	}

	r.w.WriteHeader(r.getHTTPStatusCode(data, err))
	_, _ = r.w.Write(jsonData)
	_, _ = r.w.Write([]byte("\n"))
}

func (Responder) buildResponse(data any, meta map[string]any, err error) response {
	if err == nil {
		return response{Code: 0, Data: data, Message: "ok", Meta: meta}
	}

	return response{Code: getErrorCode(err), Data: nil, Message: err.Error(), Meta: meta}
}

func (Responder) getHTTPStatusCode(data any, err error) int {
	if err == nil {
		if raw, ok := data.(resTypes.Raw); ok && raw.StatusCode >= http.StatusContinue && raw.StatusCode <= 999 {
			return raw.StatusCode
		}

		return http.StatusOK
	}

	var sc StatusCodeResponder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}

	return http.StatusInternalServerError
}

// getErrorCode returns the business error code from the error.
// Priority: CodeResponder.Code() > StatusCodeResponder.StatusCode() > -1
func getErrorCode(err error) int {
	var cr CodeResponder
	if errors.As(err, &cr) {
		return cr.Code()
	}

	var sc StatusCodeResponder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}

	return -1
}

// response represents the unified HTTP JSON response format.
type response struct {
	Code    int            `json:"code"`
	Data    any            `json:"data"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// StatusCodeResponder allows errors to specify the HTTP status code.
type StatusCodeResponder interface {
	StatusCode() int
}

// CodeResponder allows errors to specify a business error code.
// This is used in the JSON response "code" field.
// If not implemented, falls back to StatusCodeResponder.StatusCode(), or -1.
type CodeResponder interface {
	Code() int
}

// isNil checks if the given any value is nil.
// It returns true if the value is nil or if it is a pointer that points to nil.
func isNil(i any) bool {
	if i == nil {
		return true
	}

	v := reflect.ValueOf(i)

	return v.Kind() == reflect.Ptr && v.IsNil()
}
