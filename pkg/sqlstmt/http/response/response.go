// Package response holds the payload wrappers handlers hand to the Responder.
package response

import "net/http"

// Response carries data plus metadata rendered next to it.
type Response struct {
	Data    any               `json:"data"`
	Meta    map[string]any    `json:"meta,omitempty"`
	Headers map[string]string `json:"-"`
}

func (resp Response) SetCustomHeaders(w http.ResponseWriter) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
}

// Raw is encoded as is, without the {code, data, message} envelope.
type Raw struct {
	Data any

	// StatusCode overrides the success status when it is a valid HTTP status.
	StatusCode int
}
