// Package web holds the response envelope and transport middleware shared by
// every HTTP handler.
package web

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Response is the envelope every endpoint writes. Errors carry the status
// code in the body as well so clients can branch without reading headers.
type Response struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any, message string) {
	write(w, status, Response{Success: true, Data: data, Message: message})
}

func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Response{Success: false, Message: message, StatusCode: status})
}

func write(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ClientIP returns the originating client address, preferring the first
// X-Forwarded-For entry set by the fronting proxy.
func ClientIP(r *http.Request) string {
	forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if forwarded != "" {
		first := strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
		if first != "" {
			return first
		}
	}

	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
