package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

type sentFieldsKey struct{}

// captureFields records the top-level keys of a JSON request body so handlers
// can tell a field sent as null (clear it) from one left out (keep it).
func captureFields(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, newAPIError(http.StatusRequestEntityTooLarge, "", "request body too large", nil))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(data))
		var fields map[string]json.RawMessage
		if json.Unmarshal(data, &fields) != nil {
			fields = nil
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sentFieldsKey{}, fields)))
	})
}

// sentNull reports whether key was sent as an explicit JSON null.
func sentNull(ctx context.Context, key string) bool {
	fields, _ := ctx.Value(sentFieldsKey{}).(map[string]json.RawMessage)
	raw, ok := fields[key]
	return ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
