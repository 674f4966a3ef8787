package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"lifeos/internal/logging"
	"lifeos/internal/transport"
)

const (
	msgUnknownMethod    = "Unknown method"
	msgMethodNotAllowed = "Method not allowed"
)

// maxRelayBody bounds the request envelope.
const maxRelayBody = 1 << 20

type relayErrorBody struct {
	Error string `json:"error"`
}

// newRelayHandler forwards method envelopes to t and writes the upstream JSON
// back unmodified. Errors use the flat {"error": msg} shape the browser
// client expects.
func newRelayHandler(t transport.Transport, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			writeRelayError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
			return
		}

		var req transport.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRelayBody)).Decode(&req); err != nil {
			writeRelayError(w, http.StatusBadRequest, msgUnknownMethod)
			return
		}
		if err := req.Validate(); err != nil {
			if errors.Is(err, transport.ErrUnsupportedMethod) {
				writeRelayError(w, http.StatusBadRequest, msgUnknownMethod)
				return
			}
			writeRelayError(w, http.StatusBadRequest, err.Error())
			return
		}

		out, err := t.Invoke(r.Context(), req)
		if err != nil {
			msg := logging.SanitizeError(err)
			logger.Error("Relay call failed",
				zap.String("method", req.Method),
				zap.String("request_id", requestIDFromContext(r.Context())),
				zap.String("error", msg))
			writeRelayError(w, http.StatusInternalServerError, msg)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	}
}

func writeRelayError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(relayErrorBody{Error: msg})
}
