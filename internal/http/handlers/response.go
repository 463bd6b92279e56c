package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/studio-scheduler/pkg/logging"
)

func writeJSON(w http.ResponseWriter, logger *logging.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
