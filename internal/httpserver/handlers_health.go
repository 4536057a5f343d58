package httpserver

import (
	"net/http"
	"time"

	"github.com/maisonmara/server/pkg/responders"
)

type healthResponse struct {
	Status         string `json:"status"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	StorageBackend string `json:"storage_backend"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	backend := h.cfg.Storage.Backend
	if backend == "" {
		backend = "memory"
	}
	responders.JSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		UptimeSeconds:  int64(time.Since(serverStartTime).Seconds()),
		StorageBackend: backend,
	})
}
