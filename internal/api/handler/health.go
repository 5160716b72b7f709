package handler

import (
	"net/http"

	"github.com/wzyfromhust/textsage/internal/api/response"
)

// HealthCheck reports service liveness.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}
