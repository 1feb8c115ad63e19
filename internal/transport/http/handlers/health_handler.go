package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/ivankudzin/giftexchange/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/giftexchange/internal/transport/http/errors"
)

// HealthCheck reports one dependency's reachability.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{checks: make(map[string]HealthCheck)}
}

func (h *HealthHandler) Register(name string, check HealthCheck) {
	if check == nil {
		return
	}
	h.checks[name] = check
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	response := dto.HealthResponse{Status: "ok"}
	status := http.StatusOK
	if len(names) > 0 {
		response.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			response.Checks[name] = err.Error()
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Checks[name] = "ok"
	}

	httperrors.Write(w, status, response)
}
