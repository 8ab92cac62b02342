package nutrition

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/fdg312/plateplan/internal/logging"
	"github.com/fdg312/plateplan/internal/storage"
	"github.com/fdg312/plateplan/internal/userctx"
)

// Handler handles HTTP requests for nutrition targets.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logging.OrNop(logger)}
}

// GetTargetsResponse carries null targets when the profile is incomplete.
type GetTargetsResponse struct {
	Targets *storage.Macros `json:"targets"`
	Source  string          `json:"source"`
}

// HandleGetTargets handles GET /v1/nutrition/targets
func (h *Handler) HandleGetTargets(w http.ResponseWriter, r *http.Request) {
	ownerUserID := userctx.OwnerID(r.Context())

	targets, source, err := h.service.TargetsWithSource(r.Context(), ownerUserID)
	if err != nil {
		h.logger.Error("resolve targets failed", zap.String("owner", ownerUserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to get nutrition targets")
		return
	}

	writeJSON(w, http.StatusOK, GetTargetsResponse{Targets: targets, Source: source})
}

// writeJSON encodes before writing the status, so a body that cannot be
// encoded turns into a 500 rather than an empty success.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":{"code":"internal_error","message":"Failed to encode response"}}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
