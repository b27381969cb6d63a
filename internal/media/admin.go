package media

import (
	"log"
	"net/http"

	"github.com/inmuebles/service/internal/response"
)

// AdminHandler exposes reconciliation operations. Mounted behind the admin
// role gate.
type AdminHandler struct {
	svc *Service
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(svc *Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// SweepOrphans godoc
//
//	@Summary		Reconcile orphaned objects
//	@Description	Deletes stored objects whose asset records are gone and clears the reconciliation queue.
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/admin/storage/sweep [post]
func (h *AdminHandler) SweepOrphans(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.svc.SweepOrphans(r.Context())
	if err != nil {
		log.Printf("media: orphan sweep failed: %v", err)
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]int{"cleared": cleared})
}
