package media

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inmuebles/service/internal/response"
)

// maxUploadBytes bounds a single image upload (32 MiB).
const maxUploadBytes = 32 << 20

// OwnerChecker reports whether the owning record exists. The media core has
// no referential integrity across owner kinds; each listing endpoint supplies
// its own check.
type OwnerChecker func(ctx context.Context, id int64) (bool, error)

// Handler serves the image endpoints for one owner kind. Listing routers
// mount one Handler each with the kind fixed, so the kind never comes from
// client input.
type Handler struct {
	svc         *Service
	kind        string
	ownerExists OwnerChecker
}

// NewHandler creates a media Handler bound to a single owner kind.
func NewHandler(svc *Service, kind string, ownerExists OwnerChecker) *Handler {
	return &Handler{svc: svc, kind: kind, ownerExists: ownerExists}
}

// Routes returns the image sub-router, to be mounted under /{id}/images.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Upload)
	r.Get("/", h.List)
	r.Delete("/{imageID}", h.Delete)
	r.Patch("/{imageID}/primary", h.SetPrimary)
	return r
}

// AssetResponse is an asset as exposed over the API. SecureURL is computed
// at serialization time from the private storage key; it is absent when
// signing fails or the asset has no bytes, never a persisted column.
type AssetResponse struct {
	ID        int64     `json:"id"`
	Caption   *string   `json:"caption,omitempty"`
	IsPrimary bool      `json:"isPrimary"`
	Order     int       `json:"order"`
	SecureURL string    `json:"secure_url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Render serializes an asset, attaching a fresh signed URL. Signing failures
// are logged and surface as a missing secure_url rather than failing the
// response.
func (h *Handler) Render(ctx context.Context, a *Asset, ttl time.Duration) AssetResponse {
	url, err := h.svc.SecureURL(ctx, a, ttl)
	if err != nil {
		log.Printf("media: sign %q failed: %v", a.StorageKey, err)
		url = ""
	}
	return AssetResponse{
		ID:        a.ID,
		Caption:   a.Caption,
		IsPrimary: a.IsPrimary,
		Order:     a.Order,
		SecureURL: url,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Upload godoc
//
//	@Summary		Upload an image
//	@Description	Attaches an image to the listing. The file is stored privately; responses carry a time-limited secure_url.
//	@Tags			images
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int		true	"Listing ID"
//	@Param			image	formData	file	true	"Image file"
//	@Param			caption	formData	string	false	"Caption"
//	@Param			is_main	formData	bool	false	"Mark as primary image"
//	@Param			order	formData	int		false	"Display order"
//	@Success		201		{object}	response.Envelope{data=AssetResponse}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/{id}/images [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.ownerRef(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "image file is required")
		return
	}
	defer file.Close()

	up := Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}

	if c := r.FormValue("caption"); c != "" {
		up.Caption = &c
	}
	if v := r.FormValue("is_main"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(w, "is_main must be a boolean")
			return
		}
		up.MarkPrimary = b
	}
	if v := r.FormValue("order"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.BadRequest(w, "order must be a non-negative integer")
			return
		}
		up.Order = n
	}

	asset, err := h.svc.Attach(r.Context(), ref, file, up)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.Is(err, ErrInvalidFilename):
			response.BadRequest(w, "filename must have an extension")
		case errors.As(err, &verr):
			response.BadRequest(w, verr.Msg)
		default:
			log.Printf("media: attach to %s failed: %v", ref, err)
			response.InternalError(w)
		}
		return
	}

	response.Created(w, h.Render(r.Context(), asset, signTTLFromRequest(r)))
}

// List godoc
//
//	@Summary		List images
//	@Description	Returns the listing's images ordered by display order, each with a fresh time-limited secure_url.
//	@Tags			images
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Listing ID"
//	@Param			ttl	query		int	false	"Signed URL validity in seconds (default 3600)"
//	@Success		200	{object}	response.Envelope{data=[]AssetResponse}
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/{id}/images [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.ownerRef(w, r)
	if !ok {
		return
	}

	assets, err := h.svc.List(r.Context(), ref)
	if err != nil {
		log.Printf("media: list for %s failed: %v", ref, err)
		response.InternalError(w)
		return
	}

	ttl := signTTLFromRequest(r)
	out := make([]AssetResponse, 0, len(assets))
	for i := range assets {
		out = append(out, h.Render(r.Context(), &assets[i], ttl))
	}
	response.OK(w, out)
}

// Delete godoc
//
//	@Summary		Delete an image
//	@Description	Removes the image record and its stored bytes.
//	@Tags			images
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int	true	"Listing ID"
//	@Param			imageID	path		int	true	"Image ID"
//	@Success		200		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/{id}/images/{imageID} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.ownerRef(w, r)
	if !ok {
		return
	}
	assetID, err := strconv.ParseInt(chi.URLParam(r, "imageID"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid image id")
		return
	}

	if err := h.svc.Detach(r.Context(), ref, assetID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "image not found")
			return
		}
		log.Printf("media: detach %d from %s failed: %v", assetID, ref, err)
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"message": "image deleted"})
}

// SetPrimary godoc
//
//	@Summary		Set the primary image
//	@Description	Makes the image the listing's single primary image.
//	@Tags			images
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int	true	"Listing ID"
//	@Param			imageID	path		int	true	"Image ID"
//	@Success		200		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/{id}/images/{imageID}/primary [patch]
func (h *Handler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.ownerRef(w, r)
	if !ok {
		return
	}
	assetID, err := strconv.ParseInt(chi.URLParam(r, "imageID"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid image id")
		return
	}

	if err := h.svc.SetPrimary(r.Context(), ref, assetID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "image not found")
			return
		}
		log.Printf("media: set primary %d for %s failed: %v", assetID, ref, err)
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"message": "primary image updated"})
}

// ownerRef resolves the owning listing from the route and verifies it exists.
func (h *Handler) ownerRef(w http.ResponseWriter, r *http.Request) (OwnerRef, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid listing id")
		return OwnerRef{}, false
	}

	exists, err := h.ownerExists(r.Context(), id)
	if err != nil {
		log.Printf("media: owner check %s/%d failed: %v", h.kind, id, err)
		response.InternalError(w)
		return OwnerRef{}, false
	}
	if !exists {
		response.NotFound(w, "listing not found")
		return OwnerRef{}, false
	}

	return OwnerRef{Kind: h.kind, ID: id}, true
}

// signTTLFromRequest reads the optional ttl query parameter (seconds). The
// service clamps the value to its configured maximum.
func signTTLFromRequest(r *http.Request) time.Duration {
	v := r.URL.Query().Get("ttl")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
