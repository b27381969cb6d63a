package owner

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inmuebles/service/internal/response"
)

// Handler holds HTTP handlers for owner endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new owner Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes returns the router for /owners.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// Create godoc
//
//	@Summary	Create an owner
//	@Tags		owners
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		owner	body		Owner	true	"Owner"
//	@Success	201		{object}	response.Envelope{data=Owner}
//	@Router		/owners [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Owner
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	created, err := h.svc.Create(r.Context(), &in)
	if err != nil {
		log.Printf("owner: create failed: %v", err)
		response.InternalError(w)
		return
	}
	response.Created(w, created)
}

// List godoc
//
//	@Summary	List owners
//	@Tags		owners
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	response.Envelope{data=[]Owner}
//	@Router		/owners [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context())
	if err != nil {
		log.Printf("owner: list failed: %v", err)
		response.InternalError(w)
		return
	}
	response.OK(w, out)
}

// Get godoc
//
//	@Summary	Get an owner
//	@Tags		owners
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Owner ID"
//	@Success	200	{object}	response.Envelope{data=Owner}
//	@Failure	404	{object}	response.Envelope
//	@Router		/owners/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid owner id")
		return
	}
	out, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "owner not found")
			return
		}
		log.Printf("owner: get %d failed: %v", id, err)
		response.InternalError(w)
		return
	}
	response.OK(w, out)
}

// Update godoc
//
//	@Summary	Update an owner
//	@Tags		owners
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int		true	"Owner ID"
//	@Param		owner	body		Owner	true	"Owner"
//	@Success	200		{object}	response.Envelope{data=Owner}
//	@Failure	404		{object}	response.Envelope
//	@Router		/owners/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid owner id")
		return
	}
	var in Owner
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	out, err := h.svc.Update(r.Context(), id, &in)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "owner not found")
			return
		}
		log.Printf("owner: update %d failed: %v", id, err)
		response.InternalError(w)
		return
	}
	response.OK(w, out)
}

// Delete godoc
//
//	@Summary	Delete an owner
//	@Tags		owners
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Owner ID"
//	@Success	200	{object}	response.Envelope
//	@Failure	404	{object}	response.Envelope
//	@Router		/owners/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid owner id")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "owner not found")
			return
		}
		log.Printf("owner: delete %d failed: %v", id, err)
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]string{"message": "owner deleted"})
}
