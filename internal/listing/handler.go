package listing

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inmuebles/service/internal/media"
	"github.com/inmuebles/service/internal/response"
)

// Handler holds HTTP handlers for listing endpoints. Image sub-routes are
// mounted with the owner kind fixed per route tree.
type Handler struct {
	svc        *Service
	saleImages *media.Handler
	rentImages *media.Handler
}

// NewHandler creates a listing Handler and its per-kind image handlers.
func NewHandler(svc *Service, mediaSvc *media.Service) *Handler {
	return &Handler{
		svc:        svc,
		saleImages: media.NewHandler(mediaSvc, string(KindHouseForSale), svc.ExistsChecker(KindHouseForSale)),
		rentImages: media.NewHandler(mediaSvc, string(KindHouseForRent), svc.ExistsChecker(KindHouseForRent)),
	}
}

// SaleRoutes returns the router for /houses-for-sale.
func (h *Handler) SaleRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateSale)
	r.Get("/", h.ListSales)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetSale)
		r.Put("/", h.UpdateSale)
		r.Delete("/", h.DeleteSale)
		r.Mount("/images", h.saleImages.Routes())
	})
	return r
}

// RentRoutes returns the router for /houses-for-rent.
func (h *Handler) RentRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateRent)
	r.Get("/", h.ListRents)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetRent)
		r.Put("/", h.UpdateRent)
		r.Delete("/", h.DeleteRent)
		r.Mount("/images", h.rentImages.Routes())
	})
	return r
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	f := Filter{City: q.Get("city")}
	if v, err := strconv.ParseInt(q.Get("min_cost"), 10, 64); err == nil {
		f.MinCost = v
	}
	if v, err := strconv.ParseInt(q.Get("max_cost"), 10, 64); err == nil {
		f.MaxCost = v
	}
	return f
}

// CreateSale godoc
//
//	@Summary	Create a for-sale listing
//	@Tags		houses-for-sale
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		listing	body		HouseForSale	true	"Listing"
//	@Success	201		{object}	response.Envelope{data=HouseForSale}
//	@Failure	400		{object}	response.Envelope
//	@Router		/houses-for-sale [post]
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var in HouseForSale
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if in.OwnerID <= 0 {
		response.BadRequest(w, "ownerId is required")
		return
	}

	created, err := h.svc.CreateSale(r.Context(), &in)
	if err != nil {
		log.Printf("listing: create sale failed: %v", err)
		response.InternalError(w)
		return
	}
	response.Created(w, created)
}

// ListSales godoc
//
//	@Summary	List for-sale listings
//	@Tags		houses-for-sale
//	@Produce	json
//	@Security	BearerAuth
//	@Param		city		query		string	false	"City filter"
//	@Param		min_cost	query		int		false	"Minimum selling cost"
//	@Param		max_cost	query		int		false	"Maximum selling cost"
//	@Success	200			{object}	response.Envelope{data=[]HouseForSale}
//	@Router		/houses-for-sale [get]
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListSales(r.Context(), filterFromQuery(r))
	if err != nil {
		log.Printf("listing: list sales failed: %v", err)
		response.InternalError(w)
		return
	}
	response.OK(w, out)
}

// GetSale godoc
//
//	@Summary	Get a for-sale listing
//	@Tags		houses-for-sale
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Listing ID"
//	@Success	200	{object}	response.Envelope{data=HouseForSale}
//	@Failure	404	{object}	response.Envelope
//	@Router		/houses-for-sale/{id} [get]
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid listing id")
		return
	}
	out, err := h.svc.GetSale(r.Context(), id)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "listing not found")
			return
		}
		log.Printf("listing: get sale %d failed: %v", id, err)
		response.InternalError(w)
		return
	}
	response.OK(w, out)
}

// UpdateSale godoc
//
//	@Summary	Update a for-sale listing
//	@Tags		houses-for-sale
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int				true	"Listing ID"
//	@Param		listing	body		HouseForSale	true	"Listing"
//	@Success	200		{object}	response.Envelope{data=HouseForSale}
//	@Failure	404		{object}	response.Envelope
//	@Router		/houses-for-sale/{id} [put]
func (h *Handler) UpdateSale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid listing id")
		return
	}
	var in HouseForSale
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	out, err := h.svc.UpdateSale(r.Context(), id, &in)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "listing not found")
			return
		}
		log.Printf("listing: update sale %d failed: %v", id, err)
		response.InternalError(w)
		return
	}
	response.OK(w, out)
}

// DeleteSale godoc
//
//	@Summary	Delete a for-sale listing
//	@Tags		houses-for-sale
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Listing ID"
//	@Success	200	{object}	response.Envelope
//	@Failure	404	{object}	response.Envelope
//	@Router		/houses-for-sale/{id} [delete]
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid listing id")
		return
	}
	if err := h.svc.DeleteSale(r.Context(), id); err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "listing not found")
			return
		}
		log.Printf("listing: delete sale %d failed: %v", id, err)
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]string{"message": "listing deleted"})
}

// CreateRent godoc
//
//	@Summary	Create a for-rent listing
//	@Tags		houses-for-rent
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		listing	body		HouseForRent	true	"Listing"
//	@Success	201		{object}	response.Envelope{data=HouseForRent}
//	@Failure	400		{object}	response.Envelope
//	@Router		/houses-for-rent [post]
func (h *Handler) CreateRent(w http.ResponseWriter, r *http.Request) {
	var in HouseForRent
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if in.OwnerID <= 0 {
		response.BadRequest(w, "ownerId is required")
		return
	}

	created, err := h.svc.CreateRent(r.Context(), &in)
	if err != nil {
		log.Printf("listing: create rent failed: %v", err)
		response.InternalError(w)
		return
	}
	response.Created(w, created)
}

// ListRents godoc
//
//	@Summary	List for-rent listings
//	@Tags		houses-for-rent
//	@Produce	json
//	@Security	BearerAuth
//	@Param		city		query		string	false	"City filter"
//	@Param		min_cost	query		int		false	"Minimum rent"
//	@Param		max_cost	query		int		false	"Maximum rent"
//	@Success	200			{object}	response.Envelope{data=[]HouseForRent}
//	@Router		/houses-for-rent [get]
func (h *Handler) ListRents(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListRents(r.Context(), filterFromQuery(r))
	if err != nil {
		log.Printf("listing: list rents failed: %v", err)
		response.InternalError(w)
		return
	}
	response.OK(w, out)
}

// GetRent godoc
//
//	@Summary	Get a for-rent listing
//	@Tags		houses-for-rent
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Listing ID"
//	@Success	200	{object}	response.Envelope{data=HouseForRent}
//	@Failure	404	{object}	response.Envelope
//	@Router		/houses-for-rent/{id} [get]
func (h *Handler) GetRent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid listing id")
		return
	}
	out, err := h.svc.GetRent(r.Context(), id)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "listing not found")
			return
		}
		log.Printf("listing: get rent %d failed: %v", id, err)
		response.InternalError(w)
		return
	}
	response.OK(w, out)
}

// UpdateRent godoc
//
//	@Summary	Update a for-rent listing
//	@Tags		houses-for-rent
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id		path		int				true	"Listing ID"
//	@Param		listing	body		HouseForRent	true	"Listing"
//	@Success	200		{object}	response.Envelope{data=HouseForRent}
//	@Failure	404		{object}	response.Envelope
//	@Router		/houses-for-rent/{id} [put]
func (h *Handler) UpdateRent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid listing id")
		return
	}
	var in HouseForRent
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	out, err := h.svc.UpdateRent(r.Context(), id, &in)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "listing not found")
			return
		}
		log.Printf("listing: update rent %d failed: %v", id, err)
		response.InternalError(w)
		return
	}
	response.OK(w, out)
}

// DeleteRent godoc
//
//	@Summary	Delete a for-rent listing
//	@Tags		houses-for-rent
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"Listing ID"
//	@Success	200	{object}	response.Envelope
//	@Failure	404	{object}	response.Envelope
//	@Router		/houses-for-rent/{id} [delete]
func (h *Handler) DeleteRent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.BadRequest(w, "invalid listing id")
		return
	}
	if err := h.svc.DeleteRent(r.Context(), id); err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "listing not found")
			return
		}
		log.Printf("listing: delete rent %d failed: %v", id, err)
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]string{"message": "listing deleted"})
}
