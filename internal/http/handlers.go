package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	mongoadapter "tourstay/internal/adapters/mongo"
	redisadapter "tourstay/internal/adapters/redis"
	"tourstay/internal/booking"
	"tourstay/internal/config"
	"tourstay/internal/domain"
	"tourstay/internal/observability"
)

// BookingService is the orchestrator surface the handlers depend on.
type BookingService interface {
	Create(ctx context.Context, req domain.BookingRequest) (*booking.CreateResult, error)
	Cancel(ctx context.Context, id uuid.UUID) (*booking.CancelResult, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
}

type Handlers struct {
	cfg      *config.Config
	bookings BookingService
	hotels   *mongoadapter.HotelRepository
	stores   *mongoadapter.StoreRepository
	cache    *redisadapter.Cache
	validate *validator.Validate
	logger   observability.Logger
}

func NewHandlers(cfg *config.Config, bookings BookingService, hotels *mongoadapter.HotelRepository, stores *mongoadapter.StoreRepository, cache *redisadapter.Cache, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		bookings: bookings,
		hotels:   hotels,
		stores:   stores,
		cache:    cache,
		validate: validator.New(),
		logger:   logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handlers) writeErr(w http.ResponseWriter, err error) {
	var status int
	msg := err.Error()
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnavailable):
		status = http.StatusServiceUnavailable
		msg = "Service unavailable: database not connected"
	case errors.Is(err, domain.ErrDeliveryFailed):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
		h.logger.Error("internal error: ", err)
		msg = "Server error"
	}
	writeJSON(w, status, map[string]string{"message": msg})
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	if req.UserID == "" {
		req.UserID = UserID(r.Context())
	}

	res, err := h.bookings.Create(r.Context(), req)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	resp := map[string]interface{}{
		"booking":   res.Booking,
		"emailSent": res.EmailSent,
	}
	if res.EmailQueued {
		resp["message"] = "Booking created (email queued)"
		resp["queued"] = true
	} else {
		resp["message"] = "Booking created"
	}
	if res.Preview != "" {
		resp["preview"] = res.Preview
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handlers) GetBookings(w http.ResponseWriter, r *http.Request) {
	filter := domain.BookingFilter{}
	if v := r.URL.Query().Get("user"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "user must be a valid id"})
			return
		}
		filter.UserID = &id
	}
	if v := r.URL.Query().Get("hotel"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "hotel must be a valid id"})
			return
		}
		filter.HotelID = &id
	}

	bookings, err := h.bookings.List(r.Context(), filter)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid booking id"})
		return
	}

	b, err := h.bookings.Get(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"booking": b})
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid booking id"})
		return
	}

	res, err := h.bookings.Cancel(r.Context(), id)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Booking cancelled",
		"booking":     res.Booking,
		"emailStatus": res.Email,
	})
}

type hotelRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Location    domain.Location `json:"location"`
	Amenities   []string        `json:"amenities"`
	Rooms       []domain.Room   `json:"rooms" validate:"dive"`
}

func (h *Handlers) CreateHotel(w http.ResponseWriter, r *http.Request) {
	var req hotelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	hotel := domain.Hotel{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Amenities:   req.Amenities,
		Rooms:       req.Rooms,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := h.hotels.Create(r.Context(), hotel); err != nil {
		h.writeErr(w, err)
		return
	}

	h.cacheSet(r.Context(), "hotel:"+hotel.ID.String(), hotel)
	h.cache.DeleteByPattern(r.Context(), "hotels:*")
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "Hotel created", "hotel": hotel})
}

func (h *Handlers) GetHotels(w http.ResponseWriter, r *http.Request) {
	const key = "hotels:all"
	if data, ok := h.cache.Get(r.Context(), key); ok {
		var hotels []domain.Hotel
		if err := json.Unmarshal(data, &hotels); err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"hotels": hotels})
			return
		}
	}

	hotels, err := h.hotels.List(r.Context(), 200)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.cacheSet(r.Context(), key, hotels)
	writeJSON(w, http.StatusOK, map[string]interface{}{"hotels": hotels})
}

func (h *Handlers) GetHotel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid hotel id"})
		return
	}

	key := "hotel:" + id.String()
	if data, ok := h.cache.Get(r.Context(), key); ok {
		var hotel domain.Hotel
		if err := json.Unmarshal(data, &hotel); err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"hotel": hotel})
			return
		}
	}

	hotel, err := h.hotels.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Hotel not found"})
			return
		}
		h.writeErr(w, err)
		return
	}
	h.cacheSet(r.Context(), key, hotel)
	writeJSON(w, http.StatusOK, map[string]interface{}{"hotel": hotel})
}

func (h *Handlers) UpdateHotel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid hotel id"})
		return
	}

	var req hotelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	existing, err := h.hotels.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Hotel not found"})
			return
		}
		h.writeErr(w, err)
		return
	}

	existing.Name = req.Name
	existing.Description = req.Description
	existing.Location = req.Location
	existing.Amenities = req.Amenities
	existing.Rooms = req.Rooms
	if err := h.hotels.Update(r.Context(), *existing); err != nil {
		h.writeErr(w, err)
		return
	}

	h.cacheSet(r.Context(), "hotel:"+id.String(), existing)
	h.cache.DeleteByPattern(r.Context(), "hotels:*")
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Hotel updated", "hotel": existing})
}

func (h *Handlers) DeleteHotel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid hotel id"})
		return
	}

	if err := h.hotels.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Hotel not found"})
			return
		}
		h.writeErr(w, err)
		return
	}

	h.cache.Delete(r.Context(), "hotel:"+id.String())
	h.cache.DeleteByPattern(r.Context(), "hotels:*")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hotel deleted"})
}

type storeRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Slug        string          `json:"slug" validate:"required,max=200"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Tags        []string        `json:"tags"`
	Phone       string          `json:"phone"`
	Email       string          `json:"email" validate:"omitempty,email"`
	Website     string          `json:"website" validate:"omitempty,url"`
	PriceRange  string          `json:"priceRange" validate:"omitempty,oneof=$ $$ $$$"`
	Address     domain.Location `json:"address"`
	Amenities   []string        `json:"amenities"`
}

func (h *Handlers) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	store := domain.Store{
		ID:          uuid.New(),
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		Phone:       req.Phone,
		Email:       req.Email,
		Website:     req.Website,
		PriceRange:  req.PriceRange,
		Address:     req.Address,
		Amenities:   req.Amenities,
		CreatedAt:   time.Now().UTC(),
	}
	if ownerID := UserID(r.Context()); ownerID != "" {
		if id, err := uuid.Parse(ownerID); err == nil {
			store.Owner = &id
		}
	}

	if err := h.stores.Create(r.Context(), store); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "a store with this slug already exists"})
			return
		}
		h.writeErr(w, err)
		return
	}

	h.cacheSet(r.Context(), "store:"+store.Slug, store)
	h.cache.DeleteByPattern(r.Context(), "stores:*")
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "Store created", "store": store})
}

func (h *Handlers) GetStores(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	key := "stores:category=" + category
	if data, ok := h.cache.Get(r.Context(), key); ok {
		var stores []domain.Store
		if err := json.Unmarshal(data, &stores); err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"stores": stores})
			return
		}
	}

	stores, err := h.stores.List(r.Context(), category, 200)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.cacheSet(r.Context(), key, stores)
	writeJSON(w, http.StatusOK, map[string]interface{}{"stores": stores})
}

func (h *Handlers) GetStore(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	key := "store:" + slug
	if data, ok := h.cache.Get(r.Context(), key); ok {
		var store domain.Store
		if err := json.Unmarshal(data, &store); err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"store": store})
			return
		}
	}

	store, err := h.stores.FindBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Store not found"})
			return
		}
		h.writeErr(w, err)
		return
	}
	h.cacheSet(r.Context(), key, store)
	writeJSON(w, http.StatusOK, map[string]interface{}{"store": store})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func (h *Handlers) cacheSet(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.cache.Set(ctx, key, data, h.cfg.CacheTTL)
}
