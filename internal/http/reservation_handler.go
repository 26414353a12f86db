package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/omaressamii/high-class-sub002/internal/availability"
	"github.com/omaressamii/high-class-sub002/internal/domain"
	"github.com/omaressamii/high-class-sub002/internal/reconcile"
	"github.com/omaressamii/high-class-sub002/internal/repository"
	"github.com/omaressamii/high-class-sub002/internal/service"
)

const dateFormat = "2006-01-02"

// ReservationService is the slice of the engine the HTTP layer needs.
type ReservationService interface {
	CheckAvailability(ctx context.Context, productID string, start, end time.Time, quantity int, excludeOrderID string) (availability.Verdict, error)
	Calendar(ctx context.Context, productID string, start, end time.Time) ([]availability.DayAvailability, error)
	Reserve(ctx context.Context, req service.ReserveRequest, write service.OrderWriteFn) error
}

type Reconciler interface {
	Run(ctx context.Context, productIDs []string) (*reconcile.Report, error)
}

type ReservationHandler struct {
	service    ReservationService
	reconciler Reconciler
	orders     repository.OrderRepository
	timeout    time.Duration
}

func NewReservationHandler(service ReservationService, reconciler Reconciler, orders repository.OrderRepository, timeout time.Duration) *ReservationHandler {
	return &ReservationHandler{
		service:    service,
		reconciler: reconciler,
		orders:     orders,
		timeout:    timeout,
	}
}

type ReserveRequestDTO struct {
	OrderID    string `json:"order_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Intent     string `json:"intent"`
}

type ReserveResponseDTO struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type ReconcileRequestDTO struct {
	ProductIDs []string `json:"product_ids,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *ReservationHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	start, end, ok := parseWindow(w, r)
	if !ok {
		return
	}

	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || quantity <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be a positive integer")
		return
	}

	excludeOrderID := r.URL.Query().Get("exclude_order_id")

	verdict, err := h.service.CheckAvailability(ctx, productID, start, end, quantity, excludeOrderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, verdict)
}

func (h *ReservationHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	start, end, ok := parseWindow(w, r)
	if !ok {
		return
	}

	days, err := h.service.Calendar(ctx, productID, start, end)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, days)
}

func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ReserveRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	intent := service.Intent(req.Intent)
	if intent == "" {
		intent = service.IntentCreate
	}
	if intent != service.IntentCreate && intent != service.IntentModify && intent != service.IntentCancel {
		respondError(w, http.StatusBadRequest, "invalid_intent", "intent must be create, modify or cancel")
		return
	}

	var start, end time.Time
	if intent != service.IntentCancel {
		var err error
		start, err = time.Parse(dateFormat, req.Start)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_start", "start must be YYYY-MM-DD")
			return
		}
		end, err = time.Parse(dateFormat, req.End)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_end", "end must be YYYY-MM-DD")
			return
		}
	}

	orderID := req.OrderID
	if intent == service.IntentCreate && orderID == "" {
		orderID = uuid.New().String()
	}

	reserveReq := service.ReserveRequest{
		ProductID:      req.ProductID,
		Start:          start,
		End:            end,
		Quantity:       req.Quantity,
		ExcludeOrderID: orderID,
		Intent:         intent,
	}

	if err := h.service.Reserve(ctx, reserveReq, h.orderWriteFn(intent, orderID, &req)); err != nil {
		handleServiceError(w, err)
		return
	}

	statusCode := http.StatusOK
	responseStatus := "reserved"
	switch intent {
	case service.IntentCreate:
		statusCode = http.StatusCreated
	case service.IntentCancel:
		responseStatus = "cancelled"
	}

	respondJSON(w, statusCode, ReserveResponseDTO{OrderID: orderID, Status: responseStatus})
}

// orderWriteFn builds the persistence callback the admission controller
// invokes once capacity is granted.
func (h *ReservationHandler) orderWriteFn(intent service.Intent, orderID string, req *ReserveRequestDTO) service.OrderWriteFn {
	return func(ctx context.Context) error {
		switch intent {
		case service.IntentCancel:
			return h.orders.SetOrderStatus(ctx, orderID, domain.StatusCancelled)
		case service.IntentModify:
			start, _ := time.Parse(dateFormat, req.Start)
			end, _ := time.Parse(dateFormat, req.End)
			return h.orders.UpsertOrderItem(ctx, orderID, domain.OrderItem{
				ProductID:    req.ProductID,
				Quantity:     req.Quantity,
				DeliveryDate: start,
				ReturnDate:   end,
			})
		default:
			start, _ := time.Parse(dateFormat, req.Start)
			end, _ := time.Parse(dateFormat, req.End)
			return h.orders.InsertOrder(ctx, &domain.Order{
				ID:         orderID,
				CustomerID: req.CustomerID,
				Status:     domain.StatusPending,
				Items: []domain.OrderItem{{
					ProductID:    req.ProductID,
					Quantity:     req.Quantity,
					DeliveryDate: start,
					ReturnDate:   end,
				}},
			})
		}
	}
}

func (h *ReservationHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	// Reconciliation can outlive a single request timeout budget; give it
	// a wider one.
	ctx, cancel := context.WithTimeout(r.Context(), 4*h.timeout)
	defer cancel()

	var req ReconcileRequestDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	report, err := h.reconciler.Run(ctx, req.ProductIDs)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "reconcile_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, report)
}

func parseWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	start, err := time.Parse(dateFormat, r.URL.Query().Get("start"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_start", "start must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(dateFormat, r.URL.Query().Get("end"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_end", "end must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrCapacityExceeded):
		respondError(w, http.StatusConflict, "capacity_exceeded", err.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, service.ErrInvalidWindow),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrMissingOrderID):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrRepositoryUnavailable):
		respondError(w, http.StatusServiceUnavailable, "repository_unavailable", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Details: details,
	})
}
