package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/restaurant-ordering/internal/core/domain"
	"github.com/rl1809/restaurant-ordering/internal/core/service"
	"github.com/rl1809/restaurant-ordering/internal/port"
)

type HTTPHandler struct {
	cartService    *service.CartService
	contactService *service.ContactService
	auth           *Authenticator
	logger         *zap.Logger
}

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type AddItemHTTPRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type SetQuantityHTTPRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutHTTPRequest struct {
	RequestID string `json:"request_id"`
}

type ContactHTTPRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type ReplyHTTPRequest struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
}

type StatusHTTPRequest struct {
	Status domain.MessageStatus `json:"status"`
}

func NewHTTPHandler(cartService *service.CartService, contactService *service.ContactService, auth *Authenticator, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		cartService:    cartService,
		contactService: contactService,
		auth:           auth,
		logger:         logger,
	}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("GET /api/cart", h.auth.Require(h.GetCart))
	mux.HandleFunc("DELETE /api/cart", h.auth.Require(h.ClearCart))
	mux.HandleFunc("POST /api/cart/items", h.auth.Require(h.AddCartItem))
	mux.HandleFunc("PUT /api/cart/items/{itemID}", h.auth.Require(h.SetCartQuantity))
	mux.HandleFunc("DELETE /api/cart/items/{itemID}", h.auth.Require(h.RemoveCartItem))
	mux.HandleFunc("DELETE /api/cart/unavailable", h.auth.Require(h.RemoveUnavailable))
	mux.HandleFunc("POST /api/cart/checkout", h.auth.Require(h.Checkout))

	mux.HandleFunc("POST /api/contacts", h.auth.Optional(h.SubmitContact))
	mux.HandleFunc("GET /api/contacts", h.auth.Require(h.ListContacts))
	mux.HandleFunc("GET /api/contacts/{id}", h.auth.Require(h.GetContact))
	mux.HandleFunc("POST /api/contacts/{id}/replies", h.auth.Require(h.ReplyContact))
	mux.HandleFunc("POST /api/contacts/{id}/read", h.auth.Require(h.MarkContactRead))
	mux.HandleFunc("POST /api/contacts/{id}/entries/{entryID}/read", h.auth.Require(h.MarkEntryRead))
	mux.HandleFunc("POST /api/contacts/{id}/close", h.auth.Require(AdminRequired(h.CloseContact)))
	mux.HandleFunc("PUT /api/contacts/{id}/status", h.auth.Require(AdminRequired(h.UpdateContactStatus)))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Cart

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())

	view, err := h.cartService.View(r.Context(), viewer.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "ok", Data: newCartResponse(view)})
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ItemID == "" || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "missing required fields"})
		return
	}

	viewer := ViewerFromContext(r.Context())
	if err := h.cartService.AddItem(r.Context(), viewer.UserID, req.ItemID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.GetCart(w, r)
}

func (h *HTTPHandler) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req SetQuantityHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	viewer := ViewerFromContext(r.Context())
	if err := h.cartService.SetQuantity(r.Context(), viewer.UserID, r.PathValue("itemID"), req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.GetCart(w, r)
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())
	if err := h.cartService.RemoveItem(r.Context(), viewer.UserID, r.PathValue("itemID")); err != nil {
		h.writeError(w, err)
		return
	}
	h.GetCart(w, r)
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())
	if err := h.cartService.Clear(r.Context(), viewer.UserID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "cart cleared"})
}

func (h *HTTPHandler) RemoveUnavailable(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromContext(r.Context())
	view, err := h.cartService.RemoveUnavailable(r.Context(), viewer.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "ok", Data: newCartResponse(view)})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		writeJSON(w, http.StatusBadRequest, APIResponse{Success: false, Message: "missing required fields"})
		return
	}

	viewer := ViewerFromContext(r.Context())
	order, err := h.cartService.Checkout(r.Context(), viewer.UserID, req.RequestID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, APIResponse{Success: true, Message: "order placed successfully", Data: newOrderResponse(order)})
}

// Contacts

func (h *HTTPHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req ContactHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := h.contactService.Submit(r.Context(), ViewerFromContext(r.Context()), service.ContactSubmission{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, APIResponse{Success: true, Message: "message sent", Data: map[string]string{"id": msg.ID}})
}

func (h *HTTPHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	inbox, err := h.contactService.List(r.Context(), ViewerFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "ok", Data: newInboxResponse(inbox)})
}

func (h *HTTPHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	thread, err := h.contactService.Thread(r.Context(), ViewerFromContext(r.Context()), r.PathValue("id"))
	h.writeThread(w, thread, err)
}

func (h *HTTPHandler) ReplyContact(w http.ResponseWriter, r *http.Request) {
	var req ReplyHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	thread, err := h.contactService.Reply(r.Context(), ViewerFromContext(r.Context()), r.PathValue("id"), req.RequestID, req.Text)
	h.writeThread(w, thread, err)
}

func (h *HTTPHandler) MarkContactRead(w http.ResponseWriter, r *http.Request) {
	thread, err := h.contactService.MarkRead(r.Context(), ViewerFromContext(r.Context()), r.PathValue("id"))
	h.writeThread(w, thread, err)
}

func (h *HTTPHandler) MarkEntryRead(w http.ResponseWriter, r *http.Request) {
	thread, err := h.contactService.MarkEntryRead(r.Context(), ViewerFromContext(r.Context()), r.PathValue("id"), r.PathValue("entryID"))
	h.writeThread(w, thread, err)
}

func (h *HTTPHandler) CloseContact(w http.ResponseWriter, r *http.Request) {
	thread, err := h.contactService.Close(r.Context(), ViewerFromContext(r.Context()), r.PathValue("id"))
	h.writeThread(w, thread, err)
}

func (h *HTTPHandler) UpdateContactStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	thread, err := h.contactService.UpdateStatus(r.Context(), ViewerFromContext(r.Context()), r.PathValue("id"), req.Status)
	h.writeThread(w, thread, err)
}

func (h *HTTPHandler) writeThread(w http.ResponseWriter, thread service.ThreadView, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Message: "ok", Data: newThreadResponse(thread)})
}

// writeError maps service and port errors onto HTTP statuses.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	var notAllowed *service.ReplyNotAllowedError
	switch {
	case errors.As(err, &notAllowed):
		status = http.StatusConflict
		message = notAllowed.Reason
	case errors.Is(err, service.ErrDuplicateRequest):
		status = http.StatusConflict
		message = "duplicate request"
	case errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrNothingAvailable):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, service.ErrItemUnavailable):
		status = http.StatusGone
		message = "sold out"
	case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrEmptyReply),
		errors.Is(err, service.ErrInvalidStatus), errors.Is(err, service.ErrInvalidContact):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, service.ErrMessageClosed):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
		message = "forbidden"
	case errors.Is(err, service.ErrMessageNotFound), errors.Is(err, service.ErrEntryNotFound),
		errors.Is(err, port.ErrNotFound):
		status = http.StatusNotFound
		message = "not found"
	default:
		h.logger.Error("request failed", zap.Error(err))
	}

	writeJSON(w, status, APIResponse{Success: false, Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, APIResponse{
			Success: false,
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Response shapes

type cartItemResponse struct {
	ID           string `json:"id"`
	Quantity     int    `json:"quantity"`
	CurrentPrice string `json:"current_price"`
	IsAvailable  bool   `json:"is_available"`
	StillExists  bool   `json:"still_exists"`
	LineTotal    string `json:"line_total"`
}

type cartResponse struct {
	Items               []cartItemResponse `json:"items"`
	Available           []cartItemResponse `json:"available"`
	Unavailable         []cartItemResponse `json:"unavailable"`
	TotalItemsAll       int                `json:"total_items_all"`
	TotalPriceAll       string             `json:"total_price_all"`
	TotalItemsAvailable int                `json:"total_items_available"`
	TotalPriceAvailable string             `json:"total_price_available"`
	HasUnavailableItems bool               `json:"has_unavailable_items"`
}

func newCartItems(items []domain.EnrichedCartItem) []cartItemResponse {
	out := make([]cartItemResponse, len(items))
	for i, item := range items {
		out[i] = cartItemResponse{
			ID:           item.ID,
			Quantity:     item.Quantity,
			CurrentPrice: item.CurrentPrice.StringFixed(2),
			IsAvailable:  item.IsAvailable,
			StillExists:  item.StillExists,
			LineTotal:    item.LineTotal.StringFixed(2),
		}
	}
	return out
}

func newCartResponse(view service.CartView) cartResponse {
	return cartResponse{
		Items:               newCartItems(view.Items),
		Available:           newCartItems(view.Partition.Available),
		Unavailable:         newCartItems(view.Partition.Unavailable),
		TotalItemsAll:       view.Totals.TotalItemsAll,
		TotalPriceAll:       view.Totals.TotalPriceAll.StringFixed(2),
		TotalItemsAvailable: view.Totals.TotalItemsAvailable,
		TotalPriceAvailable: view.Totals.TotalPriceAvailable.StringFixed(2),
		HasUnavailableItems: view.HasUnavailable,
	}
}

type orderResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Items     int       `json:"items"`
	Total     string    `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

func newOrderResponse(order domain.Order) orderResponse {
	return orderResponse{
		ID:        order.ID,
		Status:    string(order.Status),
		Items:     order.ItemCount(),
		Total:     order.Total.StringFixed(2),
		CreatedAt: order.CreatedAt,
	}
}

type threadResponse struct {
	Message       domain.ContactMessage    `json:"message"`
	DisplayStatus domain.DisplayStatus     `json:"display_status"`
	Eligibility   domain.ReplyEligibility  `json:"eligibility"`
	Unread        []domain.DiscussionEntry `json:"unread"`
}

func newThreadResponse(thread service.ThreadView) threadResponse {
	return threadResponse{
		Message:       thread.Message,
		DisplayStatus: thread.DisplayStatus,
		Eligibility:   thread.Eligibility,
		Unread:        thread.Unread,
	}
}

type inboxResponse struct {
	Threads          []threadResponse    `json:"threads"`
	Stats            domain.ContactStats `json:"stats"`
	NewMessagesCount int                 `json:"new_messages_count"`
}

func newInboxResponse(inbox service.Inbox) inboxResponse {
	threads := make([]threadResponse, len(inbox.Threads))
	for i, thread := range inbox.Threads {
		threads[i] = newThreadResponse(thread)
	}
	return inboxResponse{Threads: threads, Stats: inbox.Stats, NewMessagesCount: inbox.NewMessagesCount}
}
