package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/polischuks/checkbox/internal/middleware"
	"github.com/polischuks/checkbox/internal/service"
)

const dateLayout = "2006-01-02"

// timeLayouts are tried in order for date_from and date_to. Values without
// an offset are read as UTC.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", dateLayout}

// CreateReceipt records a sale for the authenticated user.
func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	var body createReceiptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "Invalid JSON body", h.logger)
		return
	}
	req, err := body.toServiceRequest()
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error(), h.logger)
		return
	}
	if body.UserID != nil && *body.UserID != user.ID {
		h.logger.Warn("Ignoring user_id from request body", "user_id", user.ID, "body_user_id", *body.UserID)
	}

	receipt, err := h.receipts.CreateReceipt(r.Context(), user, req)
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}

	respondWithJSON(w, http.StatusOK, newCreatedReceiptResponse(receipt), h.logger)
}

func (b createReceiptRequest) toServiceRequest() (service.CreateReceiptRequest, error) {
	req := service.CreateReceiptRequest{
		Items:       make([]service.LineRequest, len(b.SaleItems)),
		PaymentType: b.PaymentType,
	}
	if b.PaymentAmount == nil {
		return req, fmt.Errorf("payment_amount is required")
	}
	req.PaymentAmount = *b.PaymentAmount

	for i, item := range b.SaleItems {
		if item.ProductID == nil || item.Quantity == nil {
			return req, fmt.Errorf("sale_items[%d]: product_id and quantity are required", i)
		}
		req.Items[i] = service.LineRequest{ProductID: *item.ProductID, Quantity: *item.Quantity}
	}
	return req, nil
}

// ListReceipts returns the caller's receipts, filtered and paginated by query parameters.
func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	req, err := parseListQuery(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error(), h.logger)
		return
	}

	receipts, err := h.receipts.ListReceipts(r.Context(), user, req)
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}

	resp := make([]receiptResponse, len(receipts))
	for i, receipt := range receipts {
		resp[i] = newReceiptResponse(receipt)
	}
	respondWithJSON(w, http.StatusOK, resp, h.logger)
}

func parseListQuery(q url.Values) (service.ListReceiptsRequest, error) {
	var req service.ListReceiptsRequest

	if v := q.Get("date_from"); v != "" {
		t, _, err := parseTime(v)
		if err != nil {
			return req, fmt.Errorf("date_from: %w", err)
		}
		req.DateFrom = &t
	}
	if v := q.Get("date_to"); v != "" {
		t, dateOnly, err := parseTime(v)
		if err != nil {
			return req, fmt.Errorf("date_to: %w", err)
		}
		// A bare date covers the whole day.
		if dateOnly {
			t = t.Add(24*time.Hour - time.Second)
		}
		req.DateTo = &t
	}
	if v := q.Get("min_total"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return req, fmt.Errorf("min_total: not a number")
		}
		req.MinTotal = &d
	}
	req.PaymentType = q.Get("payment_type")

	var err error
	if req.Skip, err = intParam(q, "skip", 0); err != nil {
		return req, err
	}
	if req.Limit, err = intParam(q, "limit", service.DefaultPageSize); err != nil {
		return req, err
	}
	if req.Limit == 0 {
		return req, fmt.Errorf("limit must be between 1 and %d", service.MaxPageSize)
	}
	return req, nil
}

func parseTime(v string) (t time.Time, dateOnly bool, err error) {
	for _, layout := range timeLayouts {
		if t, err = time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, layout == dateLayout, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid datetime %q", v)
}

func intParam(q url.Values, name string, def int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: not an integer", name)
	}
	return n, nil
}

func receiptID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid receipt id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// GetReceipt returns one of the caller's receipts.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := receiptID(r)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error(), h.logger)
		return
	}

	receipt, err := h.receipts.GetReceiptForUser(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, newReceiptResponse(receipt), h.logger)
}

// GetPublicReceipt returns any receipt without authentication.
func (h *Handler) GetPublicReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := receiptID(r)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error(), h.logger)
		return
	}

	receipt, err := h.receipts.GetReceipt(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}
	respondWithJSON(w, http.StatusOK, newReceiptResponse(receipt), h.logger)
}

// GetReceiptText renders any receipt as plain text.
func (h *Handler) GetReceiptText(w http.ResponseWriter, r *http.Request) {
	id, err := receiptID(r)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error(), h.logger)
		return
	}

	text, err := h.receipts.ReceiptText(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		h.logger.Error("failed to write HTTP response", "error", err)
	}
}
