package handler

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polischuks/checkbox/internal/models"
)

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type saleItemRequest struct {
	ProductID *int64           `json:"product_id"`
	Quantity  *decimal.Decimal `json:"quantity"`
}

// createReceiptRequest accepts numbers or numeric strings for money and
// quantities. user_id is accepted for compatibility but the owner is always
// the authenticated caller.
type createReceiptRequest struct {
	UserID        *int64            `json:"user_id,omitempty"`
	SaleItems     []saleItemRequest `json:"sale_items"`
	PaymentType   string            `json:"payment_type"`
	PaymentAmount *decimal.Decimal  `json:"payment_amount"`
}

type saleItemResponse struct {
	ProductID   int64       `json:"product_id"`
	ProductName string      `json:"product_name"`
	Quantity    json.Number `json:"quantity"`
	UnitPrice   json.Number `json:"unit_price"`
	TotalPrice  json.Number `json:"total_price"`
}

type receiptResponse struct {
	ID            int64              `json:"id"`
	CreatedAt     time.Time          `json:"created_at"`
	UserID        int64              `json:"user_id"`
	PaymentType   string             `json:"payment_type"`
	PaymentAmount json.Number        `json:"payment_amount"`
	Total         json.Number        `json:"total"`
	ChangeGiven   json.Number        `json:"change_given"`
	SaleItems     []saleItemResponse `json:"sale_items"`
}

// lineResponse is the compact item view returned when a receipt is created.
type lineResponse struct {
	ProductName string      `json:"product_name"`
	Quantity    json.Number `json:"quantity"`
	TotalPrice  json.Number `json:"total_price"`
}

type createdReceiptResponse struct {
	receiptResponse
	Items []lineResponse `json:"items"`
}

// number renders a decimal as a JSON number without going through float64.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Username: u.Username}
}

func newReceiptResponse(r *models.Receipt) receiptResponse {
	resp := receiptResponse{
		ID:            r.ID,
		CreatedAt:     r.CreatedAt,
		UserID:        r.UserID,
		PaymentType:   r.PaymentType,
		PaymentAmount: number(r.PaymentAmount),
		Total:         number(r.Total),
		ChangeGiven:   number(r.ChangeGiven),
		SaleItems:     make([]saleItemResponse, len(r.SaleItems)),
	}
	for i, item := range r.SaleItems {
		resp.SaleItems[i] = saleItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    number(item.Quantity),
			UnitPrice:   number(item.UnitPrice),
			TotalPrice:  number(item.TotalPrice),
		}
	}
	return resp
}

func newCreatedReceiptResponse(r *models.Receipt) createdReceiptResponse {
	resp := createdReceiptResponse{
		receiptResponse: newReceiptResponse(r),
		Items:           make([]lineResponse, len(r.SaleItems)),
	}
	for i, item := range r.SaleItems {
		resp.Items[i] = lineResponse{
			ProductName: item.ProductName,
			Quantity:    number(item.Quantity),
			TotalPrice:  number(item.TotalPrice),
		}
	}
	return resp
}
