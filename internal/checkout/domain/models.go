// Package domain defines the checkout order contract.
package domain

import "context"

// CreateOrderRequest starts a hosted-checkout purchase for a plan.
type CreateOrderRequest struct {
	UserID      string  `json:"user_id" binding:"required"`
	PlanID      string  `json:"plan_id" binding:"required"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
}

// CreateOrderResponse hands the caller the redirect target. Status is always
// pending; the webhook pipeline moves the order forward.
type CreateOrderResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	PreferenceID string `json:"preference_id"`
	InitPoint    string `json:"init_point"`
}

type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error)
}
