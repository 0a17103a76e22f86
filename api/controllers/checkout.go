package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/urbankart/storefront-backend/api/responses"
	"github.com/urbankart/storefront-backend/api/validators"
	"github.com/urbankart/storefront-backend/internal/checkout"
	"github.com/urbankart/storefront-backend/internal/payments"
	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/enums"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/logger"
)

type orderCreator interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, input checkout.CreateOrderInput) (*models.Order, error)
	Quote(ctx context.Context, userID uuid.UUID, promoCode *string) (checkout.Totals, error)
}

type paymentSettler interface {
	CreateSession(ctx context.Context, userID, orderID uuid.UUID) (*payments.Session, error)
	VerifyPayment(ctx context.Context, userID uuid.UUID, input payments.VerifyInput) (*models.Order, error)
}

type createOrderRequest struct {
	AddressID      uuid.UUID `json:"address_id" validate:"required"`
	PaymentMethod  string    `json:"payment_method" validate:"required"`
	PromoCode      *string   `json:"promo_code,omitempty"`
	IdempotencyKey *string   `json:"idempotency_key,omitempty"`
}

type createOrderResponse struct {
	OrderID         uuid.UUID           `json:"orderId"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
	Amount          decimal.Decimal     `json:"amount"`
	Currency        string              `json:"currency"`
	RazorpayOrderID string              `json:"razorpayOrderId,omitempty"`
	RazorpayKeyID   string              `json:"razorpayKeyId,omitempty"`
	AmountPaise     int64               `json:"amountPaise,omitempty"`
}

// CheckoutCreateOrder materializes the caller's cart into an order. Online
// orders additionally open a gateway payment session; COD orders confirm
// immediately.
func CheckoutCreateOrder(svc orderCreator, paymentsSvc paymentSettler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || paymentsSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method := enums.PaymentMethod(strings.ToLower(strings.TrimSpace(body.PaymentMethod)))
		if !method.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
				WithDetails(map[string]any{"payment_method": body.PaymentMethod}))
			return
		}

		order, err := svc.CreateOrder(r.Context(), userID, checkout.CreateOrderInput{
			AddressID:      body.AddressID,
			PaymentMethod:  method,
			PromoCode:      body.PromoCode,
			IdempotencyKey: body.IdempotencyKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := createOrderResponse{
			OrderID:       order.ID,
			Status:        order.Status,
			PaymentMethod: order.PaymentMethod,
			Amount:        order.Total,
			Currency:      string(order.Currency),
		}

		if method == enums.PaymentMethodOnline {
			session, err := paymentsSvc.CreateSession(r.Context(), userID, order.ID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			resp.RazorpayOrderID = session.RazorpayOrderID
			resp.RazorpayKeyID = session.KeyID
			resp.AmountPaise = session.AmountPaise
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

type verifyPaymentRequest struct {
	OrderID           uuid.UUID `json:"order_id" validate:"required"`
	RazorpayOrderID   string    `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string    `json:"razorpay_payment_id" validate:"required"`
	Signature         string    `json:"razorpay_signature" validate:"required"`
}

// CheckoutVerifyPayment settles a pending online order from the signed
// gateway callback the client relays.
func CheckoutVerifyPayment(svc paymentSettler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.VerifyPayment(r.Context(), userID, payments.VerifyInput{
			OrderID:           body.OrderID,
			RazorpayOrderID:   body.RazorpayOrderID,
			RazorpayPaymentID: body.RazorpayPaymentID,
			Signature:         body.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

type promoValidateRequest struct {
	PromoCode string `json:"promo_code" validate:"required"`
}

// PromoValidate prices the caller's live cart with the supplied code. The
// subtotal is always recomputed server-side; the client never sends amounts.
func PromoValidate(svc orderCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body promoValidateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code := strings.TrimSpace(body.PromoCode)
		totals, err := svc.Quote(r.Context(), userID, &code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, totals)
	}
}
