package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/urbankart/storefront-backend/api/middleware"
	"github.com/urbankart/storefront-backend/api/responses"
	internalorders "github.com/urbankart/storefront-backend/internal/orders"
	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/enums"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/logger"
	"github.com/urbankart/storefront-backend/pkg/pagination"
)

type orderService interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error)
	GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListAll(ctx context.Context, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID) (*models.Order, error)
	RequestReturn(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID) (*models.Order, error)
	Transition(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID, to enums.OrderStatus) (*models.Order, error)
}

// OrdersList pages the caller's own orders, newest first.
func OrdersList(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := orderFiltersFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForUser(r.Context(), userID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// OrderDetail returns one of the caller's orders.
func OrderDetail(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetForUser(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// OrderCancel cancels one of the caller's orders when the lifecycle allows it.
func OrderCancel(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := orderActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// OrderReturnRequest opens a return for a delivered order inside the window.
func OrderReturnRequest(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := orderActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RequestReturn(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func orderActor(r *http.Request) (internalorders.Actor, error) {
	userID, err := actorUserID(r)
	if err != nil {
		return internalorders.Actor{}, err
	}
	role := enums.UserRole(middleware.RoleFromContext(r.Context()))
	if !role.IsValid() {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}
	return internalorders.Actor{UserID: userID, Role: role}, nil
}

func orderFiltersFrom(r *http.Request) (internalorders.ListFilters, error) {
	var filters internalorders.ListFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.OrderStatus(raw)
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
				WithDetails(map[string]any{"status": raw})
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status := enums.PaymentStatus(raw)
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status").
				WithDetails(map[string]any{"payment_status": raw})
		}
		filters.PaymentStatus = &status
	}

	return filters, nil
}
