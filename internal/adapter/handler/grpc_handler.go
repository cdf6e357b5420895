package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/rl1809/showroom/internal/core/domain"
	"github.com/rl1809/showroom/internal/core/service"
)

const errorDomain = "showroom"

type GRPCHandler struct {
	checkout        *service.CheckoutService
	carts           *service.CartService
	logger          *zap.Logger
	checkoutTimeout time.Duration
}

var _ CartServiceServer = (*GRPCHandler)(nil)

func NewGRPCHandler(checkout *service.CheckoutService, carts *service.CartService, logger *zap.Logger, checkoutTimeout time.Duration) *GRPCHandler {
	return &GRPCHandler{checkout: checkout, carts: carts, logger: logger, checkoutTimeout: checkoutTimeout}
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "user id must be positive")
	}
	if h.checkoutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.checkoutTimeout)
		defer cancel()
	}

	purchases, err := h.checkout.Checkout(ctx, req.GetValue())
	if err != nil {
		return nil, h.mapError(err)
	}

	out, err := structpb.NewStruct(map[string]any{"purchases": purchasesToList(purchases)})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "user id must be positive")
	}
	cart, err := h.carts.GetCart(ctx, req.GetValue())
	if err != nil {
		return nil, h.mapError(err)
	}

	items := make([]any, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, map[string]any{
			"vehicleId": it.VehicleID,
			"name":      it.Name,
			"quantity":  it.Quantity,
			"unitPrice": it.UnitPrice.String(),
			"lineTotal": it.LineTotal.String(),
		})
	}
	out, err := structpb.NewStruct(map[string]any{
		"cartId": cart.CartID,
		"items":  items,
		"total":  cart.Total.String(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func purchasesToList(purchases []domain.PurchaseRecord) []any {
	list := make([]any, 0, len(purchases))
	for _, p := range purchases {
		list = append(list, map[string]any{
			"id":                  p.ID,
			"vehicleId":           p.VehicleID,
			"quantity":            p.Quantity,
			"unitPriceAtPurchase": p.UnitPriceAtPurchase.String(),
			"timestamp":           p.PurchasedAt.Format(time.RFC3339Nano),
		})
	}
	return list
}

func (h *GRPCHandler) mapError(err error) error {
	kind := domain.KindOf(err)
	info := &errdetails.ErrorInfo{Reason: kind, Domain: errorDomain, Metadata: map[string]string{}}

	var stockErr *domain.InsufficientStockError
	var notFound *domain.NotFoundError
	var cleanup *domain.PostCommitCleanupError
	switch {
	case errors.As(err, &cleanup):
		ids := make([]string, 0, len(cleanup.Purchases))
		for _, p := range cleanup.Purchases {
			ids = append(ids, strconv.FormatInt(p.ID, 10))
		}
		info.Metadata["userId"] = strconv.FormatInt(cleanup.UserID, 10)
		info.Metadata["purchaseIds"] = strings.Join(ids, ",")
	case errors.As(err, &stockErr):
		info.Metadata["vehicleId"] = strconv.FormatInt(stockErr.VehicleID, 10)
		info.Metadata["requested"] = strconv.Itoa(stockErr.Requested)
		info.Metadata["available"] = strconv.Itoa(stockErr.Available)
	case errors.As(err, &notFound):
		info.Metadata["entity"] = notFound.Entity
		info.Metadata["id"] = strconv.FormatInt(notFound.ID, 10)
	}

	code := codeFor(kind)
	msg := err.Error()
	if code == codes.Internal || code == codes.Unavailable {
		h.logger.Error("rpc failed", zap.String("kind", kind), zap.Error(err))
		if kind == domain.KindInternal {
			msg = "internal error"
		}
	}

	st, detailErr := status.New(code, msg).WithDetails(info)
	if detailErr != nil {
		return status.Error(code, msg)
	}
	return st.Err()
}

func codeFor(kind string) codes.Code {
	switch kind {
	case domain.KindInvalidArgument:
		return codes.InvalidArgument
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindEmptyCart, domain.KindInsufficientStock, domain.KindCategoryNotEmpty:
		return codes.FailedPrecondition
	case domain.KindCheckoutInProgress:
		return codes.Aborted
	case domain.KindAlreadyExists:
		return codes.AlreadyExists
	case domain.KindForbidden:
		return codes.PermissionDenied
	case domain.KindStoreUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
