package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/showroom/internal/core/domain"
	"github.com/rl1809/showroom/internal/core/service"
)

// UserIDHeader carries the caller identity resolved by the upstream gateway.
const UserIDHeader = "X-User-ID"

type HTTPHandler struct {
	checkout        *service.CheckoutService
	carts           *service.CartService
	catalog         *service.CatalogService
	accounts        *service.AccountService
	stats           *service.StatisticsService
	logger          *zap.Logger
	checkoutTimeout time.Duration
}

type Services struct {
	Checkout   *service.CheckoutService
	Carts      *service.CartService
	Catalog    *service.CatalogService
	Accounts   *service.AccountService
	Statistics *service.StatisticsService
}

func NewHTTPHandler(svc Services, logger *zap.Logger, checkoutTimeout time.Duration) *HTTPHandler {
	return &HTTPHandler{
		checkout:        svc.Checkout,
		carts:           svc.Carts,
		catalog:         svc.Catalog,
		accounts:        svc.Accounts,
		stats:           svc.Statistics,
		logger:          logger,
		checkoutTimeout: checkoutTimeout,
	}
}

func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("GET /api/vehicles", h.ListVehicles)
	mux.HandleFunc("GET /api/vehicles/top", h.TopVehicles)
	mux.HandleFunc("GET /api/vehicles/{id}", h.GetVehicle)
	mux.HandleFunc("POST /api/vehicles", h.CreateVehicle)
	mux.HandleFunc("PUT /api/vehicles/{id}/stock", h.SetStock)

	mux.HandleFunc("GET /api/categories", h.ListCategories)
	mux.HandleFunc("POST /api/categories", h.CreateCategory)
	mux.HandleFunc("GET /api/categories/{id}", h.GetCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", h.DeleteCategory)

	mux.HandleFunc("POST /api/users", h.RegisterUser)
	mux.HandleFunc("GET /api/users/me", h.CurrentUser)
	mux.HandleFunc("PATCH /api/users/me", h.UpdateCurrentUser)
	mux.HandleFunc("GET /api/users", h.ListUsers)
	mux.HandleFunc("DELETE /api/users/{id}", h.DeleteUser)
	mux.HandleFunc("GET /api/users/{id}/purchases", h.ListUserPurchases)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddItem)
	mux.HandleFunc("PUT /api/cart/items/{vehicleId}", h.SetItemQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{vehicleId}", h.RemoveItem)
	mux.HandleFunc("POST /api/cart/checkout", h.Checkout)

	mux.HandleFunc("GET /api/purchases", h.ListPurchases)
	mux.HandleFunc("GET /api/statistics", h.Statistics)
}

type Response struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind   string `json:"kind"`
	Detail any    `json:"detail,omitempty"`
}

type PurchaseJSON struct {
	ID                  int64           `json:"id"`
	VehicleID           int64           `json:"vehicleId"`
	VehicleName         string          `json:"vehicleName,omitempty"`
	VehicleModel        string          `json:"vehicleModel,omitempty"`
	VehicleImageURL     string          `json:"vehicleImageUrl,omitempty"`
	Quantity            int             `json:"quantity"`
	UnitPriceAtPurchase decimal.Decimal `json:"unitPriceAtPurchase"`
	Timestamp           time.Time       `json:"timestamp"`
}

type CheckoutJSON struct {
	Purchases []PurchaseJSON `json:"purchases"`
}

type VehicleJSON struct {
	ID            int64           `json:"id"`
	CategoryID    int64           `json:"categoryId,omitempty"`
	Name          string          `json:"name"`
	Model         string          `json:"model"`
	Type          string          `json:"type"`
	Color         string          `json:"color"`
	ImageURL      string          `json:"imageUrl"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	StockQuantity int             `json:"stockQuantity"`
}

type VehicleSalesJSON struct {
	VehicleID     int64  `json:"vehicleId"`
	Name          string `json:"name"`
	Model         string `json:"model"`
	ImageURL      string `json:"imageUrl"`
	TotalQuantity int64  `json:"totalQuantity"`
}

type CartItemJSON struct {
	VehicleID int64           `json:"vehicleId"`
	Name      string          `json:"name"`
	Model     string          `json:"model"`
	ImageURL  string          `json:"imageUrl"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type CartJSON struct {
	CartID int64           `json:"cartId"`
	Items  []CartItemJSON  `json:"items"`
	Total  decimal.Decimal `json:"total"`
}

type CategoryJSON struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ParentName string `json:"parentName,omitempty"`
}

type UserJSON struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Role        string `json:"role"`
}

type SummaryJSON struct {
	Quantity int64           `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type StatisticsJSON struct {
	UserCount        int64       `json:"userCount"`
	VehicleCount     int64       `json:"vehicleCount"`
	CategoryCount    int64       `json:"categoryCount"`
	Year             int         `json:"year"`
	Month            int         `json:"month"`
	PurchasesInMonth SummaryJSON `json:"purchasesInMonth"`
	PurchasesAllTime SummaryJSON `json:"purchasesAllTime"`
}

type AddItemRequest struct {
	VehicleID int64 `json:"vehicleId"`
	Quantity  int   `json:"quantity"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CreateVehicleRequest struct {
	CategoryID    int64           `json:"categoryId"`
	Name          string          `json:"name"`
	Model         string          `json:"model"`
	Type          string          `json:"type"`
	Color         string          `json:"color"`
	ImageURL      string          `json:"imageUrl"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	StockQuantity int             `json:"stockQuantity"`
}

type CreateCategoryRequest struct {
	Name       string `json:"name"`
	ParentName string `json:"parentName"`
}

// UpdateUserRequest leaves absent fields unchanged.
type UpdateUserRequest struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
}

type RegisterRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role"`
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if h.checkoutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.checkoutTimeout)
		defer cancel()
	}

	purchases, err := h.checkout.Checkout(ctx, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "purchase successful",
		Data:    CheckoutJSON{Purchases: toPurchasesJSON(purchases)},
	})
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := CartJSON{CartID: cart.CartID, Items: make([]CartItemJSON, 0, len(cart.Items)), Total: cart.Total}
	for _, it := range cart.Items {
		out.Items = append(out.Items, CartItemJSON{
			VehicleID: it.VehicleID,
			Name:      it.Name,
			Model:     it.Model,
			ImageURL:  it.ImageURL,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: out})
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.carts.AddItem(r.Context(), userID, req.VehicleID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "vehicle added to cart"})
}

func (h *HTTPHandler) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	vehicleID, ok := pathID(w, r, "vehicleId")
	if !ok {
		return
	}
	var req SetQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.carts.SetItemQuantity(r.Context(), userID, vehicleID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "cart updated"})
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	vehicleID, ok := pathID(w, r, "vehicleId")
	if !ok {
		return
	}
	if err := h.carts.RemoveItem(r.Context(), userID, vehicleID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "vehicle removed from cart"})
}

func (h *HTTPHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.writePurchaseHistory(w, r, userID)
}

func (h *HTTPHandler) ListUserPurchases(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.accounts.GetUser(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writePurchaseHistory(w, r, userID)
}

// writePurchaseHistory lists a user's purchases with the vehicle's current
// name, model and image. Vehicles deleted since the purchase leave those empty.
func (h *HTTPHandler) writePurchaseHistory(w http.ResponseWriter, r *http.Request, userID int64) {
	vehicles := make(map[int64]*domain.Vehicle)
	out := []PurchaseJSON{}
	for p, err := range h.accounts.Purchases(r.Context(), userID) {
		if err != nil {
			h.writeError(w, err)
			return
		}
		v, seen := vehicles[p.VehicleID]
		if !seen {
			v, err = h.catalog.GetVehicle(r.Context(), p.VehicleID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				h.writeError(w, err)
				return
			}
			vehicles[p.VehicleID] = v
		}
		pj := toPurchaseJSON(p)
		if v != nil {
			pj.VehicleName, pj.VehicleModel, pj.VehicleImageURL = v.Name, v.Model, v.ImageURL
		}
		out = append(out, pj)
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: out})
}

func (h *HTTPHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	var categoryID int64
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, domain.InvalidArgumentf("invalid categoryId %q", raw))
			return
		}
		categoryID = id
	}
	vehicles, err := h.catalog.ListVehicles(r.Context(), categoryID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]VehicleJSON, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, toVehicleJSON(v))
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: out})
}

func (h *HTTPHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	v, err := h.catalog.GetVehicle(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: toVehicleJSON(*v)})
}

func (h *HTTPHandler) TopVehicles(w http.ResponseWriter, r *http.Request) {
	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			h.writeError(w, domain.InvalidArgumentf("invalid limit %q", raw))
			return
		}
		limit = v
	}
	top, err := h.catalog.TopPurchased(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]VehicleSalesJSON, 0, len(top))
	for _, t := range top {
		out = append(out, VehicleSalesJSON{
			VehicleID:     t.VehicleID,
			Name:          t.Name,
			Model:         t.Model,
			ImageURL:      t.ImageURL,
			TotalQuantity: t.TotalQuantity,
		})
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: out})
}

func (h *HTTPHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	var req CreateVehicleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v, err := h.catalog.CreateVehicle(r.Context(), service.NewVehicle{
		CategoryID:    req.CategoryID,
		Name:          req.Name,
		Model:         req.Model,
		Type:          req.Type,
		Color:         req.Color,
		ImageURL:      req.ImageURL,
		UnitPrice:     req.UnitPrice,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Data: toVehicleJSON(*v)})
}

func (h *HTTPHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req SetQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.catalog.SetStock(r.Context(), id, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "stock updated"})
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]CategoryJSON, 0, len(cs))
	for _, c := range cs {
		out = append(out, CategoryJSON{ID: c.ID, Name: c.Name, ParentName: c.ParentName})
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: out})
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	var req CreateCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.catalog.CreateCategory(r.Context(), req.Name, req.ParentName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    CategoryJSON{ID: c.ID, Name: c.Name, ParentName: c.ParentName},
	})
}

func (h *HTTPHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    CategoryJSON{ID: c.ID, Name: c.Name, ParentName: c.ParentName},
	})
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cascade, _ := strconv.ParseBool(r.URL.Query().Get("cascade"))
	if err := h.catalog.DeleteCategory(r.Context(), id, cascade); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "category deleted"})
}

func (h *HTTPHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if domain.Role(req.Role) == domain.RoleAdmin {
		if _, ok := h.requireAdmin(w, r); !ok {
			return
		}
	}
	u, err := h.accounts.Register(r.Context(), service.Registration{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Role:        domain.Role(req.Role),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Data: toUserJSON(*u)})
}

func (h *HTTPHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	u, err := h.accounts.GetUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: toUserJSON(*u)})
}

func (h *HTTPHandler) UpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := h.accounts.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "user updated", Data: toUserJSON(*u)})
}

func (h *HTTPHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	users, err := h.accounts.ListCustomers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]UserJSON, 0, len(users))
	for _, u := range users {
		out = append(out, toUserJSON(u))
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: out})
}

func (h *HTTPHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.accounts.DeleteUser(r.Context(), admin.ID, id); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "user deleted"})
}

func (h *HTTPHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if raw := r.URL.Query().Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, domain.InvalidArgumentf("invalid year %q", raw))
			return
		}
		year = v
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, domain.InvalidArgumentf("invalid month %q", raw))
			return
		}
		month = v
	}

	stats, err := h.stats.Collect(r.Context(), year, time.Month(month))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: StatisticsJSON{
		UserCount:     stats.UserCount,
		VehicleCount:  stats.VehicleCount,
		CategoryCount: stats.CategoryCount,
		Year:          stats.Year,
		Month:         int(stats.Month),
		PurchasesInMonth: SummaryJSON{
			Quantity: stats.MonthPurchases.Quantity,
			Revenue:  stats.MonthPurchases.Revenue,
		},
		PurchasesAllTime: SummaryJSON{
			Quantity: stats.AllTimePurchases.Quantity,
			Revenue:  stats.AllTimePurchases.Revenue,
		},
	}})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	resp := Response{
		Success: false,
		Message: err.Error(),
		Error:   &ErrorBody{Kind: kind},
	}

	var stockErr *domain.InsufficientStockError
	var notFound *domain.NotFoundError
	var cleanup *domain.PostCommitCleanupError
	switch {
	case errors.As(err, &cleanup):
		resp.Data = CheckoutJSON{Purchases: toPurchasesJSON(cleanup.Purchases)}
		resp.Error.Detail = map[string]int64{"userId": cleanup.UserID}
	case errors.As(err, &stockErr):
		resp.Error.Detail = map[string]int64{
			"vehicleId": stockErr.VehicleID,
			"requested": int64(stockErr.Requested),
			"available": int64(stockErr.Available),
		}
	case errors.As(err, &notFound):
		resp.Error.Detail = map[string]any{"entity": notFound.Entity, "id": notFound.ID}
	}

	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("kind", kind), zap.Error(err))
		if kind == domain.KindInternal {
			resp.Message = "internal error"
		}
	}
	writeJSON(w, status, resp)
}

func statusFor(kind string) int {
	switch kind {
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindEmptyCart:
		return http.StatusUnprocessableEntity
	case domain.KindInsufficientStock, domain.KindCheckoutInProgress,
		domain.KindAlreadyExists, domain.KindCategoryNotEmpty:
		return http.StatusConflict
	case domain.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(UserIDHeader)
	if raw == "" {
		writeJSON(w, http.StatusUnauthorized, Response{Success: false, Message: "user must be logged in"})
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "invalid user id format"})
		return 0, false
	}
	return id, true
}

// requireAdmin resolves the caller and rejects anyone without the admin role.
func (h *HTTPHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}
	u, err := h.accounts.RequireAdmin(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return u, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Message: "invalid " + name,
			Error:   &ErrorBody{Kind: domain.KindInvalidArgument},
		})
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Message: "invalid request body",
			Error:   &ErrorBody{Kind: domain.KindInvalidArgument},
		})
		return false
	}
	return true
}

func toPurchaseJSON(p domain.PurchaseRecord) PurchaseJSON {
	return PurchaseJSON{
		ID:                  p.ID,
		VehicleID:           p.VehicleID,
		Quantity:            p.Quantity,
		UnitPriceAtPurchase: p.UnitPriceAtPurchase,
		Timestamp:           p.PurchasedAt,
	}
}

func toPurchasesJSON(ps []domain.PurchaseRecord) []PurchaseJSON {
	out := make([]PurchaseJSON, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPurchaseJSON(p))
	}
	return out
}

func toVehicleJSON(v domain.Vehicle) VehicleJSON {
	return VehicleJSON{
		ID:            v.ID,
		CategoryID:    v.CategoryID,
		Name:          v.Name,
		Model:         v.Model,
		Type:          v.Type,
		Color:         v.Color,
		ImageURL:      v.ImageURL,
		UnitPrice:     v.UnitPrice,
		StockQuantity: v.StockQuantity,
	}
}

func toUserJSON(u domain.User) UserJSON {
	return UserJSON{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        string(u.Role),
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
