package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/showroom/internal/adapter/storage"
	"github.com/rl1809/showroom/internal/core/domain"
	"github.com/rl1809/showroom/internal/core/service"
)

type testServer struct {
	store  *storage.MemoryAdapter
	mux    *http.ServeMux
	svc     Services
	userID  int64
	adminID int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := storage.NewMemoryAdapter()
	logger := zap.NewNop()
	svc := Services{
		Checkout:   service.NewCheckoutService(store, store, store, store, storage.NewMemoryLocker(), logger),
		Carts:      service.NewCartService(store, store, logger),
		Catalog:    service.NewCatalogService(store, store, store, logger),
		Accounts:   service.NewAccountService(store, store, store, store, logger),
		Statistics: service.NewStatisticsService(store, store, store, store),
	}
	mux := http.NewServeMux()
	NewHTTPHandler(svc, logger, 0).Routes(mux)

	u, err := svc.Accounts.Register(context.Background(), service.Registration{
		FirstName: "Test",
		LastName:  "Buyer",
		Email:     "buyer@example.com",
	})
	require.NoError(t, err)
	admin, err := svc.Accounts.Register(context.Background(), service.Registration{
		FirstName: "Shop",
		LastName:  "Admin",
		Email:     "admin@example.com",
		Role:      domain.RoleAdmin,
	})
	require.NoError(t, err)

	for _, v := range []domain.Vehicle{
		{ID: 7, Name: "Roadster", Model: "R1", ImageURL: "roadster.png", UnitPrice: decimal.NewFromInt(100), StockQuantity: 5},
		{ID: 8, Name: "Wagon", UnitPrice: decimal.NewFromInt(40), StockQuantity: 1},
	} {
		_, err := store.CreateVehicle(context.Background(), v)
		require.NoError(t, err)
	}
	return &testServer{store: store, mux: mux, svc: svc, userID: u.ID, adminID: admin.ID}
}

func (s *testServer) do(t *testing.T, method, path string, body any, userID int64) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != 0 {
		req.Header.Set(UserIDHeader, strconv.FormatInt(userID, 10))
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func errorKind(resp map[string]any) string {
	e, _ := resp["error"].(map[string]any)
	k, _ := e["kind"].(string)
	return k
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.do(t, http.MethodGet, "/health", nil, 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestCheckoutEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/api/cart/items", AddItemRequest{VehicleID: 7, Quantity: 2}, s.userID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := s.do(t, http.MethodPost, "/api/cart/checkout", nil, s.userID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	data := body["data"].(map[string]any)
	purchases := data["purchases"].([]any)
	require.Len(t, purchases, 1)
	p := purchases[0].(map[string]any)
	assert.EqualValues(t, 7, p["vehicleId"])
	assert.EqualValues(t, 2, p["quantity"])
	assert.Equal(t, "100", p["unitPriceAtPurchase"])

	v, err := s.store.GetVehicle(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 3, v.StockQuantity)

	rec, body = s.do(t, http.MethodPost, "/api/cart/checkout", nil, s.userID)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, domain.KindEmptyCart, errorKind(body))

	rec, body = s.do(t, http.MethodGet, "/api/purchases", nil, s.userID)
	require.Equal(t, http.StatusOK, rec.Code)
	history := body["data"].([]any)
	require.Len(t, history, 1)
	h := history[0].(map[string]any)
	assert.Equal(t, "Roadster", h["vehicleName"])
	assert.Equal(t, "R1", h["vehicleModel"])
	assert.Equal(t, "roadster.png", h["vehicleImageUrl"])
}

func TestCheckoutEndpoint_InsufficientStock(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.AddLine(context.Background(), s.userID, 8, 3))

	rec, body := s.do(t, http.MethodPost, "/api/cart/checkout", nil, s.userID)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.KindInsufficientStock, errorKind(body))

	detail := body["error"].(map[string]any)["detail"].(map[string]any)
	assert.EqualValues(t, 8, detail["vehicleId"])
	assert.EqualValues(t, 3, detail["requested"])
	assert.EqualValues(t, 1, detail["available"])
}

func TestRequireUser(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/api/cart", nil, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set(UserIDHeader, "abc")
	r := httptest.NewRecorder()
	s.mux.ServeHTTP(r, req)
	assert.Equal(t, http.StatusBadRequest, r.Code)
}

func TestCartEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/api/cart/items", AddItemRequest{VehicleID: 7, Quantity: 2}, s.userID)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/api/cart/items", AddItemRequest{VehicleID: 7, Quantity: 3}, s.userID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := s.do(t, http.MethodGet, "/api/cart", nil, s.userID)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := body["data"].(map[string]any)
	assert.Equal(t, "500", cart["total"])
	items := cart["items"].([]any)
	require.Len(t, items, 1)
	assert.EqualValues(t, 5, items[0].(map[string]any)["quantity"])

	rec, body = s.do(t, http.MethodPost, "/api/cart/items", AddItemRequest{VehicleID: 7, Quantity: 1}, s.userID)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.KindInsufficientStock, errorKind(body))

	rec, _ = s.do(t, http.MethodPut, "/api/cart/items/7", SetQuantityRequest{Quantity: 1}, s.userID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/cart/items/7", nil, s.userID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = s.do(t, http.MethodDelete, "/api/cart/items/7", nil, s.userID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, domain.KindNotFound, errorKind(body))

	rec, _ = s.do(t, http.MethodPut, "/api/cart/items/x", SetQuantityRequest{Quantity: 1}, s.userID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/categories", CreateCategoryRequest{Name: "Sports"}, s.userID)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, domain.KindForbidden, errorKind(body))

	rec, body = s.do(t, http.MethodPost, "/api/categories", CreateCategoryRequest{Name: "Sports"}, s.adminID)
	require.Equal(t, http.StatusCreated, rec.Code)
	categoryID := int64(body["data"].(map[string]any)["id"].(float64))

	rec, body = s.do(t, http.MethodPost, "/api/vehicles", CreateVehicleRequest{
		CategoryID:    categoryID,
		Name:          "GT",
		UnitPrice:     decimal.RequireFromString("99999.95"),
		StockQuantity: 2,
	}, s.adminID)
	require.Equal(t, http.StatusCreated, rec.Code)
	vehicleID := int64(body["data"].(map[string]any)["id"].(float64))

	rec, body = s.do(t, http.MethodGet, "/api/vehicles?categoryId="+strconv.FormatInt(categoryID, 10), nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)

	rec, _ = s.do(t, http.MethodPut, "/api/vehicles/"+strconv.FormatInt(vehicleID, 10)+"/stock", SetQuantityRequest{Quantity: 9}, s.adminID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/vehicles/"+strconv.FormatInt(vehicleID, 10), nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 9, body["data"].(map[string]any)["stockQuantity"])

	rec, _ = s.do(t, http.MethodPut, "/api/vehicles/"+strconv.FormatInt(vehicleID, 10)+"/stock", SetQuantityRequest{Quantity: 0}, s.userID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = s.do(t, http.MethodDelete, "/api/categories/"+strconv.FormatInt(categoryID, 10), nil, s.adminID)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.KindCategoryNotEmpty, errorKind(body))

	rec, _ = s.do(t, http.MethodDelete, "/api/categories/"+strconv.FormatInt(categoryID, 10)+"?cascade=true", nil, s.adminID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/vehicles/"+strconv.FormatInt(vehicleID, 10), nil, 0)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTopVehiclesAndStatistics(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.AddLine(context.Background(), s.userID, 7, 2))
	require.NoError(t, s.store.AddLine(context.Background(), s.userID, 8, 1))
	rec, _ := s.do(t, http.MethodPost, "/api/cart/checkout", nil, s.userID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := s.do(t, http.MethodGet, "/api/vehicles/top", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	top := body["data"].([]any)
	require.Len(t, top, 2)
	assert.EqualValues(t, 7, top[0].(map[string]any)["vehicleId"])

	rec, body = s.do(t, http.MethodGet, "/api/vehicles/top?limit=1", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)

	for _, bad := range []string{"abc", "0", "-3"} {
		rec, body = s.do(t, http.MethodGet, "/api/vehicles/top?limit="+bad, nil, 0)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
		assert.Equal(t, domain.KindInvalidArgument, errorKind(body))
	}

	rec, _ = s.do(t, http.MethodGet, "/api/statistics", nil, s.userID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/statistics", nil, s.adminID)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := body["data"].(map[string]any)
	assert.EqualValues(t, 2, stats["userCount"])
	assert.EqualValues(t, 2, stats["vehicleCount"])
	all := stats["purchasesAllTime"].(map[string]any)
	assert.EqualValues(t, 3, all["quantity"])
	assert.Equal(t, "240", all["revenue"])

	rec, body = s.do(t, http.MethodGet, "/api/statistics?month=13", nil, s.adminID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.KindInvalidArgument, errorKind(body))
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/users", RegisterRequest{
		FirstName: "New",
		LastName:  "Person",
		Email:     "new@example.com",
	}, 0)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "standard", body["data"].(map[string]any)["role"])

	rec, body = s.do(t, http.MethodPost, "/api/users", RegisterRequest{
		FirstName: "Dup",
		LastName:  "Person",
		Email:     "new@example.com",
	}, 0)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.KindAlreadyExists, errorKind(body))

	rec, body = s.do(t, http.MethodGet, "/api/users/me", nil, s.userID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "buyer@example.com", body["data"].(map[string]any)["email"])

	// only an admin may create another admin
	promote := RegisterRequest{FirstName: "Eve", LastName: "Admin", Email: "eve@example.com", Role: "admin"}
	rec, body = s.do(t, http.MethodPost, "/api/users", promote, s.userID)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, domain.KindForbidden, errorKind(body))
	rec, _ = s.do(t, http.MethodPost, "/api/users", promote, s.adminID)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUpdateCurrentUser(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPatch, "/api/users/me", map[string]string{"phoneNumber": "555-0101"}, s.userID)
	require.Equal(t, http.StatusOK, rec.Code)
	user := body["data"].(map[string]any)
	assert.Equal(t, "555-0101", user["phoneNumber"])
	assert.Equal(t, "Test", user["firstName"])

	rec, body = s.do(t, http.MethodPatch, "/api/users/me", map[string]string{"email": "admin@example.com"}, s.userID)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.KindAlreadyExists, errorKind(body))

	rec, _ = s.do(t, http.MethodPatch, "/api/users/me", map[string]string{"firstName": " "}, s.userID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminUserEndpoints(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.AddLine(context.Background(), s.userID, 7, 1))
	rec, _ := s.do(t, http.MethodPost, "/api/cart/checkout", nil, s.userID)
	require.Equal(t, http.StatusOK, rec.Code)
	buyer := strconv.FormatInt(s.userID, 10)

	for _, path := range []string{"/api/users", "/api/users/" + buyer + "/purchases"} {
		rec, body := s.do(t, http.MethodGet, path, nil, s.userID)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Equal(t, domain.KindForbidden, errorKind(body))
	}
	rec, _ = s.do(t, http.MethodGet, "/api/users", nil, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := s.do(t, http.MethodGet, "/api/users", nil, s.adminID)
	require.Equal(t, http.StatusOK, rec.Code)
	users := body["data"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, "buyer@example.com", users[0].(map[string]any)["email"])

	rec, body = s.do(t, http.MethodGet, "/api/users/"+buyer+"/purchases", nil, s.adminID)
	require.Equal(t, http.StatusOK, rec.Code)
	purchases := body["data"].([]any)
	require.Len(t, purchases, 1)
	assert.Equal(t, "Roadster", purchases[0].(map[string]any)["vehicleName"])

	rec, _ = s.do(t, http.MethodGet, "/api/users/999/purchases", nil, s.adminID)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/users/"+buyer, nil, s.userID)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, "/api/users/"+strconv.FormatInt(s.adminID, 10), nil, s.adminID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, "/api/users/"+buyer, nil, s.adminID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/cart", nil, s.userID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		domain.KindInvalidArgument:         http.StatusBadRequest,
		domain.KindNotFound:                http.StatusNotFound,
		domain.KindForbidden:               http.StatusForbidden,
		domain.KindEmptyCart:               http.StatusUnprocessableEntity,
		domain.KindInsufficientStock:       http.StatusConflict,
		domain.KindCheckoutInProgress:      http.StatusConflict,
		domain.KindStoreUnavailable:        http.StatusServiceUnavailable,
		domain.KindPostCommitCleanupFailed: http.StatusInternalServerError,
		domain.KindInternal:                http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, statusFor(kind), kind)
	}
}
