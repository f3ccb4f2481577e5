package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"restaurant-sync/sync-svc/internal/domain"
	"restaurant-sync/sync-svc/internal/service"
	"restaurant-sync/sync-svc/internal/snapshot"

	"github.com/gorilla/mux"
)

// ConnectionStatus is implemented by stream.Supervisor.
type ConnectionStatus interface {
	State() domain.ConnState
	Attempts() int
}

type Handler struct {
	Reconciler   service.ReconcilerInterface
	Views        service.ProjectorInterface
	Connection   ConnectionStatus
	QR           service.QRGenerator
	RestaurantID string
	Role         domain.Role
}

func NewHandler(rec service.ReconcilerInterface, views service.ProjectorInterface, conn ConnectionStatus, qr service.QRGenerator, restaurantID string, role domain.Role) *Handler {
	return &Handler{
		Reconciler:   rec,
		Views:        views,
		Connection:   conn,
		QR:           qr,
		RestaurantID: restaurantID,
		Role:         role,
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.healthCheck).Methods("GET")
	r.HandleFunc("/api/connection", h.getConnection).Methods("GET")

	r.HandleFunc("/api/kitchen/orders", h.getKitchenQueue).Methods("GET")
	r.HandleFunc("/api/orders/{id}/accept", h.acceptOrder).Methods("POST")
	r.HandleFunc("/api/orders/{id}/ready", h.markOrderReady).Methods("POST")

	r.HandleFunc("/api/tables", h.getTables).Methods("GET")
	r.HandleFunc("/api/tables/{id}/select", h.selectTable).Methods("POST")
	r.HandleFunc("/api/tables/{id}/orders", h.getTableOrders).Methods("GET")
	r.HandleFunc("/api/tables/{id}/orders", h.placeOrder).Methods("POST")
	r.HandleFunc("/api/tables/{id}/summary", h.getTableSummary).Methods("GET")
	r.HandleFunc("/api/tables/{id}/close", h.closeTable).Methods("POST")
	r.HandleFunc("/api/tables/{id}/open", h.openTable).Methods("POST")
	r.HandleFunc("/api/tables/{id}/qrcode", h.getTableQRCode).Methods("GET")
}

type orderView struct {
	domain.Order
	TotalDisplay string `json:"totalDisplay"`
}

type tableView struct {
	domain.Table
	TotalsDisplay string `json:"totalsDisplay"`
}

func ordersView(orders []domain.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, order := range orders {
		out = append(out, orderView{Order: order, TotalDisplay: order.TotalDisplay()})
	}
	return out
}

func tablesView(tables []domain.Table) []tableView {
	out := make([]tableView, 0, len(tables))
	for _, table := range tables {
		out = append(out, tableView{Table: table, TotalsDisplay: table.Totals.Display()})
	}
	return out
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "sync-svc",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) getConnection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"restaurantId":   h.RestaurantID,
		"role":           h.Role,
		"state":          h.Connection.State().String(),
		"attempts":       h.Connection.Attempts(),
		"droppedFrames":  h.Reconciler.Dropped(),
		"selectedTable":  h.Reconciler.SelectedTable(),
		"registryFilter": h.Reconciler.RegistryFilter(),
	})
}

func (h *Handler) getKitchenQueue(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.OrderPlaced
	}

	nextCursor := ""
	if r.URL.Query().Get("refresh") == "true" || r.URL.Query().Has("cursor") {
		cursor, err := h.Reconciler.LoadKitchenQueue(r.Context(), status, r.URL.Query().Get("cursor"))
		if err != nil {
			writeError(w, err)
			return
		}
		nextCursor = cursor
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"orders":     ordersView(h.Views.KitchenQueue(status)),
		"nextCursor": nextCursor,
	})
}

func (h *Handler) getTables(w http.ResponseWriter, r *http.Request) {
	filter := domain.RegistryFilter(r.URL.Query().Get("status"))
	if filter == "" {
		filter = h.Reconciler.RegistryFilter()
	}
	if filter == "" {
		filter = domain.RegistryAll
	}

	if filter != h.Reconciler.RegistryFilter() {
		if err := h.Reconciler.SetRegistryFilter(r.Context(), filter); err != nil {
			writeError(w, err)
			return
		}
	} else if r.URL.Query().Get("refresh") == "true" {
		if err := h.Reconciler.RefreshRegistry(r.Context()); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": filter,
		"tables": tablesView(h.Views.Registry()),
	})
}

func (h *Handler) selectTable(w http.ResponseWriter, r *http.Request) {
	tableID := mux.Vars(r)["id"]
	if err := h.Reconciler.SelectTable(r.Context(), tableID); err != nil {
		writeError(w, err)
		return
	}
	h.writeTable(w, tableID)
}

func (h *Handler) getTableOrders(w http.ResponseWriter, r *http.Request) {
	tableID := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tableId": tableID,
		"orders":  ordersView(h.Views.TableOrders(tableID)),
	})
}

func (h *Handler) getTableSummary(w http.ResponseWriter, r *http.Request) {
	tableID := mux.Vars(r)["id"]
	if r.URL.Query().Get("refresh") == "true" {
		if err := h.Reconciler.RefreshTableSummary(r.Context(), tableID); err != nil {
			writeError(w, err)
			return
		}
	}
	table, ok := h.Views.Table(tableID)
	if !ok {
		writeErrorMessage(w, http.StatusNotFound, "table not loaded")
		return
	}
	writeJSON(w, http.StatusOK, tableView{Table: table, TotalsDisplay: table.Totals.Display()})
}

type placeOrderRequest struct {
	Lines []snapshot.LineRequest `json:"lines"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Invalid JSON format: "+err.Error())
		return
	}

	order, err := h.Reconciler.PlaceOrder(r.Context(), mux.Vars(r)["id"], req.Lines)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderView{Order: order, TotalDisplay: order.TotalDisplay()})
}

func (h *Handler) closeTable(w http.ResponseWriter, r *http.Request) {
	tableID := mux.Vars(r)["id"]
	if err := h.Reconciler.CloseTable(r.Context(), tableID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) openTable(w http.ResponseWriter, r *http.Request) {
	tableID := mux.Vars(r)["id"]
	if err := h.Reconciler.OpenTable(r.Context(), tableID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) acceptOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Reconciler.AcceptOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView{Order: order, TotalDisplay: order.TotalDisplay()})
}

func (h *Handler) markOrderReady(w http.ResponseWriter, r *http.Request) {
	order, err := h.Reconciler.MarkOrderReady(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView{Order: order, TotalDisplay: order.TotalDisplay()})
}

func (h *Handler) getTableQRCode(w http.ResponseWriter, r *http.Request) {
	qrCode, err := h.QR.Generate(h.RestaurantID, mux.Vars(r)["id"])
	if err != nil {
		writeErrorMessage(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(qrCode)
}

func (h *Handler) writeTable(w http.ResponseWriter, tableID string) {
	response := map[string]interface{}{
		"tableId": tableID,
		"orders":  ordersView(h.Views.TableOrders(tableID)),
	}
	if table, ok := h.Views.Table(tableID); ok {
		response["summary"] = tableView{Table: table, TotalsDisplay: table.Totals.Display()}
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto the backend's error envelope. Upstream
// failures are reported as 502 so callers can tell them from bad input.
func writeError(w http.ResponseWriter, err error) {
	var fetchErr *snapshot.SnapshotFetchError
	switch {
	case errors.As(err, &fetchErr):
		writeErrorMessage(w, http.StatusBadGateway, fetchErr.Error())
	case errors.Is(err, service.ErrInvalidFilter),
		errors.Is(err, service.ErrMissingTableID),
		errors.Is(err, service.ErrMissingOrderID),
		errors.Is(err, snapshot.ErrEmptyOrder):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	default:
		writeErrorMessage(w, http.StatusInternalServerError, err.Error())
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"message": message},
	})
}
