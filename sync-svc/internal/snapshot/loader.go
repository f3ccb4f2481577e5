package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"restaurant-sync/sync-svc/internal/domain"

	"github.com/google/uuid"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	BaseURL      string
	RestaurantID string
	Limit        int
}

// Loader issues the REST reads and mutating calls the engine depends on and
// normalizes responses into domain entities. It never touches the store.
type Loader struct {
	config Config
	client HTTPClient
}

type OrderPage struct {
	Orders     []domain.Order
	NextCursor string
}

type TablePage struct {
	Tables     []domain.Table
	NextCursor string
}

type LineRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

func NewLoader(config Config, client HTTPClient) *Loader {
	if config.Limit <= 0 {
		config.Limit = 50
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Loader{
		config: config,
		client: client,
	}
}

func (l *Loader) KitchenQueue(ctx context.Context, status domain.OrderStatus, cursor string) (OrderPage, error) {
	query := l.pageQuery(string(status), cursor)
	return l.orderPage(ctx, l.restaurantPath("kitchen", "orders"), query)
}

func (l *Loader) TableOrders(ctx context.Context, tableID, cursor string) (OrderPage, error) {
	query := l.pageQuery("ALL", cursor)
	return l.orderPage(ctx, l.restaurantPath("tables", tableID, "orders"), query)
}

func (l *Loader) TableRegistry(ctx context.Context, filter domain.RegistryFilter, cursor string) (TablePage, error) {
	var payload struct {
		Tables     []json.RawMessage `json:"tables"`
		NextCursor *string           `json:"nextCursor"`
	}
	query := l.pageQuery(string(filter), cursor)
	if err := l.do(ctx, http.MethodGet, l.restaurantPath("tables"), query, nil, &payload); err != nil {
		return TablePage{}, err
	}

	page := TablePage{Tables: make([]domain.Table, 0, len(payload.Tables))}
	for _, row := range payload.Tables {
		if f, ok := domain.DecodeFields(row); ok {
			page.Tables = append(page.Tables, domain.TableFromFields(f))
		}
	}
	if payload.NextCursor != nil {
		page.NextCursor = *payload.NextCursor
	}
	return page, nil
}

func (l *Loader) TableSummary(ctx context.Context, tableID string) (domain.Table, error) {
	var payload json.RawMessage
	if err := l.do(ctx, http.MethodGet, l.restaurantPath("tables", tableID, "summary"), nil, nil, &payload); err != nil {
		return domain.Table{}, err
	}
	f, _ := domain.DecodeFields(payload)
	table := domain.TableFromFields(f)
	if table.TableID == "" {
		table.TableID = tableID
	}
	return table, nil
}

func (l *Loader) Order(ctx context.Context, orderID string) (domain.Order, error) {
	return l.orderCall(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(orderID))
}

// PlaceOrder returns the created order as echoed by the API; at minimum its
// OrderID is set.
func (l *Loader) PlaceOrder(ctx context.Context, tableID string, lines []LineRequest) (domain.Order, error) {
	if len(lines) == 0 {
		return domain.Order{}, ErrEmptyOrder
	}
	body := struct {
		Lines []LineRequest `json:"lines"`
	}{Lines: lines}

	var payload json.RawMessage
	if err := l.do(ctx, http.MethodPost, l.restaurantPath("tables", tableID, "orders"), nil, body, &payload); err != nil {
		return domain.Order{}, err
	}
	f, _ := domain.DecodeFields(payload)
	order := domain.OrderFromFields(f)
	if order.OrderID == "" {
		return domain.Order{}, ErrMissingOrderID
	}
	return order, nil
}

func (l *Loader) CloseTable(ctx context.Context, tableID string) error {
	return l.do(ctx, http.MethodPost, l.restaurantPath("tables", tableID, "close"), nil, nil, nil)
}

func (l *Loader) OpenTable(ctx context.Context, tableID string) error {
	return l.do(ctx, http.MethodPost, l.restaurantPath("tables", tableID, "open"), nil, nil, nil)
}

func (l *Loader) AcceptOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return l.orderCall(ctx, http.MethodPost, "/v1/orders/"+url.PathEscape(orderID)+"/accept")
}

func (l *Loader) MarkOrderReady(ctx context.Context, orderID string) (domain.Order, error) {
	return l.orderCall(ctx, http.MethodPost, "/v1/orders/"+url.PathEscape(orderID)+"/ready")
}

func (l *Loader) orderCall(ctx context.Context, method, path string) (domain.Order, error) {
	var payload json.RawMessage
	if err := l.do(ctx, method, path, nil, nil, &payload); err != nil {
		return domain.Order{}, err
	}
	f, _ := domain.DecodeFields(payload)
	return domain.OrderFromFields(f), nil
}

func (l *Loader) orderPage(ctx context.Context, path string, query url.Values) (OrderPage, error) {
	var payload struct {
		Orders     []json.RawMessage `json:"orders"`
		NextCursor *string           `json:"nextCursor"`
	}
	if err := l.do(ctx, http.MethodGet, path, query, nil, &payload); err != nil {
		return OrderPage{}, err
	}

	page := OrderPage{Orders: make([]domain.Order, 0, len(payload.Orders))}
	for _, row := range payload.Orders {
		if f, ok := domain.DecodeFields(row); ok {
			page.Orders = append(page.Orders, domain.OrderFromFields(f))
		}
	}
	if payload.NextCursor != nil {
		page.NextCursor = *payload.NextCursor
	}
	return page, nil
}

func (l *Loader) pageQuery(status, cursor string) url.Values {
	query := url.Values{}
	query.Set("status", status)
	query.Set("limit", strconv.Itoa(l.config.Limit))
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	return query
}

func (l *Loader) restaurantPath(segments ...string) string {
	var b strings.Builder
	b.WriteString("/v1/restaurants/")
	b.WriteString(url.PathEscape(l.config.RestaurantID))
	for _, segment := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(segment))
	}
	return b.String()
}

// do sends one request and decodes a 2xx JSON body into out when out is not
// nil. Every failure comes back as *SnapshotFetchError.
func (l *Loader) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	target := l.config.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return transportError(err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return transportError(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &SnapshotFetchError{
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &SnapshotFetchError{
			StatusCode: resp.StatusCode,
			Message:    "invalid response body: " + err.Error(),
			Err:        err,
		}
	}
	return nil
}
