package domain

type OrderStatus string

const (
	OrderPlaced   OrderStatus = "PLACED"
	OrderAccepted OrderStatus = "ACCEPTED"
	OrderReady    OrderStatus = "READY"
)

// KitchenStatuses lists the statuses the kitchen queue is fetched for.
var KitchenStatuses = []OrderStatus{OrderPlaced, OrderAccepted, OrderReady}

type TableStatus string

const (
	TableOpen   TableStatus = "OPEN"
	TableClosed TableStatus = "CLOSED"
)

type Role string

const (
	RoleKitchen Role = "KITCHEN"
	RoleTablet  Role = "TABLET"
)

func (r Role) Valid() bool {
	return r == RoleKitchen || r == RoleTablet
}

type Money struct {
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

type OrderLine struct {
	LineID   string `json:"lineId"`
	ItemID   string `json:"itemId"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Order is replaced wholesale on every observation carrying the same OrderID.
// CreatedAt is kept as received and only parsed for ordering.
type Order struct {
	OrderID    string      `json:"orderId"`
	TableID    string      `json:"tableId"`
	Status     OrderStatus `json:"status"`
	TotalMoney *Money      `json:"totalMoney,omitempty"`
	CreatedAt  string      `json:"createdAt"`
	Lines      []OrderLine `json:"lines"`
}

type TableCounts struct {
	OrdersTotal int `json:"ordersTotal"`
	Placed      int `json:"placed"`
	Accepted    int `json:"accepted"`
	Ready       int `json:"ready"`
}

// Table aggregates (Totals, Counts) are server-derived and never recomputed
// locally. Empty timestamp strings mean the value is absent.
type Table struct {
	TableID      string      `json:"tableId"`
	RestaurantID string      `json:"restaurantId"`
	Status       TableStatus `json:"status"`
	OpenedAt     string      `json:"openedAt,omitempty"`
	ClosedAt     string      `json:"closedAt,omitempty"`
	LastOrderAt  string      `json:"lastOrderAt,omitempty"`
	Totals       Money       `json:"totals"`
	Counts       TableCounts `json:"counts"`
}

// TablePatch carries the only fields a partial signal may overlay on a
// known table. Nil fields are left untouched.
type TablePatch struct {
	Status      *TableStatus
	ClosedAt    *string
	LastOrderAt *string
}

type RegistryFilter string

const (
	RegistryOpen   RegistryFilter = "OPEN"
	RegistryClosed RegistryFilter = "CLOSED"
	RegistryAll    RegistryFilter = "ALL"
)

func (f RegistryFilter) Valid() bool {
	switch f {
	case RegistryOpen, RegistryClosed, RegistryAll:
		return true
	}
	return false
}

// ConnState is the lifecycle of one live stream session.
type ConnState int

const (
	Connecting ConnState = iota
	Connected
	Disconnected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	}
	return "Unknown"
}
