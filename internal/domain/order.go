package domain

import "time"

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses is the fixed enum in cycle order.
var OrderStatuses = []OrderStatus{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Next returns the status that follows s in the admin cycle, wrapping around.
func (s OrderStatus) Next() OrderStatus {
	for i, v := range OrderStatuses {
		if v == s {
			return OrderStatuses[(i+1)%len(OrderStatuses)]
		}
	}
	return StatusPending
}

// CustomerCancellable reports whether the customer-facing view may offer cancel.
func (s OrderStatus) CustomerCancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

const PaymentCompleted = "completed"

type Order struct {
	ID              string      `json:"id" db:"id"`
	OrderID         string      `json:"order_id" db:"order_id"`
	CustomerName    string      `json:"customer_name" db:"customer_name"`
	CustomerEmail   string      `json:"customer_email" db:"customer_email"`
	CustomerPhone   string      `json:"customer_phone" db:"customer_phone"`
	ShippingAddress string      `json:"shipping_address" db:"shipping_address"`
	City            string      `json:"city" db:"city"`
	State           string      `json:"state" db:"state"`
	ZipCode         string      `json:"zip_code" db:"zip_code"`
	Country         string      `json:"country" db:"country"`
	ProductName     string      `json:"product_name" db:"product_name"`
	ProductPrice    int64       `json:"product_price" db:"product_price"`
	Quantity        int         `json:"quantity" db:"quantity"`
	TotalAmount     int64       `json:"total_amount" db:"total_amount"`
	PaymentID       string      `json:"payment_id" db:"payment_id"`
	PaymentStatus   string      `json:"payment_status" db:"payment_status"`
	OrderStatus     OrderStatus `json:"order_status" db:"order_status"`
	TrackingLink    *string     `json:"tracking_link,omitempty" db:"tracking_link"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// Tracking returns the tracking link or "".
func (o Order) Tracking() string {
	if o.TrackingLink == nil {
		return ""
	}
	return *o.TrackingLink
}

// OrderPatch is a field-level update. Nil fields are left untouched.
type OrderPatch struct {
	OrderStatus  *OrderStatus
	TrackingLink *string
}
