package models

import (
	"encoding/json"
	"github.com/shopspring/decimal"
	"time"
)

// OrderStatus is order lifecycle status
type OrderStatus string

// order status
const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
	OrderStatusConfirmed  OrderStatus = "Confirmed"
)

// PaymentStatus is set only for gateways that confirm payment asynchronously.
type PaymentStatus string

// payment status
const (
	PaymentStatusNone     PaymentStatus = ""
	PaymentStatusAwaiting PaymentStatus = "Awaiting"
	PaymentStatusSuccess  PaymentStatus = "Success"
	PaymentStatusFailed   PaymentStatus = "Failed"
)

// Final reports whether payment status can no longer change
func (ps PaymentStatus) Final() bool {
	return ps == PaymentStatusSuccess || ps == PaymentStatusFailed
}

// ProductSnapshot is the product as it was at checkout time
type ProductSnapshot struct {
	Name     string
	Price    decimal.Decimal
	Quantity int
	Bonus    decimal.Decimal
	// Raw keeps the submitted product object as is
	Raw json.RawMessage
}

// CustomerSnapshot is the customer details as they were at checkout time
type CustomerSnapshot struct {
	UserID  string `json:"userId"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phoneNumber,omitempty"`
	Address string `json:"address,omitempty"`
}

// Order is order entity
type Order struct {
	ID             string
	UserID         string
	Product        ProductSnapshot
	UserDetails    CustomerSnapshot
	Status         OrderStatus
	PaymentMethod  string
	PaymentStatus  PaymentStatus
	DeliveryDate   time.Time
	GatewayOrderID string
	// GatewayPayload is provider response or redirect parameters returned at checkout
	GatewayPayload json.RawMessage
	TxnID          string
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NextDeliveryDate returns the start of the day after t
func NextDeliveryDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
