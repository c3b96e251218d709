package domain

import "github.com/shopspring/decimal"

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCanceled  OrderStatus = "CANCELED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderShipped, OrderDelivered, OrderCanceled:
		return true
	}
	return false
}

type OrderSummary struct {
	ID          string          `db:"id" json:"id"`
	OrderNumber string          `db:"order_number" json:"orderNumber"`
	UserID      string          `db:"user_id" json:"userId"`
	UserName    string          `db:"user_name" json:"userName"`
	UserEmail   string          `db:"user_email" json:"userEmail"`
	Total       decimal.Decimal `db:"total" json:"total"`
	Status      OrderStatus     `db:"status" json:"status"`
	CreatedAt   string          `db:"created_at" json:"createdAt"`
}
