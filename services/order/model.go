package order

import (
	"time"

	"creditshop/services/address"
	"creditshop/services/catalog"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Order is created once by CreateOrder together with its debit. Shipping
// fields are a snapshot and never follow the address book afterwards.
type Order struct {
	ID                   string     `gorm:"column:id;primaryKey" json:"id"`
	Code                 string     `gorm:"column:code;uniqueIndex;not null" json:"code"`
	CustomerID           string     `gorm:"column:customer_id;index;not null" json:"customerId"`
	TotalCredits         int64      `gorm:"column:total_credits;not null" json:"totalCredits"`
	Status               Status     `gorm:"column:status;type:varchar(16);index;not null" json:"status"`
	ShippingName         string     `gorm:"column:shipping_name;not null" json:"shippingName"`
	ShippingAddressLine1 string     `gorm:"column:shipping_address_line1;not null" json:"shippingAddressLine1"`
	ShippingAddressLine2 string     `gorm:"column:shipping_address_line2" json:"shippingAddressLine2,omitempty"`
	ShippingCity         string     `gorm:"column:shipping_city;not null" json:"shippingCity"`
	ShippingState        string     `gorm:"column:shipping_state" json:"shippingState,omitempty"`
	ShippingPostalCode   string     `gorm:"column:shipping_postal_code;not null" json:"shippingPostalCode"`
	ShippingCountry      string     `gorm:"column:shipping_country;not null" json:"shippingCountry"`
	IsGift               bool       `gorm:"column:is_gift;not null" json:"isGift"`
	GiftMessage          *string    `gorm:"column:gift_message" json:"giftMessage,omitempty"`
	TrackingNumber       *string    `gorm:"column:tracking_number" json:"trackingNumber,omitempty"`
	ShippedAt            *time.Time `gorm:"column:shipped_at" json:"shippedAt,omitempty"`
	DeliveredAt          *time.Time `gorm:"column:delivered_at" json:"deliveredAt,omitempty"`
	CreatedAt            time.Time  `gorm:"column:created_at;index" json:"createdAt"`
	UpdatedAt            time.Time  `gorm:"column:updated_at" json:"updatedAt"`

	Items    []OrderItem      `gorm:"foreignKey:OrderID" json:"items"`
	Customer *CustomerSummary `gorm:"-" json:"customer,omitempty"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) applySnapshot(s address.ShippingSnapshot) {
	o.ShippingName = s.Name
	o.ShippingAddressLine1 = s.AddressLine1
	o.ShippingAddressLine2 = s.AddressLine2
	o.ShippingCity = s.City
	o.ShippingState = s.State
	o.ShippingPostalCode = s.PostalCode
	o.ShippingCountry = s.Country
}

// OrderItem freezes the unit price paid. Product is loaded for display only.
type OrderItem struct {
	ID                       string    `gorm:"column:id;primaryKey" json:"id"`
	OrderID                  string    `gorm:"column:order_id;index;not null" json:"orderId"`
	ProductID                string    `gorm:"column:product_id;index;not null" json:"productId"`
	Quantity                 int64     `gorm:"column:quantity;not null" json:"quantity"`
	PriceInCreditsAtPurchase int64     `gorm:"column:price_in_credits_at_purchase;not null" json:"priceInCreditsAtPurchase"`
	CreatedAt                time.Time `gorm:"column:created_at" json:"createdAt"`

	Product *catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string { return "order_items" }

type CustomerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateOrderRequest takes the shipping address either by id from the
// caller's address book or inline. The id wins when both are set.
type CreateOrderRequest struct {
	ProductID         string                    `json:"productId" binding:"required"`
	Quantity          *int64                    `json:"quantity"`
	ShippingAddressID string                    `json:"shippingAddressId"`
	ShippingAddress   *address.ShippingSnapshot `json:"shippingAddress"`
	IsGift            bool                      `json:"isGift"`
	GiftMessage       string                    `json:"giftMessage"`
}

type UpdateStatusRequest struct {
	Status         Status `json:"status" binding:"required"`
	TrackingNumber string `json:"trackingNumber"`
}

type OrderFilter struct {
	Status     Status `form:"status"`
	CustomerID string `form:"customerId"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

type OrderList struct {
	Orders []*Order `json:"orders"`
	Total  int64    `json:"total"`
}

type Statistics struct {
	TotalOrders  int64    `json:"totalOrders"`
	RecentOrders []*Order `json:"recentOrders"`
}

type CreatedPayload struct {
	OrderID    string `json:"orderId"`
	CustomerID string `json:"customerId"`
}
