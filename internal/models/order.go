package models

import "time"

// ShippingAddress is embedded into Order with a shipping_ column prefix.
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Order struct {
	ID                uint            `gorm:"primaryKey"          json:"id"`
	UserID            uint            `gorm:"index;not null"      json:"user_id"`
	Status            string          `gorm:"not null"            json:"status"`
	Items             []OrderItem     `gorm:"foreignKey:OrderID"  json:"items"`
	ShippingAddress   ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	PaymentMethod     string          `json:"payment_method"`
	CouponCode        string          `json:"coupon_code,omitempty"`
	ItemsPrice        float64         `gorm:"not null" json:"items_price"`
	ShippingPrice     float64         `gorm:"not null" json:"shipping_price"`
	TaxPrice          float64         `gorm:"not null" json:"tax_price"`
	Discount          float64         `json:"discount"`
	TotalPrice        float64         `gorm:"not null" json:"total_price"`
	IsPaid            bool            `gorm:"default:false" json:"is_paid"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	IsDelivered       bool            `gorm:"default:false" json:"is_delivered"`
	DeliveredAt       *time.Time      `json:"delivered_at,omitempty"`
	TrackingNumber    string          `json:"tracking_number"`
	Notes             string          `json:"notes"`
	CancelRequested   bool            `gorm:"default:false" json:"cancel_requested"`
	ReturnRequested   bool            `gorm:"default:false" json:"return_requested"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey"                  json:"id"`
	OrderID   uint    `gorm:"index;not null"              json:"order_id"`
	UserID    uint    `gorm:"index;not null"              json:"user_id"`
	ProductID uint    `gorm:"not null"                    json:"product_id"`
	Name      string  `gorm:"not null"                    json:"name"`
	Image     string  `json:"image"`
	Price     float64 `gorm:"not null"                    json:"price"`
	Quantity  uint    `gorm:"default:1;check:quantity>0"  json:"quantity"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
}
