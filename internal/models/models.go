package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"unique;not null"          json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	JTI       string `gorm:"index"               json:"jti"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}

type Product struct {
	ID          uint     `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string   `gorm:"not null"                  json:"name"`
	Description string   `json:"description"`
	Price       float64  `gorm:"not null"                  json:"price"`
	Count       uint     `json:"count_in_stock"`
	CategoryID  uint     `gorm:"index"                     json:"category_id"`
	Brand       string   `json:"brand"`
	Gender      string   `json:"gender"`
	Featured    bool     `gorm:"default:false"             json:"featured"`
	Discount    float64  `json:"discount"`
	Images      []string `gorm:"serializer:json"           json:"images"`
	Sizes       []string `gorm:"serializer:json"           json:"sizes"`
	Colors      []string `gorm:"serializer:json"           json:"colors"`
	Features    []string `gorm:"serializer:json"           json:"features"`
	Rating      float64  `json:"rating"`
	NumReviews  uint     `json:"num_reviews"`
}

type Category struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"unique;not null"          json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	ParentID    *uint  `gorm:"index"                    json:"parent_id,omitempty"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"                               json:"id"`
	UserID    uint `gorm:"index:idx_cart_user_prod,unique;not null" json:"user_id"`
	ProductID uint `gorm:"index:idx_cart_user_prod,unique;not null" json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"               json:"quantity"`
}

const (
	CouponPercent = "percent"
	CouponFixed   = "fixed"
)

type Coupon struct {
	ID        uint       `gorm:"primaryKey"        json:"id"`
	Code      string     `gorm:"unique;not null"   json:"code"`
	Type      string     `gorm:"not null"          json:"type"`
	Value     float64    `gorm:"not null"          json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IsUsed    bool       `gorm:"default:false"     json:"is_used"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey"                            json:"id"`
	ProductID uint      `gorm:"index:idx_review_prod_user,unique"     json:"product_id"`
	UserID    uint      `gorm:"index:idx_review_prod_user,unique"     json:"user_id"`
	Rating    uint      `gorm:"not null;check:rating BETWEEN 1 AND 5" json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type WishlistItem struct {
	ID        uint      `gorm:"primaryKey"                      json:"id"`
	UserID    uint      `gorm:"index:idx_wish_user_prod,unique" json:"user_id"`
	ProductID uint      `gorm:"index:idx_wish_user_prod,unique" json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ContactMessage struct {
	ID        uint      `gorm:"primaryKey"  json:"id"`
	Name      string    `gorm:"not null"    json:"name"`
	Email     string    `gorm:"not null"    json:"email"`
	Subject   string    `json:"subject"`
	Body      string    `gorm:"not null"    json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID        uint      `gorm:"primaryKey"  json:"id"`
	ActorID   uint      `gorm:"index"       json:"actor_id"`
	Action    string    `gorm:"not null"    json:"action"`
	Entity    string    `gorm:"not null"    json:"entity"`
	EntityID  string    `json:"entity_id"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}
