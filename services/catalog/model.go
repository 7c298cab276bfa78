package catalog

import "time"

// Product is a redeemable item. A nil Stock means unlimited (digital goods).
type Product struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	Name           string    `gorm:"column:name;not null" json:"name"`
	Slug           string    `gorm:"column:slug;uniqueIndex;not null" json:"slug"`
	Description    string    `gorm:"column:description" json:"description"`
	ImageURL       string    `gorm:"column:image_url" json:"imageUrl,omitempty"`
	PriceInCredits int64     `gorm:"column:price_in_credits;not null" json:"priceInCredits"`
	Stock          *int64    `gorm:"column:stock" json:"stock"`
	IsActive       bool      `gorm:"column:is_active;not null;index" json:"isActive"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Product) TableName() string { return "products" }

// InStock reports whether quantity units can be taken. Unlimited products are
// always in stock; a negative stored stock counts as sold out.
func (p *Product) InStock(quantity int64) bool {
	if p.Stock == nil {
		return true
	}
	return *p.Stock >= quantity
}

type CreateProductRequest struct {
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	ImageURL       string `json:"imageUrl"`
	PriceInCredits int64  `json:"priceInCredits"`
	Stock          *int64 `json:"stock"`
	IsActive       *bool  `json:"isActive"`
}

// UpdateProductRequest only touches the fields that are set. Unlimited=true
// clears Stock back to null.
type UpdateProductRequest struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	ImageURL       *string `json:"imageUrl"`
	PriceInCredits *int64  `json:"priceInCredits"`
	Stock          *int64  `json:"stock"`
	Unlimited      bool    `json:"unlimited"`
	IsActive       *bool   `json:"isActive"`
}
