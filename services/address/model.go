package address

import "time"

type Address struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	UserID       string    `gorm:"column:user_id;index;not null" json:"userId"`
	Name         string    `gorm:"column:name;not null" json:"name"`
	AddressLine1 string    `gorm:"column:address_line1;not null" json:"addressLine1"`
	AddressLine2 string    `gorm:"column:address_line2" json:"addressLine2,omitempty"`
	City         string    `gorm:"column:city;not null" json:"city"`
	State        string    `gorm:"column:state" json:"state,omitempty"`
	PostalCode   string    `gorm:"column:postal_code;not null" json:"postalCode"`
	Country      string    `gorm:"column:country;not null" json:"country"`
	IsDefault    bool      `gorm:"column:is_default;not null" json:"isDefault"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Address) TableName() string { return "addresses" }

// ShippingSnapshot is the copy of an address frozen onto an order.
type ShippingSnapshot struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
}

// Validate checks the fields every shipping label needs.
func (s ShippingSnapshot) Validate() error {
	switch {
	case s.Name == "":
		return errRequired("Name")
	case s.AddressLine1 == "":
		return errRequired("Address line 1")
	case s.City == "":
		return errRequired("City")
	case s.PostalCode == "":
		return errRequired("Postal code")
	case s.Country == "":
		return errRequired("Country")
	}
	return nil
}

func (a *Address) Snapshot() ShippingSnapshot {
	return ShippingSnapshot{
		Name:         a.Name,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
	}
}

type CreateAddressRequest struct {
	ShippingSnapshot
	IsDefault bool `json:"isDefault"`
}

type UpdateAddressRequest struct {
	Name         *string `json:"name"`
	AddressLine1 *string `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	PostalCode   *string `json:"postalCode"`
	Country      *string `json:"country"`
	IsDefault    *bool   `json:"isDefault"`
}
