package address

import (
	"context"
	"strings"

	"creditshop/pkg/errutil"
	"creditshop/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func errRequired(field string) error {
	return errutil.ValidationFailed(field+" is required", nil)
}

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	address repository.Repository[Address]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		address: repository.ProvideStore[Address](p.DB),
	}
}

func trimSnapshot(s ShippingSnapshot) ShippingSnapshot {
	return ShippingSnapshot{
		Name:         strings.TrimSpace(s.Name),
		AddressLine1: strings.TrimSpace(s.AddressLine1),
		AddressLine2: strings.TrimSpace(s.AddressLine2),
		City:         strings.TrimSpace(s.City),
		State:        strings.TrimSpace(s.State),
		PostalCode:   strings.TrimSpace(s.PostalCode),
		Country:      strings.TrimSpace(s.Country),
	}
}

// clearDefault unsets the user's current default, except for keepID.
func clearDefault(tx *gorm.DB, userID, keepID string) error {
	q := tx.Model(&Address{}).Where("user_id = ? AND is_default = ?", userID, true)
	if keepID != "" {
		q = q.Where("id <> ?", keepID)
	}
	return q.Update("is_default", false).Error
}

func (s *Service) CreateAddress(ctx context.Context, userID string, req CreateAddressRequest) (*Address, error) {
	snap := trimSnapshot(req.ShippingSnapshot)
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	addr := &Address{
		ID:           s.node.Generate().String(),
		UserID:       userID,
		Name:         snap.Name,
		AddressLine1: snap.AddressLine1,
		AddressLine2: snap.AddressLine2,
		City:         snap.City,
		State:        snap.State,
		PostalCode:   snap.PostalCode,
		Country:      snap.Country,
		IsDefault:    req.IsDefault,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if addr.IsDefault {
			if err := clearDefault(tx, userID, ""); err != nil {
				return err
			}
		}
		return s.address.WithTrx(tx).Create(ctx, addr)
	}); err != nil {
		return nil, err
	}

	return addr, nil
}

// ListAddresses returns the default address first, then newest first.
func (s *Service) ListAddresses(ctx context.Context, userID string) ([]*Address, error) {
	return s.address.Find(ctx, &Address{UserID: userID}, func(db *gorm.DB) *gorm.DB {
		return db.Order("is_default DESC").Order("created_at DESC")
	})
}

func (s *Service) GetAddress(ctx context.Context, userID, addressID string) (*Address, error) {
	if userID == "" || addressID == "" {
		return nil, errutil.NotFound("Address not found", nil)
	}

	addr, err := s.address.FindOne(ctx, &Address{ID: addressID, UserID: userID})
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, errutil.NotFound("Address not found", nil)
	}
	return addr, nil
}

func (s *Service) UpdateAddress(ctx context.Context, userID, addressID string, req UpdateAddressRequest) (*Address, error) {
	if _, err := s.GetAddress(ctx, userID, addressID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	set := func(column, label string, v *string, required bool) error {
		if v == nil {
			return nil
		}
		val := strings.TrimSpace(*v)
		if required && val == "" {
			return errutil.ValidationFailed(label+" cannot be empty", nil)
		}
		updates[column] = val
		return nil
	}

	for _, f := range []struct {
		column, label string
		v             *string
		required      bool
	}{
		{"name", "Name", req.Name, true},
		{"address_line1", "Address line 1", req.AddressLine1, true},
		{"address_line2", "Address line 2", req.AddressLine2, false},
		{"city", "City", req.City, true},
		{"state", "State", req.State, false},
		{"postal_code", "Postal code", req.PostalCode, true},
		{"country", "Country", req.Country, true},
	} {
		if err := set(f.column, f.label, f.v, f.required); err != nil {
			return nil, err
		}
	}
	if req.IsDefault != nil {
		updates["is_default"] = *req.IsDefault
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.IsDefault != nil && *req.IsDefault {
			if err := clearDefault(tx, userID, addressID); err != nil {
				return err
			}
		}
		if len(updates) == 0 {
			return nil
		}
		return s.address.WithTrx(tx).Update(ctx, addressID, &updates)
	}); err != nil {
		return nil, err
	}

	return s.GetAddress(ctx, userID, addressID)
}

func (s *Service) DeleteAddress(ctx context.Context, userID, addressID string) error {
	if _, err := s.GetAddress(ctx, userID, addressID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Where("id = ? AND user_id = ?", addressID, userID).Delete(&Address{}).Error
}

func (s *Service) SetDefaultAddress(ctx context.Context, userID, addressID string) (*Address, error) {
	isDefault := true
	return s.UpdateAddress(ctx, userID, addressID, UpdateAddressRequest{IsDefault: &isDefault})
}

// Resolve returns the shipping snapshot of an address owned by userID.
func (s *Service) Resolve(ctx context.Context, userID, addressID string) (*ShippingSnapshot, error) {
	if addressID == "" || userID == "" {
		return nil, errutil.NotFound("Shipping address not found", nil)
	}

	addr, err := s.address.FindOne(ctx, &Address{ID: addressID, UserID: userID})
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, errutil.NotFound("Shipping address not found", nil)
	}
	snap := addr.Snapshot()
	return &snap, nil
}
