package catalog

import (
	"context"
	"fmt"
	"strings"

	"creditshop/pkg/config"
	"creditshop/pkg/db/option"
	"creditshop/pkg/errutil"
	"creditshop/pkg/logger"
	"creditshop/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service is the catalog admin surface. Stock decrements for purchases do not
// go through here; the order engine owns them.
type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	product repository.Repository[Product]
	cache   *ListCache
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	ttl := defaultListCacheTTL
	if p.Config != nil {
		ttl = p.Config.Catalog.ListCacheTTL
	}

	return &Service{
		db:      p.DB,
		node:    p.Node,
		product: repository.ProvideStore[Product](p.DB),
		cache:   NewListCache(ttl),
	}
}

func validatePriceAndStock(price *int64, stock *int64) error {
	if price != nil && *price < 0 {
		return errutil.ValidationFailed("Price must be non-negative", nil)
	}
	if stock != nil && *stock < 0 {
		return errutil.ValidationFailed("Stock must be non-negative or null", nil)
	}
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errutil.ValidationFailed("Name is required", nil)
	}
	if err := validatePriceAndStock(&req.PriceInCredits, req.Stock); err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	id := s.node.Generate()
	productSlug, err := s.uniqueSlug(ctx, name, id)
	if err != nil {
		return nil, err
	}

	p := &Product{
		ID:             id.String(),
		Name:           name,
		Slug:           productSlug,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		PriceInCredits: req.PriceInCredits,
		Stock:          req.Stock,
		IsActive:       isActive,
	}
	if err := s.product.Create(ctx, p); err != nil {
		logger.FromContext(ctx).Error("failed to create product", zap.String("slug", productSlug), zap.Error(err))
		return nil, err
	}
	s.cache.Invalidate()

	return p, nil
}

// uniqueSlug derives the slug from the name, suffixing the id's base36 form on
// collision.
func (s *Service) uniqueSlug(ctx context.Context, name string, id snowflake.ID) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "product"
	}

	existing, err := s.product.FindOne(ctx, &Product{Slug: base})
	if err != nil {
		return "", err
	}
	if existing == nil {
		return base, nil
	}
	return fmt.Sprintf("%s-%s", base, id.Base36()), nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	if id == "" {
		return nil, errutil.NotFound("Product not found", nil)
	}

	p, err := s.product.FindOne(ctx, &Product{ID: id})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errutil.NotFound("Product not found", nil)
	}
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]*Product, error) {
	return s.cache.Load(activeOnly, func() ([]*Product, error) {
		return s.listProducts(ctx, activeOnly)
	})
}

func (s *Service) listProducts(ctx context.Context, activeOnly bool) ([]*Product, error) {
	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	}
	if activeOnly {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "is_active", Operator: option.EQ, Value: true}))
	}
	return s.product.Find(ctx, nil, opts...)
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error) {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	if err := validatePriceAndStock(req.PriceInCredits, req.Stock); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errutil.ValidationFailed("Name cannot be empty", nil)
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}
	if req.PriceInCredits != nil {
		updates["price_in_credits"] = *req.PriceInCredits
	}
	if req.Unlimited {
		updates["stock"] = nil
	} else if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.product.Update(ctx, id, &updates); err != nil {
			return nil, err
		}
		s.cache.Invalidate()
	}

	return s.GetProduct(ctx, id)
}

// DeleteProduct deactivates the product; order items keep referencing it.
func (s *Service) DeleteProduct(ctx context.Context, id string) (*Product, error) {
	active := false
	return s.UpdateProduct(ctx, id, UpdateProductRequest{IsActive: &active})
}

func (s *Service) ToggleActive(ctx context.Context, id string) (*Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	active := !p.IsActive
	return s.UpdateProduct(ctx, id, UpdateProductRequest{IsActive: &active})
}
