package catalog

import (
	"context"
	"testing"

	"creditshop/pkg/errutil"
	"creditshop/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func int64Ptr(v int64) *int64 { return &v }

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewTestDB(t, &Product{})
	return NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})
}

func TestCreateProduct(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, CreateProductRequest{Name: "Coffee Mug", PriceInCredits: 100, Stock: int64Ptr(10)})
	require.NoError(t, err)
	require.Equal(t, "coffee-mug", p.Slug)
	require.True(t, p.IsActive)
	require.Equal(t, int64(10), *p.Stock)

	dup, err := svc.CreateProduct(ctx, CreateProductRequest{Name: "Coffee Mug", PriceInCredits: 50})
	require.NoError(t, err)
	require.NotEqual(t, p.Slug, dup.Slug)
	require.Nil(t, dup.Stock)
}

func TestCreateProductValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductRequest{Name: "Mug", PriceInCredits: -1})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	_, err = svc.CreateProduct(ctx, CreateProductRequest{Name: "Mug", PriceInCredits: 1, Stock: int64Ptr(-1)})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	_, err = svc.CreateProduct(ctx, CreateProductRequest{Name: "  "})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))
}

func TestUpdateAndToggle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, CreateProductRequest{Name: "Sticker", PriceInCredits: 5, Stock: int64Ptr(3)})
	require.NoError(t, err)

	price := int64(7)
	updated, err := svc.UpdateProduct(ctx, p.ID, UpdateProductRequest{PriceInCredits: &price, Unlimited: true})
	require.NoError(t, err)
	require.Equal(t, int64(7), updated.PriceInCredits)
	require.Nil(t, updated.Stock)

	toggled, err := svc.ToggleActive(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, toggled.IsActive)

	active, err := svc.ListProducts(ctx, true)
	require.NoError(t, err)
	require.Empty(t, active)

	all, err := svc.ListProducts(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = svc.UpdateProduct(ctx, "missing", UpdateProductRequest{PriceInCredits: &price})
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestDeleteProductDeactivates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, CreateProductRequest{Name: "Poster", PriceInCredits: 20})
	require.NoError(t, err)

	deleted, err := svc.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, deleted.IsActive)

	got, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}

func TestInStock(t *testing.T) {
	require.True(t, (&Product{}).InStock(1000))
	require.True(t, (&Product{Stock: int64Ptr(2)}).InStock(2))
	require.False(t, (&Product{Stock: int64Ptr(1)}).InStock(2))
	require.False(t, (&Product{Stock: int64Ptr(-1)}).InStock(1))
}

func TestListProductsSeesWrites(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	before, err := svc.ListProducts(ctx, true)
	require.NoError(t, err)
	require.Empty(t, before)

	p, err := svc.CreateProduct(ctx, CreateProductRequest{Name: "Tote Bag", PriceInCredits: 40})
	require.NoError(t, err)

	after, err := svc.ListProducts(ctx, true)
	require.NoError(t, err)
	require.Len(t, after, 1)

	_, err = svc.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)

	after, err = svc.ListProducts(ctx, true)
	require.NoError(t, err)
	require.Empty(t, after)
}
