package address

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

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewTestDB(t, &Address{})
	return NewService(ServiceParams{DB: db, Node: testutil.NewNode(t)})
}

func homeAddress(isDefault bool) CreateAddressRequest {
	return CreateAddressRequest{
		ShippingSnapshot: ShippingSnapshot{
			Name:         "Jane Doe",
			AddressLine1: "1 Main St",
			City:         "Springfield",
			PostalCode:   "12345",
			Country:      "US",
		},
		IsDefault: isDefault,
	}
}

func TestCreateAddressValidation(t *testing.T) {
	svc := newTestService(t)

	req := homeAddress(false)
	req.City = " "
	_, err := svc.CreateAddress(context.Background(), "user-1", req)
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))
}

func TestSingleDefaultAddress(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateAddress(ctx, "user-1", homeAddress(true))
	require.NoError(t, err)
	second, err := svc.CreateAddress(ctx, "user-1", homeAddress(true))
	require.NoError(t, err)

	got, err := svc.GetAddress(ctx, "user-1", first.ID)
	require.NoError(t, err)
	require.False(t, got.IsDefault)

	_, err = svc.SetDefaultAddress(ctx, "user-1", first.ID)
	require.NoError(t, err)

	list, err := svc.ListAddresses(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, first.ID, list[0].ID)
	require.True(t, list[0].IsDefault)
	require.Equal(t, second.ID, list[1].ID)
	require.False(t, list[1].IsDefault)
}

func TestAddressOwnership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	addr, err := svc.CreateAddress(ctx, "user-1", homeAddress(false))
	require.NoError(t, err)

	_, err = svc.GetAddress(ctx, "user-2", addr.ID)
	require.True(t, errutil.Is(err, errutil.StatusNotFound))

	_, err = svc.Resolve(ctx, "user-2", addr.ID)
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
	require.Contains(t, err.Error(), "Shipping address not found")

	require.True(t, errutil.Is(svc.DeleteAddress(ctx, "user-2", addr.ID), errutil.StatusNotFound))
	require.NoError(t, svc.DeleteAddress(ctx, "user-1", addr.ID))

	_, err = svc.GetAddress(ctx, "user-1", addr.ID)
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestUpdateAndResolve(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	addr, err := svc.CreateAddress(ctx, "user-1", homeAddress(false))
	require.NoError(t, err)

	city := "Shelbyville"
	_, err = svc.UpdateAddress(ctx, "user-1", addr.ID, UpdateAddressRequest{City: &city})
	require.NoError(t, err)

	empty := ""
	_, err = svc.UpdateAddress(ctx, "user-1", addr.ID, UpdateAddressRequest{Country: &empty})
	require.True(t, errutil.Is(err, errutil.StatusValidationFailed))

	snap, err := svc.Resolve(ctx, "user-1", addr.ID)
	require.NoError(t, err)
	require.Equal(t, "Shelbyville", snap.City)
	require.Equal(t, "Jane Doe", snap.Name)
}
