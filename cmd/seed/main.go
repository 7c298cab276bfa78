package main

import (
	"context"
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"creditshop/pkg/config"
	"creditshop/pkg/db"
	"creditshop/pkg/errutil"
	"creditshop/pkg/gen"
	"creditshop/pkg/identity"
	"creditshop/pkg/logger"
	"creditshop/services/account"
	"creditshop/services/address"
	"creditshop/services/catalog"
	"creditshop/services/ledger"
	"creditshop/services/schema"
)

type customerSeed struct {
	email, name string
	credits     int64
	addresses   []address.CreateAddressRequest
}

var customers = []customerSeed{
	{
		email: "alice@example.com", name: "Alice Johnson", credits: 500,
		addresses: []address.CreateAddressRequest{
			{ShippingSnapshot: address.ShippingSnapshot{Name: "Alice Johnson", AddressLine1: "Nørrebrogade 52", AddressLine2: "2. tv", City: "København", PostalCode: "2200", Country: "Denmark"}, IsDefault: true},
			{ShippingSnapshot: address.ShippingSnapshot{Name: "Alice's Mom", AddressLine1: "Vestergade 15", City: "Aarhus", PostalCode: "8000", Country: "Denmark"}},
		},
	},
	{
		email: "bob@example.com", name: "Bob Smith", credits: 1000,
		addresses: []address.CreateAddressRequest{
			{ShippingSnapshot: address.ShippingSnapshot{Name: "Bob Smith", AddressLine1: "Strandvejen 89", City: "Hellerup", PostalCode: "2900", Country: "Denmark"}, IsDefault: true},
		},
	},
	{
		email: "charlie@example.com", name: "Charlie Brown", credits: 250,
		addresses: []address.CreateAddressRequest{
			{ShippingSnapshot: address.ShippingSnapshot{Name: "Charlie Brown", AddressLine1: "Gammeltorv 22", AddressLine2: "1. sal", City: "Odense", PostalCode: "5000", Country: "Denmark"}, IsDefault: true},
		},
	},
}

func stock(n int64) *int64 { return &n }

var products = []catalog.CreateProductRequest{
	{Name: "Godiva Premium Chocolate Collection", Description: "Assorted Belgian chocolates in a gold box.", PriceInCredits: 150, Stock: stock(50)},
	{Name: "Amazon Gift Card - $100", Description: "Digital gift card delivered by email.", PriceInCredits: 200},
	{Name: "Spa Day Gift Certificate", Description: "Full day spa package.", PriceInCredits: 500, Stock: stock(25)},
	{Name: "Wireless Noise-Cancelling Headphones", Description: "Over-ear headphones with 30 hour battery.", PriceInCredits: 800, Stock: stock(10)},
	{Name: "Coffee Subscription - 3 Months", Description: "Freshly roasted beans every month.", PriceInCredits: 300, Stock: stock(100)},
}

type seedParams struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Accounts   *account.Service
	Addresses  *address.Service
	Catalog    *catalog.Service
	Ledger     *ledger.Service
}

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		schema.Module,
		gen.Module,
		identity.Module,
		fx.Provide(
			account.NewService,
			address.NewService,
			catalog.NewService,
			ledger.NewService,
		),
		fx.Invoke(registerSeed),
		fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

func registerSeed(p seedParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			err := seed(ctx, p)
			if err != nil {
				zap.L().Error("seed failed", zap.Error(err))
			}
			return p.Shutdowner.Shutdown(fx.ExitCode(exitCode(err)))
		},
	})
}

func exitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

// seed skips everything when the admin account already exists.
func seed(ctx context.Context, p seedParams) error {
	admin, err := p.Accounts.Register(ctx, account.RegisterRequest{
		Email: "admin@webshop.com", Name: "Admin User", Password: "admin123", Role: account.RoleAdmin,
	})
	if errutil.Is(err, errutil.StatusValidationFailed) {
		zap.L().Info("admin exists, nothing to seed")
		return nil
	}
	if err != nil {
		return err
	}
	zap.L().Info("created admin", zap.String("email", admin.User.Email))

	for _, c := range customers {
		res, err := p.Accounts.Register(ctx, account.RegisterRequest{Email: c.email, Name: c.name, Password: "customer123"})
		if err != nil {
			return err
		}

		for _, a := range c.addresses {
			if _, err := p.Addresses.CreateAddress(ctx, res.User.ID, a); err != nil {
				return err
			}
		}

		if _, err := p.Ledger.AdjustCredits(ctx, ledger.AdjustCreditsRequest{
			CustomerID: res.User.ID,
			Amount:     c.credits,
			Type:       ledger.TypeReward,
			Reason:     "Initial credit grant",
		}, admin.User.ID); err != nil {
			return err
		}
		zap.L().Info("created customer", zap.String("email", c.email), zap.Int64("credits", c.credits))
	}

	for _, req := range products {
		if _, err := p.Catalog.CreateProduct(ctx, req); err != nil {
			return err
		}
	}
	zap.L().Info("created products", zap.Int("count", len(products)))

	return nil
}
