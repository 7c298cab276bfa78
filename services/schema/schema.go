// Package schema owns the table layout of every service.
package schema

import (
	"creditshop/pkg/config"
	"creditshop/services/account"
	"creditshop/services/address"
	"creditshop/services/catalog"
	"creditshop/services/ledger"
	"creditshop/services/order"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("schema", fx.Invoke(Migrate))

func Models() []any {
	return []any{
		&account.Account{},
		&catalog.Product{},
		&address.Address{},
		&ledger.CreditTransaction{},
		&order.Order{},
		&order.OrderItem{},
	}
}

type Params struct {
	fx.In
	DB     *gorm.DB
	Config *config.Config
}

// Migrate runs AutoMigrate when DATABASE.AUTO_MIGRATE is set.
func Migrate(p Params) error {
	if !p.Config.Database.AutoMigrate {
		return nil
	}

	if err := p.DB.AutoMigrate(Models()...); err != nil {
		zap.L().Error("failed to migrate schema", zap.Error(err))
		return err
	}

	zap.L().Info("schema migrated", zap.Int("models", len(Models())))
	return nil
}
