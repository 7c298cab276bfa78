package schema

import (
	"testing"

	"creditshop/pkg/config"
	"creditshop/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestMigrate(t *testing.T) {
	db := testutil.NewTestDB(t)

	cfg := &config.Config{}
	require.NoError(t, Migrate(Params{DB: db, Config: cfg}))
	require.False(t, db.Migrator().HasTable("credit_transactions"))

	cfg.Database.AutoMigrate = true
	require.NoError(t, Migrate(Params{DB: db, Config: cfg}))
	for _, table := range []string{"accounts", "products", "addresses", "credit_transactions", "orders", "order_items"} {
		require.True(t, db.Migrator().HasTable(table), table)
	}
	require.True(t, db.Migrator().HasIndex("credit_transactions", "idx_credit_tx_customer_seq"))
}
