package secretmanager

import (
	"os"

	vault "github.com/hashicorp/vault-client-go"
	"go.uber.org/fx"
)

// Module provides a Vault client when VAULT_ADDR is present. config.Module
// takes it as an optional dependency to fill database, redis and jwt secrets.
var Module = fx.Module("secretmanager", fx.Provide(ProvideVault))

// ProvideVault returns a nil client when Vault is not configured.
func ProvideVault() (*vault.Client, error) {
	if os.Getenv("VAULT_ADDR") == "" {
		return nil, nil
	}

	return vault.New(
		vault.WithEnvironment(),
	)
}
