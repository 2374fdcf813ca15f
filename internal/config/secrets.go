package config

import (
	"context"
	"fmt"
	"os"

	vault "github.com/hashicorp/vault/api"
	"github.com/rs/zerolog/log"
)

// ResolveDSN returns the Postgres DSN to use, preferring a secret stored in
// Vault at vaultPath (key "dsn") and falling back to the DATABASE_URL
// environment variable, then to cfg's static fields. This mirrors the
// platform's existing pattern of treating Vault as the production source of
// truth and environment variables as the local-dev escape hatch.
func ResolveDSN(ctx context.Context, cfg DatabaseConfig, vaultPath string) (string, error) {
	if vaultPath != "" {
		if dsn, err := dsnFromVault(ctx, vaultPath); err == nil && dsn != "" {
			return dsn, nil
		} else if err != nil {
			log.Warn().Err(err).Str("path", vaultPath).Msg("vault secret lookup failed, falling back")
		}
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn, nil
	}
	return cfg.GetDSN(), nil
}

// ResolveRedisAddr prefers REDIS_URL, falling back to cfg's static fields.
func ResolveRedisAddr(cfg RedisConfig) string {
	if addr := os.Getenv("REDIS_URL"); addr != "" {
		return addr
	}
	return cfg.GetRedisAddr()
}

func dsnFromVault(ctx context.Context, path string) (string, error) {
	addr := os.Getenv("VAULT_ADDR")
	if addr == "" {
		return "", fmt.Errorf("VAULT_ADDR not set")
	}
	client, err := vault.NewClient(&vault.Config{Address: addr})
	if err != nil {
		return "", fmt.Errorf("vault client: %w", err)
	}
	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
	}

	secret, err := client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("vault read %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("no secret at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		data = secret.Data
	}
	dsn, _ := data["dsn"].(string)
	return dsn, nil
}
