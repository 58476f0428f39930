// internal/config/secrets.go
//
// Vault reference resolution.
//
// Any leaf in the merged tree of the form
//
//	vault:<mount>/<path>#<key>
//
// is replaced with the secret's value before unmarshal.  The Vault client
// is only constructed when at least one reference exists, so dev setups
// without VAULT_ADDR keep working.

package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/threadstead/internal/vault"
)

const vaultPrefix = "vault:"

// secretResolver is the subset of *vault.Client the loader needs.
type secretResolver interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

type resolverFactory func(ctx context.Context) (secretResolver, error)

var newResolver resolverFactory = func(ctx context.Context) (secretResolver, error) {
	return vault.New(ctx, zap.S())
}

func resolveSecrets(ctx context.Context, k *koanf.Koanf, factory resolverFactory) error {
	refs := map[string]string{}
	for key, val := range k.All() {
		if s, ok := val.(string); ok && strings.HasPrefix(s, vaultPrefix) {
			refs[key] = strings.TrimPrefix(s, vaultPrefix)
		}
	}
	if len(refs) == 0 {
		return nil
	}

	res, err := factory(ctx)
	if err != nil {
		return fmt.Errorf("vault client: %w", err)
	}
	for key, ref := range refs {
		path, field, ok := strings.Cut(ref, "#")
		if !ok {
			return fmt.Errorf("%s: vault reference %q lacks #key", key, ref)
		}
		val, err := res.GetKV(ctx, path, field, 0)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return err
		}
		zap.S().Debugw("config secret resolved", "key", key, "path", path)
	}
	return nil
}
