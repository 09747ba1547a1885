package cmd

import (
	"context"
	"fmt"

	"github.com/smsgate/smsgate/internal/config"
	"github.com/smsgate/smsgate/internal/core/store"
)

// openStore opens the audit log for read commands. The log is opened even
// when audit.enabled is false so earlier records stay inspectable.
func openStore(ctx context.Context) (*store.Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return store.OpenAndMigrate(ctx, cfg.Audit)
}
