package repo

import (
	"context"
	"fmt"

	"renderq/internal/infra"
	"renderq/internal/sqlinline"
)

// EnsureSchema applies the idempotent schema statements. Both binaries call
// this at startup; whichever runs first creates the tables.
func EnsureSchema(ctx context.Context, sql infra.SQLExecutor) error {
	for _, stmt := range sqlinline.Schema {
		if _, err := sql.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
