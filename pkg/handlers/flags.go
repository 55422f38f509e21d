package handlers

import (
	"context"
	"errors"

	"github.com/glowdesk/pipeline/pkg/feature"
)

// flagEnabled reads a tenant flag, treating an unconfigured flag as
// disabled rather than a task failure.
func flagEnabled(ctx context.Context, lookup feature.Lookup, tenantID, flag string) (bool, error) {
	enabled, err := lookup.IsEnabled(ctx, tenantID, flag)
	if errors.Is(err, feature.ErrFlagNotFound) {
		return false, nil
	}
	return enabled, err
}
