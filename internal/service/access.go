package service

import (
	"context"
	"fmt"
)

// requireAccess returns ErrForbidden unless the portal user is scoped to the location.
func requireAccess(ctx context.Context, access AccessRepositoryInterface, userID, locationID string) error {
	if userID == "" {
		return ErrForbidden
	}
	ok, err := access.HasAccess(ctx, userID, locationID)
	if err != nil {
		return fmt.Errorf("check access: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
