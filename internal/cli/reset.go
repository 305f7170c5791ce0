package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/terraincognita07/cycleapp/internal/models"
	"github.com/terraincognita07/cycleapp/internal/services"
	"gorm.io/gorm"
)

type VariationResetter interface {
	FindByNormalizedEmail(ctx context.Context, email string) (models.User, error)
	UpdateSettings(ctx context.Context, userID uint, updates map[string]any) error
}

// RunResetVariationsCommand clears a user's learned cycle bounds so the next
// reconciliation tick relearns them from history.
func RunResetVariationsCommand(ctx context.Context, users VariationResetter, email string, out io.Writer) error {
	normalizedEmail := services.NormalizeAuthEmail(email)
	if normalizedEmail == "" {
		return errors.New("a valid email is required")
	}

	user, err := users.FindByNormalizedEmail(ctx, normalizedEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %s not found", normalizedEmail)
		}
		return fmt.Errorf("load user: %w", err)
	}

	if err := users.UpdateSettings(ctx, user.ID, map[string]any{
		"min_cycle_length":            nil,
		"max_cycle_length":            nil,
		"min_period_length":           nil,
		"max_period_length":           nil,
		"last_cycle_variation_update": nil,
	}); err != nil {
		return fmt.Errorf("reset cycle variations: %w", err)
	}

	fmt.Fprintf(out, "Cycle variations cleared for %s.\n", normalizedEmail)
	fmt.Fprintln(out, "They will be relearned on the next reconciliation tick.")
	return nil
}
