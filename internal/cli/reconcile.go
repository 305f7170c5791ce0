package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/terraincognita07/cycleapp/internal/services"
)

type TickRunner interface {
	ReconcileOnce(ctx context.Context) (services.TickReport, error)
}

// RunReconcileCommand runs one reconciliation tick and prints a summary. It
// fails when the tick could not start or any user exhausted its retries.
func RunReconcileCommand(ctx context.Context, runner TickRunner, out io.Writer) error {
	report, err := runner.ReconcileOnce(ctx)
	if err != nil && !report.Canceled {
		return fmt.Errorf("reconcile: %w", err)
	}

	fmt.Fprintf(out, "Reconciliation tick %s\n", report.TickID)
	fmt.Fprintf(out, "Users: %d, succeeded: %d, failed: %d\n", report.Users, report.Succeeded, len(report.Failed))
	if report.Canceled {
		fmt.Fprintln(out, "Tick canceled before all users were processed.")
		return err
	}

	if len(report.Failed) == 0 {
		return nil
	}
	failedIDs := make([]uint, 0, len(report.Failed))
	for userID := range report.Failed {
		failedIDs = append(failedIDs, userID)
	}
	sort.Slice(failedIDs, func(i, j int) bool { return failedIDs[i] < failedIDs[j] })
	for _, userID := range failedIDs {
		fmt.Fprintf(out, "  user %d: %v\n", userID, report.Failed[userID])
	}
	return fmt.Errorf("%d user(s) failed reconciliation", len(report.Failed))
}
