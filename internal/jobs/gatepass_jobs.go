package jobs

import (
	"context"

	"nikosoko-backend/internal/logger"
)

// ExpireInvitations closes passes and knocks whose visit date has passed
func (jr *JobRunner) ExpireInvitations() {
	jr.runWithRecovery("ExpireInvitations", func() {
		ctx := context.Background()
		asOf := jr.now().UTC()

		n, err := jr.services.GatePass.ExpireInvitations(ctx, asOf)
		if err != nil {
			logger.Error("Failed to expire invitations", "error", err)
			return
		}
		logger.Info("Expired invitations", "count", n, "as_of", asOf.Format("2006-01-02"))
	})
}
