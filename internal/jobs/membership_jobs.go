package jobs

import (
	"context"

	"nikosoko-backend/internal/logger"
)

// RemindPendingVotes nudges leaders who have not voted on pending join requests
func (jr *JobRunner) RemindPendingVotes() {
	jr.runWithRecovery("RemindPendingVotes", func() {
		ctx := context.Background()

		sent, err := jr.services.Membership.RemindPendingVoters(ctx)
		if err != nil {
			logger.Error("Failed to send vote reminders", "error", err)
			return
		}
		logger.Info("Sent vote reminders", "count", sent)
	})
}
