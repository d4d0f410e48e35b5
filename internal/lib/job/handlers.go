package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Notifier delivers account notifications. *email.Client implements it.
type Notifier interface {
	SendAccountCreatedEmail(to, username, roleName, createdBy string) error
}

func (j *JobService) handleAccountCreatedTask(ctx context.Context, t *asynq.Task) error {
	var p AccountCreatedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal account created payload: %w: %w", err, asynq.SkipRetry)
	}

	if j.notifier == nil || j.notifyTo == "" {
		j.logger.Debug().
			Str("type", TaskAccountCreated).
			Str("username", p.Username).
			Msg("notifications disabled, dropping task")
		return nil
	}

	j.logger.Info().
		Str("type", TaskAccountCreated).
		Str("username", p.Username).
		Msg("Processing account created task")

	if err := j.notifier.SendAccountCreatedEmail(j.notifyTo, p.Username, p.RoleName, p.CreatedBy); err != nil {
		j.logger.Error().
			Str("type", TaskAccountCreated).
			Str("username", p.Username).
			Err(err).
			Msg("Failed to send account created email")
		return err
	}

	j.logger.Info().
		Str("type", TaskAccountCreated).
		Str("username", p.Username).
		Msg("Successfully sent account created email")

	return nil
}
