package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	calls []AccountCreatedPayload
	to    []string
	err   error
}

func (n *recordingNotifier) SendAccountCreatedEmail(to, username, roleName, createdBy string) error {
	n.to = append(n.to, to)
	n.calls = append(n.calls, AccountCreatedPayload{Username: username, RoleName: roleName, CreatedBy: createdBy})
	return n.err
}

func newTestService(notifier Notifier, to string) *JobService {
	logger := zerolog.Nop()
	return &JobService{logger: &logger, notifier: notifier, notifyTo: to}
}

func TestNewAccountCreatedTask(t *testing.T) {
	task, err := NewAccountCreatedTask(AccountCreatedPayload{Username: "jdoe", RoleName: "seller", CreatedBy: "admin"})
	require.NoError(t, err)

	assert.Equal(t, TaskAccountCreated, task.Type())

	var p AccountCreatedPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "jdoe", p.Username)
}

func TestHandleAccountCreatedTask(t *testing.T) {
	ctx := context.Background()
	task, err := NewAccountCreatedTask(AccountCreatedPayload{Username: "jdoe", RoleName: "seller", CreatedBy: "admin"})
	require.NoError(t, err)

	t.Run("Should send the notification to the configured address", func(t *testing.T) {
		notifier := &recordingNotifier{}
		svc := newTestService(notifier, "ops@example.com")

		require.NoError(t, svc.handleAccountCreatedTask(ctx, task))

		require.Len(t, notifier.calls, 1)
		assert.Equal(t, "ops@example.com", notifier.to[0])
		assert.Equal(t, "seller", notifier.calls[0].RoleName)
	})

	t.Run("Should return the delivery error so the task is retried", func(t *testing.T) {
		svc := newTestService(&recordingNotifier{err: errors.New("provider down")}, "ops@example.com")
		assert.Error(t, svc.handleAccountCreatedTask(ctx, task))
	})

	t.Run("Should drop the task when notifications are disabled", func(t *testing.T) {
		assert.NoError(t, newTestService(nil, "").handleAccountCreatedTask(ctx, task))
	})

	t.Run("Should not retry a malformed payload", func(t *testing.T) {
		svc := newTestService(&recordingNotifier{}, "ops@example.com")
		err := svc.handleAccountCreatedTask(ctx, asynq.NewTask(TaskAccountCreated, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}
