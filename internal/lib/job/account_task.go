package job

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskAccountCreated notifies an administrator about a new account.
	TaskAccountCreated = "account:created"
)

type AccountCreatedPayload struct {
	Username  string `json:"username"`
	RoleName  string `json:"role_name"`
	CreatedBy string `json:"created_by"`
}

// NewAccountCreatedTask builds the notification task for a new account.
func NewAccountCreatedTask(p AccountCreatedPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskAccountCreated, payload,
		asynq.MaxRetry(3),
		asynq.Queue("default"),
		asynq.Timeout(30*time.Second)), nil
}
