package service

import (
	"context"

	"github.com/deppfellow/stockroom/internal/errs"
	"github.com/deppfellow/stockroom/internal/lib/job"
	"github.com/deppfellow/stockroom/internal/repository"
	"github.com/deppfellow/stockroom/internal/session"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrSelfDeletion is returned when a user tries to delete their own account.
var ErrSelfDeletion = errs.NewConflictError("You cannot delete the account you are signed in with", "SELF_DELETION")

// Enqueuer is the part of *asynq.Client the services use.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AuthService moves callers between anonymous and authenticated and manages
// accounts. It is the only writer of session state.
type AuthService struct {
	credentials *repository.CredentialStore
	sessions    *session.Manager
	jobs        Enqueuer
	logger      *zerolog.Logger
}

func NewAuthService(credentials *repository.CredentialStore, sessions *session.Manager, jobs Enqueuer, logger *zerolog.Logger) *AuthService {
	return &AuthService{
		credentials: credentials,
		sessions:    sessions,
		jobs:        jobs,
		logger:      logger,
	}
}

// Login verifies the credentials and binds a fresh session to the caller.
// Any session id the caller held before is discarded.
func (a *AuthService) Login(c echo.Context, username, password string) (*session.Session, error) {
	ctx := c.Request().Context()

	cred, err := a.credentials.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	roleName, err := a.credentials.ResolveRoleName(ctx, cred.RoleID)
	if err != nil {
		return nil, err
	}

	sess := session.Session{
		UserID:      cred.ID,
		DisplayName: cred.Username,
		RoleName:    roleName,
	}
	if err := a.sessions.Issue(ctx, c.Response(), c.Request(), sess); err != nil {
		return nil, err
	}

	a.logger.Info().
		Int64("user_id", cred.ID).
		Str("user_role", roleName).
		Msg("user logged in")

	return &sess, nil
}

// Logout ends the caller's session. Logging out twice is harmless.
func (a *AuthService) Logout(c echo.Context) error {
	return a.sessions.Clear(c.Request().Context(), c.Response(), c.Request())
}

// PendingFlash returns the one-shot message left for the login page.
func (a *AuthService) PendingFlash(c echo.Context) string {
	return a.sessions.PopFlash(c.Response(), c.Request())
}

// Register creates an account on behalf of createdBy and queues the
// notification. A failed enqueue does not undo the registration.
func (a *AuthService) Register(ctx context.Context, createdBy *session.Session, username, password string, roleID int64) (*repository.Credential, error) {
	id, err := a.credentials.Register(ctx, username, password, roleID)
	if err != nil {
		return nil, err
	}

	cred := &repository.Credential{ID: id, Username: username, RoleID: roleID}
	a.notifyAccountCreated(ctx, cred, createdBy)

	return cred, nil
}

func (a *AuthService) notifyAccountCreated(ctx context.Context, cred *repository.Credential, createdBy *session.Session) {
	if a.jobs == nil {
		return
	}

	roleName, err := a.credentials.ResolveRoleName(ctx, cred.RoleID)
	if err != nil {
		roleName = repository.UnknownRole
	}

	task, err := job.NewAccountCreatedTask(job.AccountCreatedPayload{
		Username:  cred.Username,
		RoleName:  roleName,
		CreatedBy: createdBy.DisplayName,
	})
	if err == nil {
		_, err = a.jobs.EnqueueContext(ctx, task)
	}
	if err != nil {
		a.logger.Warn().Err(err).Int64("user_id", cred.ID).Msg("failed to enqueue account created task")
	}
}

func (a *AuthService) ListUsers(ctx context.Context) ([]map[string]any, error) {
	return a.credentials.List(ctx)
}

func (a *AuthService) Roles(ctx context.Context) ([]repository.Role, error) {
	return a.credentials.Roles(ctx)
}

func (a *AuthService) UpdateUser(ctx context.Context, id int64, username string, roleID int64) error {
	return a.credentials.UpdateIdentity(ctx, id, username, roleID)
}

// DeleteUser removes an account. Deleting the caller's own account is
// refused so an administrator cannot lock everyone out by accident.
func (a *AuthService) DeleteUser(ctx context.Context, actor *session.Session, id int64) error {
	if actor != nil && actor.UserID == id {
		return ErrSelfDeletion
	}
	return a.credentials.Delete(ctx, id)
}
