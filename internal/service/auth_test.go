package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/deppfellow/stockroom/internal/config"
	"github.com/deppfellow/stockroom/internal/database"
	"github.com/deppfellow/stockroom/internal/database/dbtest"
	"github.com/deppfellow/stockroom/internal/lib/job"
	"github.com/deppfellow/stockroom/internal/lib/password"
	"github.com/deppfellow/stockroom/internal/repository"
	"github.com/deppfellow/stockroom/internal/session"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, f.err
}

type fixture struct {
	auth      *AuthService
	connector *dbtest.Connector
	sessions  *session.Manager
	jobs      *fakeEnqueuer
	hash      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pool, connector := dbtest.NewPool(t, dbtest.Options())
	hasher := password.NewHasher(bcrypt.MinCost)
	store, err := repository.NewCredentialStore(database.NewExecutor(pool), hasher)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := session.NewManager(session.NewRedisStore(client), config.AuthConfig{SessionCookieName: "sid"})

	hash, err := hasher.Hash("Secret123")
	require.NoError(t, err)

	jobs := &fakeEnqueuer{}
	logger := zerolog.Nop()
	return &fixture{
		auth:      NewAuthService(store, sessions, jobs, &logger),
		connector: connector,
		sessions:  sessions,
		jobs:      jobs,
		hash:      hash,
	}
}

func (f *fixture) expectAccount(username string) {
	f.connector.Mock.ExpectBegin()
	f.connector.Mock.ExpectQuery(`SELECT id, username, password_hash, role_id FROM users WHERE username = \$1`).
		WithArgs(username).
		WillReturnRows(pgxmock.NewRows([]string{"id", "username", "password_hash", "role_id"}).
			AddRow(int64(7), username, f.hash, int64(1)))
	f.connector.Mock.ExpectCommit()
}

func (f *fixture) expectRole(id int64, name string) {
	f.connector.Mock.ExpectBegin()
	rows := pgxmock.NewRows([]string{"name"})
	if name != "" {
		rows.AddRow(name)
	}
	f.connector.Mock.ExpectQuery(`SELECT name FROM roles WHERE id = \$1`).WithArgs(id).WillReturnRows(rows)
	if name != "" {
		f.connector.Mock.ExpectCommit()
	} else {
		f.connector.Mock.ExpectRollback()
	}
}

func TestAuthService_Login(t *testing.T) {
	t.Run("Should issue a session carrying the role name", func(t *testing.T) {
		f := newFixture(t)
		f.expectAccount("alice")
		f.expectRole(1, "admin")

		rec := httptest.NewRecorder()
		c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/auth/login", nil), rec)

		sess, err := f.auth.Login(c, "alice", "Secret123")
		require.NoError(t, err)
		assert.Equal(t, session.Session{UserID: 7, DisplayName: "alice", RoleName: "admin"}, *sess)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(rec.Result().Cookies()[0])
		current, err := f.sessions.Current(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, sess, current)
	})

	t.Run("Should report an unknown role with the sentinel name", func(t *testing.T) {
		f := newFixture(t)
		f.expectAccount("alice")
		f.expectRole(1, "")

		c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())

		sess, err := f.auth.Login(c, "alice", "Secret123")
		require.NoError(t, err)
		assert.Equal(t, repository.UnknownRole, sess.RoleName)
	})

	t.Run("Should leave the caller anonymous on a wrong password", func(t *testing.T) {
		f := newFixture(t)
		f.expectAccount("alice")

		rec := httptest.NewRecorder()
		c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

		_, err := f.auth.Login(c, "alice", "nope")
		assert.ErrorIs(t, err, repository.ErrAuthenticationFailure)
		assert.Empty(t, rec.Result().Cookies())
	})
}

func TestAuthService_Logout(t *testing.T) {
	f := newFixture(t)
	login := httptest.NewRecorder()
	require.NoError(t, f.sessions.Issue(context.Background(), login, httptest.NewRequest(http.MethodPost, "/", nil),
		session.Session{UserID: 7}))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(login.Result().Cookies()[0])
	c := echo.New().NewContext(req, httptest.NewRecorder())

	require.NoError(t, f.auth.Logout(c))

	_, err := f.sessions.Current(context.Background(), req)
	assert.ErrorIs(t, err, session.ErrNoActiveSession)
}

func TestAuthService_Register(t *testing.T) {
	admin := &session.Session{UserID: 1, DisplayName: "root", RoleName: "admin"}

	expectRegister := func(f *fixture) {
		f.connector.Mock.ExpectBegin()
		f.connector.Mock.ExpectQuery(`SELECT id FROM users WHERE LOWER\(username\)`).
			WithArgs("jdoe", int64(0)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}))
		f.connector.Mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("jdoe", pgxmock.AnyArg(), int64(2)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(12)))
		f.connector.Mock.ExpectCommit()
	}

	t.Run("Should create the account and queue a notification", func(t *testing.T) {
		f := newFixture(t)
		expectRegister(f)
		f.expectRole(2, "seller")

		cred, err := f.auth.Register(context.Background(), admin, "jdoe", "Secret123", 2)

		require.NoError(t, err)
		assert.Equal(t, int64(12), cred.ID)
		require.Len(t, f.jobs.tasks, 1)
		assert.Equal(t, job.TaskAccountCreated, f.jobs.tasks[0].Type())
	})

	t.Run("Should keep the account when the queue is unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.jobs.err = errors.New("redis down")
		expectRegister(f)
		f.expectRole(2, "seller")

		cred, err := f.auth.Register(context.Background(), admin, "jdoe", "Secret123", 2)

		require.NoError(t, err)
		assert.Equal(t, int64(12), cred.ID)
	})

	t.Run("Should not queue anything for a duplicate", func(t *testing.T) {
		f := newFixture(t)
		f.connector.Mock.ExpectBegin()
		f.connector.Mock.ExpectQuery(`SELECT id FROM users WHERE LOWER\(username\)`).
			WithArgs("JDoe", int64(0)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(12)))
		f.connector.Mock.ExpectRollback()

		_, err := f.auth.Register(context.Background(), admin, "JDoe", "Secret123", 2)

		assert.ErrorIs(t, err, repository.ErrDuplicateCredential)
		assert.Empty(t, f.jobs.tasks)
	})
}

func TestAuthService_DeleteUser(t *testing.T) {
	f := newFixture(t)
	err := f.auth.DeleteUser(context.Background(), &session.Session{UserID: 7}, 7)
	assert.ErrorIs(t, err, ErrSelfDeletion)
}
