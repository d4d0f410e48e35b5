package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/stockroom/internal/database"
	"github.com/deppfellow/stockroom/internal/lib/password"
)

var (
	// ErrDuplicateCredential is returned when a username is already taken,
	// compared case-insensitively.
	ErrDuplicateCredential = errors.New("username already registered")

	// ErrAuthenticationFailure covers both an unknown username and a wrong
	// password so callers cannot tell them apart.
	ErrAuthenticationFailure = errors.New("invalid username or password")
)

// UnknownRole is the name reported for a role id with no matching row.
const UnknownRole = "Unknown"

// Credential is a stored account.
type Credential struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
	RoleID       int64  `db:"role_id" json:"role_id"`
}

type Role struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// CredentialStore persists accounts and verifies passwords.
type CredentialStore struct {
	exec   *database.Executor
	hasher *password.Hasher

	// dummyHash is compared against when the username does not exist.
	dummyHash string
}

func NewCredentialStore(exec *database.Executor, hasher *password.Hasher) (*CredentialStore, error) {
	dummy, err := hasher.Hash("stockroom-dummy-password")
	if err != nil {
		return nil, err
	}
	return &CredentialStore{exec: exec, hasher: hasher, dummyHash: dummy}, nil
}

const (
	selectCredential = `SELECT id, username, password_hash, role_id FROM users`

	usernameTaken = `SELECT id FROM users WHERE LOWER(username) = LOWER($1) AND id <> $2`
)

// Register stores a new account and returns its id. The duplicate check and
// the insert run in one transaction.
func (s *CredentialStore) Register(ctx context.Context, username, plaintext string, roleID int64) (int64, error) {
	hash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.exec.WithTx(ctx, func(scope *database.Scope) error {
		if err := ensureUsernameFree(ctx, scope, username, 0); err != nil {
			return err
		}
		return scope.ExecuteReturning(ctx, &id,
			`INSERT INTO users (username, password_hash, role_id) VALUES ($1, $2, $3) RETURNING id`,
			username, hash, roleID)
	})
	if isUniqueViolation(err) {
		return 0, ErrDuplicateCredential
	}
	if err != nil {
		return 0, fmt.Errorf("registering %q: %w", username, err)
	}
	return id, nil
}

func ensureUsernameFree(ctx context.Context, scope *database.Scope, username string, exceptID int64) error {
	var existing int64
	err := scope.FetchOne(ctx, &existing, usernameTaken, username, exceptID)
	switch {
	case err == nil:
		return ErrDuplicateCredential
	case errors.Is(err, database.ErrNotFound):
		return nil
	default:
		return err
	}
}

// FindByUsername looks up an account by exact username.
func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*Credential, error) {
	var cred Credential
	if err := s.exec.FetchOne(ctx, &cred, selectCredential+` WHERE username = $1`, username); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *CredentialStore) FindByID(ctx context.Context, id int64) (*Credential, error) {
	var cred Credential
	if err := s.exec.FetchOne(ctx, &cred, selectCredential+` WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &cred, nil
}

// Authenticate returns the account when plaintext matches its hash. Unknown
// usernames still pay for one bcrypt comparison.
func (s *CredentialStore) Authenticate(ctx context.Context, username, plaintext string) (*Credential, error) {
	cred, err := s.FindByUsername(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		_ = s.hasher.Verify(s.dummyHash, plaintext)
		return nil, ErrAuthenticationFailure
	}
	if err != nil {
		return nil, err
	}

	if err := s.hasher.Verify(cred.PasswordHash, plaintext); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, ErrAuthenticationFailure
		}
		return nil, err
	}
	return cred, nil
}

// UpdateIdentity changes the username and role of an account. The new
// username must not collide with any other account, ignoring case.
func (s *CredentialStore) UpdateIdentity(ctx context.Context, id int64, username string, roleID int64) error {
	err := s.exec.WithTx(ctx, func(scope *database.Scope) error {
		if err := ensureUsernameFree(ctx, scope, username, id); err != nil {
			return err
		}
		affected, err := scope.Execute(ctx,
			`UPDATE users SET username = $1, role_id = $2 WHERE id = $3`, username, roleID, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return database.ErrNotFound
		}
		return nil
	})
	if isUniqueViolation(err) {
		return ErrDuplicateCredential
	}
	return err
}

func (s *CredentialStore) Delete(ctx context.Context, id int64) error {
	affected, err := s.exec.Execute(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ResolveRoleName returns the role name for roleID, or UnknownRole when no
// role has that id.
func (s *CredentialStore) ResolveRoleName(ctx context.Context, roleID int64) (string, error) {
	var name string
	err := s.exec.FetchOne(ctx, &name, `SELECT name FROM roles WHERE id = $1`, roleID)
	if errors.Is(err, database.ErrNotFound) {
		return UnknownRole, nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// List returns every account with its role name, ordered by id.
func (s *CredentialStore) List(ctx context.Context) ([]map[string]any, error) {
	return s.exec.FetchMapped(ctx, `
		SELECT u.id, u.username, u.role_id, COALESCE(r.name, $1) AS role
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		ORDER BY u.id`, UnknownRole)
}

func (s *CredentialStore) Roles(ctx context.Context) ([]Role, error) {
	var roles []Role
	if err := s.exec.FetchAll(ctx, &roles, `SELECT id, name FROM roles ORDER BY id`); err != nil {
		return nil, err
	}
	return roles, nil
}
