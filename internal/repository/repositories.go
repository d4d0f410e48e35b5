package repository

import (
	"github.com/deppfellow/stockroom/internal/database"
	"github.com/deppfellow/stockroom/internal/lib/password"
	"github.com/deppfellow/stockroom/internal/server"
)

// Repositories groups every repository built on the server's executor.
type Repositories struct {
	Credentials *CredentialStore
	Categories  *CategoryRepository
	Products    *ProductRepository
}

func NewRepositories(s *server.Server) (*Repositories, error) {
	exec := database.NewExecutor(s.DB)

	credentials, err := NewCredentialStore(exec, password.NewHasher(s.Config.Auth.BcryptCost))
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Credentials: credentials,
		Categories:  NewCategoryRepository(exec),
		Products:    NewProductRepository(exec),
	}, nil
}
