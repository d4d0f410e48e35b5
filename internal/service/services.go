package service

import (
	"github.com/deppfellow/stockroom/internal/lib/job"
	"github.com/deppfellow/stockroom/internal/repository"
	"github.com/deppfellow/stockroom/internal/server"
)

type Services struct {
	Auth    *AuthService
	Catalog *CatalogService
	Job     *job.JobService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	var jobs Enqueuer
	if s.Job != nil {
		jobs = s.Job.Client
	}

	return &Services{
		Auth:    NewAuthService(repos.Credentials, s.Sessions, jobs, s.Logger),
		Catalog: NewCatalogService(repos.Categories, repos.Products),
		Job:     s.Job,
	}, nil
}
