package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/akademyx/admissions/core"
)

var ErrNotFound = errors.New("course not found")

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]Course, error)
		// UpdateCourseActive patches isActive and updatedAt only.
		UpdateCourseActive(ctx context.Context, id string, isActive bool, updatedAt time.Time, exec ...core.DBExecutor) (Course, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Create publishes a new Course in the catalog. New courses are active right away.
func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		Duration:    nc.Duration,
		Price:       nc.Price,
		Modules:     nc.Modules,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	crs, err := svc.repo.CreateCourse(ctx, crs)
	if err != nil {
		return Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

// ListActive serves the public catalog: active courses only.
func (svc *Service) ListActive(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, true)
}

// SetActive retires or republishes a catalog entry.
func (svc *Service) SetActive(ctx context.Context, id string, isActive bool) (Course, error) {
	return svc.repo.UpdateCourseActive(ctx, id, isActive, time.Now().UTC())
}
