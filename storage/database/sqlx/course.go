package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/course"
)

type courseRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Duration    string         `db:"duration"`
	Price       float64        `db:"price"`
	Modules     pq.StringArray `db:"modules"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

const courseColumns = `id, title, description, duration, price, modules, is_active, created_at, updated_at`

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo courseRepository) toRow(crs course.Course) courseRow {
	return courseRow{
		ID:          crs.ID,
		Title:       crs.Title,
		Description: crs.Description,
		Duration:    crs.Duration,
		Price:       crs.Price,
		Modules:     pq.StringArray(crs.Modules),
		IsActive:    crs.IsActive,
		CreatedAt:   crs.CreatedAt.UTC(),
		UpdatedAt:   crs.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) fromRow(row courseRow) course.Course {
	return course.Course{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Duration:    row.Duration,
		Price:       row.Price,
		Modules:     []string(row.Modules),
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	crs.ID = uuid.New().String()
	row := repo.toRow(crs)

	query := `INSERT INTO course (` + courseColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.getExec(exec).ExecContext(ctx, query,
		row.ID, row.Title, row.Description, row.Duration, row.Price, row.Modules,
		row.IsActive, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.fromRow(row), nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}

	var row courseRow
	query := `SELECT ` + courseColumns + ` FROM course WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &row, query, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "finding course by ID")
	}
	return repo.fromRow(row), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM course`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY created_at`

	var rows []courseRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.fromRow(row))
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourseActive(ctx context.Context, id string, isActive bool, updatedAt time.Time, exec ...core.DBExecutor) (course.Course, error) {
	var row courseRow
	query := `UPDATE course SET is_active = $1, updated_at = $2 WHERE id = $3 RETURNING ` + courseColumns
	if err := repo.getExec(exec).GetContext(ctx, &row, query, isActive, updatedAt.UTC(), id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "updating course active flag")
	}
	return repo.fromRow(row), nil
}
