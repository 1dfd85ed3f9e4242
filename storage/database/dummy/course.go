package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.New().String()
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(ctx context.Context, activeOnly bool, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var courses []course.Course
	for _, crs := range repo.db.table {
		if activeOnly && !crs.IsActive {
			continue
		}
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.Before(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) UpdateCourseActive(ctx context.Context, id string, isActive bool, updatedAt time.Time, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.table[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	crs.IsActive = isActive
	crs.UpdatedAt = updatedAt.UTC()
	return *crs, nil
}
