package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
)

type courseRepository struct {
	db *table[course.Course]
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CheckCodeUniqueness(_ context.Context, code string, excludedIDs ...string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.all() {
		if strings.EqualFold(c.Code, code) && !isExcluded(c.ID, excludedIDs) {
			return course.ErrCodeExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = newID()
	repo.db.insert(c.ID, c.Clone())
	return c, nil
}

// QueryCourses orders by code; custom orderings are not supported.
func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, _ ...core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.rows))
	for _, c := range repo.db.all() {
		if filter.Match(c) {
			courses = append(courses, c.Clone())
		}
	}
	sortBy(courses, func(c course.Course) string { return c.Code })
	return courses, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.rows[id]; ok {
		return c.Clone(), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[c.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.rows[c.ID] = c.Clone()
	return c, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.remove(id) {
		return course.ErrNotFound
	}
	return nil
}
