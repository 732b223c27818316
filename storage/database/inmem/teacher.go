package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/teacher"
)

type teacherRepository struct {
	db *table[teacher.Teacher]
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *DB) teacher.Repository {
	return &teacherRepository{db: db.teacher}
}

func (repo *teacherRepository) CheckEmailUniqueness(_ context.Context, email string, excludedIDs ...string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.db.all() {
		if strings.EqualFold(t.Email, email) && !isExcluded(t.ID, excludedIDs) {
			return teacher.ErrEmailExists
		}
	}
	return nil
}

func (repo *teacherRepository) CreateTeacher(_ context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = newID()
	repo.db.insert(t.ID, t.Clone())
	return t, nil
}

// QueryTeachers orders by name; custom orderings are not supported.
func (repo *teacherRepository) QueryTeachers(_ context.Context, filter *teacher.QueryFilter, _ ...core.DBOrdering) ([]teacher.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	teachers := make([]teacher.Teacher, 0, len(repo.db.rows))
	for _, t := range repo.db.all() {
		if filter.Match(t) {
			teachers = append(teachers, t.Clone())
		}
	}
	sortBy(teachers, func(t teacher.Teacher) string { return strings.ToLower(t.Name) })
	return teachers, nil
}

func (repo *teacherRepository) GetTeacher(_ context.Context, id string) (teacher.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.rows[id]; ok {
		return t.Clone(), nil
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) UpdateTeacher(_ context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[t.ID]; !ok {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	repo.db.rows[t.ID] = t.Clone()
	return t, nil
}

func (repo *teacherRepository) DeleteTeacher(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.remove(id) {
		return teacher.ErrNotFound
	}
	return nil
}
