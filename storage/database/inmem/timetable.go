package inmemdb

import (
	"context"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/timetable"
)

type timetableRepository struct {
	db *table[timetable.Timetable]
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *DB) timetable.Repository {
	return &timetableRepository{db: db.timetable}
}

func (repo *timetableRepository) CreateTimetable(_ context.Context, tt timetable.Timetable) (timetable.Timetable, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	tt.ID = newID()
	if tt.Comments == nil {
		tt.Comments = []timetable.Comment{}
	}
	repo.db.insert(tt.ID, tt.Clone())
	return tt, nil
}

// QueryTimetables returns the newest first; custom orderings are not supported.
func (repo *timetableRepository) QueryTimetables(_ context.Context, filter *timetable.QueryFilter, _ ...core.DBOrdering) ([]timetable.Timetable, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	all := repo.db.all()
	tts := make([]timetable.Timetable, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if filter.Match(all[i]) {
			tts = append(tts, all[i].Clone())
		}
	}
	return tts, nil
}

func (repo *timetableRepository) GetTimetable(_ context.Context, id string) (timetable.Timetable, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if tt, ok := repo.db.rows[id]; ok {
		return tt.Clone(), nil
	}
	return timetable.Timetable{}, timetable.ErrNotFound
}

func (repo *timetableRepository) UpdateTimetable(_ context.Context, tt timetable.Timetable) (timetable.Timetable, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[tt.ID]
	if !ok {
		return timetable.Timetable{}, timetable.ErrNotFound
	}
	tt.Comments = orig.Comments
	repo.db.rows[tt.ID] = tt.Clone()
	return tt.Clone(), nil
}

func (repo *timetableRepository) AddTimetableComment(_ context.Context, id string, c timetable.Comment) (timetable.Timetable, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	tt, ok := repo.db.rows[id]
	if !ok {
		return timetable.Timetable{}, timetable.ErrNotFound
	}
	tt = tt.Clone()
	tt.Comments = append(tt.Comments, c)
	tt.UpdatedAt = c.CreatedAt
	repo.db.rows[id] = tt
	return tt.Clone(), nil
}

func (repo *timetableRepository) DeleteTimetable(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.remove(id) {
		return timetable.ErrNotFound
	}
	return nil
}
