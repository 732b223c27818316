package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/room"
)

type roomRepository struct {
	db *table[room.Room]
}

var _ room.Repository = (*roomRepository)(nil) // interface compliance check

func NewRoomRepository(db *DB) room.Repository {
	return &roomRepository{db: db.room}
}

func (repo *roomRepository) CheckNameUniqueness(_ context.Context, name, building string, excludedIDs ...string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, r := range repo.db.all() {
		if strings.EqualFold(r.Name, name) && strings.EqualFold(r.Building, building) && !isExcluded(r.ID, excludedIDs) {
			return room.ErrNameExists
		}
	}
	return nil
}

func (repo *roomRepository) CreateRoom(_ context.Context, r room.Room) (room.Room, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	r.ID = newID()
	repo.db.insert(r.ID, r.Clone())
	return r, nil
}

// QueryRooms orders by building then name; custom orderings are not supported.
func (repo *roomRepository) QueryRooms(_ context.Context, filter *room.QueryFilter, _ ...core.DBOrdering) ([]room.Room, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rooms := make([]room.Room, 0, len(repo.db.rows))
	for _, r := range repo.db.all() {
		if filter.Match(r) {
			rooms = append(rooms, r.Clone())
		}
	}
	sortBy(rooms, func(r room.Room) string { return strings.ToLower(r.Building + "\x00" + r.Name) })
	return rooms, nil
}

func (repo *roomRepository) GetRoom(_ context.Context, id string) (room.Room, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.rows[id]; ok {
		return r.Clone(), nil
	}
	return room.Room{}, room.ErrNotFound
}

func (repo *roomRepository) UpdateRoom(_ context.Context, r room.Room) (room.Room, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[r.ID]; !ok {
		return room.Room{}, room.ErrNotFound
	}
	repo.db.rows[r.ID] = r.Clone()
	return r, nil
}

func (repo *roomRepository) DeleteRoom(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if !repo.db.remove(id) {
		return room.ErrNotFound
	}
	return nil
}
