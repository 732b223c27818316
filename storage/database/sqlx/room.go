package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/room"
)

const roomColumns = "id, name, building, floor, type, capacity, features, availability, status, created_at, updated_at"

var roomOrderings = map[string]string{
	"name":       "name",
	"building":   "building",
	"floor":      "floor",
	"capacity":   "capacity",
	"created_at": "created_at",
}

type roomRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Building     string         `db:"building"`
	Floor        int            `db:"floor"`
	Type         string         `db:"type"`
	Capacity     int            `db:"capacity"`
	Features     types.JSONText `db:"features"`
	Availability types.JSONText `db:"availability"`
	Status       string         `db:"status"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func newRoomRow(r room.Room) (roomRow, error) {
	row := roomRow{
		ID:        r.ID,
		Name:      r.Name,
		Building:  r.Building,
		Floor:     r.Floor,
		Type:      r.Type,
		Capacity:  r.Capacity,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	var err error
	if row.Features, err = toJSON(nonNilStrings(r.Features)); err != nil {
		return roomRow{}, err
	}
	if row.Availability, err = toJSON(r.Availability); err != nil {
		return roomRow{}, err
	}
	return row, nil
}

func (row roomRow) room() (room.Room, error) {
	r := room.Room{
		ID:        row.ID,
		Name:      row.Name,
		Building:  row.Building,
		Floor:     row.Floor,
		Type:      row.Type,
		Capacity:  row.Capacity,
		Status:    row.Status,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if err := fromJSON(row.Features, &r.Features); err != nil {
		return room.Room{}, errors.Wrap(err, "decoding room features")
	}
	if err := fromJSON(row.Availability, &r.Availability); err != nil {
		return room.Room{}, errors.Wrap(err, "decoding room availability")
	}
	return r, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type roomRepository struct {
	db *sqlx.DB
}

var _ room.Repository = (*roomRepository)(nil) // interface compliance check

func NewRoomRepository(db *sqlx.DB) room.Repository {
	return &roomRepository{db: db}
}

func (repo *roomRepository) CheckNameUniqueness(ctx context.Context, name, building string, excludedIDs ...string) error {
	var w where
	w.add("LOWER(name) = LOWER(?)", name)
	w.add("LOWER(building) = LOWER(?)", building)
	if err := w.notIn("id", excludedIDs); err != nil {
		return err
	}
	found, err := exists(ctx, repo.db, "rooms", w)
	if err != nil {
		return errors.Wrap(err, "checking room uniqueness")
	}
	if found {
		return room.ErrNameExists
	}
	return nil
}

func (repo *roomRepository) CreateRoom(ctx context.Context, r room.Room) (room.Room, error) {
	r.ID = uuid.New().String()
	row, err := newRoomRow(r)
	if err != nil {
		return room.Room{}, err
	}
	q := `INSERT INTO rooms (` + roomColumns + `)
		VALUES (:id, :name, :building, :floor, :type, :capacity, :features, :availability, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return room.Room{}, errors.Wrap(err, "inserting room")
	}
	return r, nil
}

// QueryRooms filters building, type and status in SQL; day availability and search are matched on the
// decoded rows.
func (repo *roomRepository) QueryRooms(ctx context.Context, filter *room.QueryFilter, ordering ...core.DBOrdering) ([]room.Room, error) {
	var w where
	if filter != nil {
		w.eqFold("building", filter.Building)
		w.eqFold("type", filter.Type)
		w.eqFold("status", filter.Status)
	}
	q := "SELECT " + roomColumns + " FROM rooms" + w.String() +
		core.OrderByClause(core.AllowedOrderings(ordering, roomOrderings), "building, name")

	var rows []roomRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying rooms")
	}
	rooms := make([]room.Room, 0, len(rows))
	for _, row := range rows {
		r, err := row.room()
		if err != nil {
			return nil, err
		}
		if filter.Match(r) {
			rooms = append(rooms, r)
		}
	}
	return rooms, nil
}

func (repo *roomRepository) GetRoom(ctx context.Context, id string) (room.Room, error) {
	if !validID(id) {
		return room.Room{}, room.ErrNotFound
	}
	var row roomRow
	q := repo.db.Rebind("SELECT " + roomColumns + " FROM rooms WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return room.Room{}, trapNoRowsErr(err, room.ErrNotFound, "getting room")
	}
	return row.room()
}

func (repo *roomRepository) UpdateRoom(ctx context.Context, r room.Room) (room.Room, error) {
	if !validID(r.ID) {
		return room.Room{}, room.ErrNotFound
	}
	row, err := newRoomRow(r)
	if err != nil {
		return room.Room{}, err
	}
	q := `UPDATE rooms SET name = :name, building = :building, floor = :floor, type = :type, capacity = :capacity,
		features = :features, availability = :availability, status = :status, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return room.Room{}, errors.Wrap(err, "updating room")
	}
	if err := checkAffected(res, room.ErrNotFound); err != nil {
		return room.Room{}, err
	}
	return r, nil
}

func (repo *roomRepository) DeleteRoom(ctx context.Context, id string) error {
	if !validID(id) {
		return room.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM rooms WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting room")
	}
	return checkAffected(res, room.ErrNotFound)
}
