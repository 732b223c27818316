package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/timetable"
)

const (
	timetableColumns = "id, name, program, semester, academic_year, status, sessions, created_at, updated_at"
	commentColumns   = "id, timetable_id, author, text, created_at"
)

var timetableOrderings = map[string]string{
	"name":       "name",
	"program":    "program",
	"semester":   "semester",
	"status":     "status",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type (
	timetableRow struct {
		ID           string         `db:"id"`
		Name         string         `db:"name"`
		Program      string         `db:"program"`
		Semester     int            `db:"semester"`
		AcademicYear string         `db:"academic_year"`
		Status       string         `db:"status"`
		Sessions     types.JSONText `db:"sessions"`
		CreatedAt    time.Time      `db:"created_at"`
		UpdatedAt    time.Time      `db:"updated_at"`
	}

	commentRow struct {
		ID          string    `db:"id"`
		TimetableID string    `db:"timetable_id"`
		Author      string    `db:"author"`
		Text        string    `db:"text"`
		CreatedAt   time.Time `db:"created_at"`
	}
)

func newTimetableRow(tt timetable.Timetable) (timetableRow, error) {
	row := timetableRow{
		ID:           tt.ID,
		Name:         tt.Name,
		Program:      tt.Program,
		Semester:     tt.Semester,
		AcademicYear: tt.AcademicYear,
		Status:       tt.Status,
		CreatedAt:    tt.CreatedAt.UTC(),
		UpdatedAt:    tt.UpdatedAt.UTC(),
	}
	sessions := tt.Sessions
	if sessions == nil {
		sessions = []timetable.Session{}
	}
	var err error
	if row.Sessions, err = toJSON(sessions); err != nil {
		return timetableRow{}, err
	}
	return row, nil
}

func (row timetableRow) timetable() (timetable.Timetable, error) {
	tt := timetable.Timetable{
		ID:           row.ID,
		Name:         row.Name,
		Program:      row.Program,
		Semester:     row.Semester,
		AcademicYear: row.AcademicYear,
		Status:       row.Status,
		Comments:     []timetable.Comment{},
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if err := fromJSON(row.Sessions, &tt.Sessions); err != nil {
		return timetable.Timetable{}, errors.Wrap(err, "decoding timetable sessions")
	}
	return tt, nil
}

func (row commentRow) comment() timetable.Comment {
	return timetable.Comment{ID: row.ID, Author: row.Author, Text: row.Text, CreatedAt: row.CreatedAt.UTC()}
}

type timetableRepository struct {
	db *sqlx.DB
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *sqlx.DB) timetable.Repository {
	return &timetableRepository{db: db}
}

// loadComments attaches the comments of every timetable in tts, oldest first.
func (repo *timetableRepository) loadComments(ctx context.Context, tts []timetable.Timetable) error {
	if len(tts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tts))
	index := make(map[string]int, len(tts))
	for i, tt := range tts {
		ids = append(ids, tt.ID)
		index[tt.ID] = i
	}

	q, args, err := sqlx.In("SELECT "+commentColumns+" FROM timetable_comments WHERE timetable_id IN (?) ORDER BY created_at", ids)
	if err != nil {
		return err
	}
	var rows []commentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "querying timetable comments")
	}
	for _, row := range rows {
		if i, ok := index[row.TimetableID]; ok {
			tts[i].Comments = append(tts[i].Comments, row.comment())
		}
	}
	return nil
}

func (repo *timetableRepository) CreateTimetable(ctx context.Context, tt timetable.Timetable) (timetable.Timetable, error) {
	tt.ID = uuid.New().String()
	row, err := newTimetableRow(tt)
	if err != nil {
		return timetable.Timetable{}, err
	}
	q := `INSERT INTO timetables (` + timetableColumns + `)
		VALUES (:id, :name, :program, :semester, :academic_year, :status, :sessions, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return timetable.Timetable{}, errors.Wrap(err, "inserting timetable")
	}
	if tt.Comments == nil {
		tt.Comments = []timetable.Comment{}
	}
	return tt, nil
}

// QueryTimetables filters status, program and semester in SQL and returns the newest first by default.
func (repo *timetableRepository) QueryTimetables(ctx context.Context, filter *timetable.QueryFilter, ordering ...core.DBOrdering) ([]timetable.Timetable, error) {
	var w where
	if filter != nil {
		if filter.Status != "" {
			w.add("status = ?", filter.Status)
		}
		w.eqFold("program", filter.Program)
		if filter.Semester != 0 {
			w.add("semester = ?", filter.Semester)
		}
	}
	q := "SELECT " + timetableColumns + " FROM timetables" + w.String() +
		core.OrderByClause(core.AllowedOrderings(ordering, timetableOrderings), "created_at DESC")

	var rows []timetableRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying timetables")
	}
	tts := make([]timetable.Timetable, 0, len(rows))
	for _, row := range rows {
		tt, err := row.timetable()
		if err != nil {
			return nil, err
		}
		if filter.Match(tt) {
			tts = append(tts, tt)
		}
	}
	if err := repo.loadComments(ctx, tts); err != nil {
		return nil, err
	}
	return tts, nil
}

func (repo *timetableRepository) GetTimetable(ctx context.Context, id string) (timetable.Timetable, error) {
	if !validID(id) {
		return timetable.Timetable{}, timetable.ErrNotFound
	}
	var row timetableRow
	q := repo.db.Rebind("SELECT " + timetableColumns + " FROM timetables WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return timetable.Timetable{}, trapNoRowsErr(err, timetable.ErrNotFound, "getting timetable")
	}
	tt, err := row.timetable()
	if err != nil {
		return timetable.Timetable{}, err
	}
	tts := []timetable.Timetable{tt}
	if err := repo.loadComments(ctx, tts); err != nil {
		return timetable.Timetable{}, err
	}
	return tts[0], nil
}

func (repo *timetableRepository) UpdateTimetable(ctx context.Context, tt timetable.Timetable) (timetable.Timetable, error) {
	if !validID(tt.ID) {
		return timetable.Timetable{}, timetable.ErrNotFound
	}
	row, err := newTimetableRow(tt)
	if err != nil {
		return timetable.Timetable{}, err
	}
	q := `UPDATE timetables SET name = :name, program = :program, semester = :semester,
		academic_year = :academic_year, status = :status, sessions = :sessions, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return timetable.Timetable{}, errors.Wrap(err, "updating timetable")
	}
	if err := checkAffected(res, timetable.ErrNotFound); err != nil {
		return timetable.Timetable{}, err
	}
	return repo.GetTimetable(ctx, tt.ID)
}

// AddTimetableComment inserts the comment and bumps updated_at in one transaction.
func (repo *timetableRepository) AddTimetableComment(ctx context.Context, id string, c timetable.Comment) (timetable.Timetable, error) {
	if !validID(id) {
		return timetable.Timetable{}, timetable.ErrNotFound
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return timetable.Timetable{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE timetables SET updated_at = ? WHERE id = ?"), c.CreatedAt.UTC(), id)
	if err != nil {
		return timetable.Timetable{}, errors.Wrap(err, "updating timetable")
	}
	if err := checkAffected(res, timetable.ErrNotFound); err != nil {
		return timetable.Timetable{}, err
	}

	row := commentRow{ID: c.ID, TimetableID: id, Author: c.Author, Text: c.Text, CreatedAt: c.CreatedAt.UTC()}
	q := `INSERT INTO timetable_comments (` + commentColumns + `) VALUES (:id, :timetable_id, :author, :text, :created_at)`
	if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
		return timetable.Timetable{}, errors.Wrap(err, "inserting timetable comment")
	}
	if err := tx.Commit(); err != nil {
		return timetable.Timetable{}, errors.Wrap(err, "committing timetable comment")
	}
	return repo.GetTimetable(ctx, id)
}

func (repo *timetableRepository) DeleteTimetable(ctx context.Context, id string) error {
	if !validID(id) {
		return timetable.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM timetables WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting timetable")
	}
	return checkAffected(res, timetable.ErrNotFound)
}
