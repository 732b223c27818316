package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/teacher"
)

const teacherColumns = "id, name, email, phone, department, designation, qualification, experience, subjects, " +
	"max_hours_per_week, availability, priority, status, created_at, updated_at"

var teacherOrderings = map[string]string{
	"name":               "name",
	"department":         "department",
	"experience":         "experience",
	"max_hours_per_week": "max_hours_per_week",
	"created_at":         "created_at",
}

type teacherRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Email           string         `db:"email"`
	Phone           string         `db:"phone"`
	Department      string         `db:"department"`
	Designation     string         `db:"designation"`
	Qualification   string         `db:"qualification"`
	Experience      int            `db:"experience"`
	Subjects        types.JSONText `db:"subjects"`
	MaxHoursPerWeek int            `db:"max_hours_per_week"`
	Availability    types.JSONText `db:"availability"`
	Priority        string         `db:"priority"`
	Status          string         `db:"status"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func newTeacherRow(t teacher.Teacher) (teacherRow, error) {
	row := teacherRow{
		ID:              t.ID,
		Name:            t.Name,
		Email:           t.Email,
		Phone:           t.Phone,
		Department:      t.Department,
		Designation:     t.Designation,
		Qualification:   t.Qualification,
		Experience:      t.Experience,
		MaxHoursPerWeek: t.MaxHoursPerWeek,
		Priority:        t.Priority,
		Status:          t.Status,
		CreatedAt:       t.CreatedAt.UTC(),
		UpdatedAt:       t.UpdatedAt.UTC(),
	}
	var err error
	if row.Subjects, err = toJSON(nonNilStrings(t.Subjects)); err != nil {
		return teacherRow{}, err
	}
	if row.Availability, err = toJSON(t.Availability); err != nil {
		return teacherRow{}, err
	}
	return row, nil
}

func (row teacherRow) teacher() (teacher.Teacher, error) {
	t := teacher.Teacher{
		ID:              row.ID,
		Name:            row.Name,
		Email:           row.Email,
		Phone:           row.Phone,
		Department:      row.Department,
		Designation:     row.Designation,
		Qualification:   row.Qualification,
		Experience:      row.Experience,
		MaxHoursPerWeek: row.MaxHoursPerWeek,
		Priority:        row.Priority,
		Status:          row.Status,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if err := fromJSON(row.Subjects, &t.Subjects); err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "decoding teacher subjects")
	}
	if err := fromJSON(row.Availability, &t.Availability); err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "decoding teacher availability")
	}
	return t, nil
}

type teacherRepository struct {
	db *sqlx.DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) teacher.Repository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	var w where
	w.add("LOWER(email) = LOWER(?)", email)
	if err := w.notIn("id", excludedIDs); err != nil {
		return err
	}
	found, err := exists(ctx, repo.db, "teachers", w)
	if err != nil {
		return errors.Wrap(err, "checking teacher uniqueness")
	}
	if found {
		return teacher.ErrEmailExists
	}
	return nil
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	t.ID = uuid.New().String()
	row, err := newTeacherRow(t)
	if err != nil {
		return teacher.Teacher{}, err
	}
	q := `INSERT INTO teachers (` + teacherColumns + `)
		VALUES (:id, :name, :email, :phone, :department, :designation, :qualification, :experience, :subjects,
			:max_hours_per_week, :availability, :priority, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return t, nil
}

// QueryTeachers filters department, status and priority in SQL; day availability and search are matched
// on the decoded rows.
func (repo *teacherRepository) QueryTeachers(ctx context.Context, filter *teacher.QueryFilter, ordering ...core.DBOrdering) ([]teacher.Teacher, error) {
	var w where
	if filter != nil {
		w.eqFold("department", filter.Department)
		w.eqFold("status", filter.Status)
		if filter.Priority != "" {
			w.add("priority = ?", filter.Priority)
		}
	}
	q := "SELECT " + teacherColumns + " FROM teachers" + w.String() +
		core.OrderByClause(core.AllowedOrderings(ordering, teacherOrderings), "name")

	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]teacher.Teacher, 0, len(rows))
	for _, row := range rows {
		t, err := row.teacher()
		if err != nil {
			return nil, err
		}
		if filter.Match(t) {
			teachers = append(teachers, t)
		}
	}
	return teachers, nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, id string) (teacher.Teacher, error) {
	if !validID(id) {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	var row teacherRow
	q := repo.db.Rebind("SELECT " + teacherColumns + " FROM teachers WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return teacher.Teacher{}, trapNoRowsErr(err, teacher.ErrNotFound, "getting teacher")
	}
	return row.teacher()
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	if !validID(t.ID) {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	row, err := newTeacherRow(t)
	if err != nil {
		return teacher.Teacher{}, err
	}
	q := `UPDATE teachers SET name = :name, email = :email, phone = :phone, department = :department,
		designation = :designation, qualification = :qualification, experience = :experience, subjects = :subjects,
		max_hours_per_week = :max_hours_per_week, availability = :availability, priority = :priority,
		status = :status, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if err := checkAffected(res, teacher.ErrNotFound); err != nil {
		return teacher.Teacher{}, err
	}
	return t, nil
}

func (repo *teacherRepository) DeleteTeacher(ctx context.Context, id string) error {
	if !validID(id) {
		return teacher.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM teachers WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return checkAffected(res, teacher.ErrNotFound)
}
