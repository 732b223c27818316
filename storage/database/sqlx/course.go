package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
)

const courseColumns = "id, name, code, program, department, semester, credits, type, hours_per_week, has_lab, " +
	"lab_hours, prerequisites, description, status, created_at, updated_at"

var courseOrderings = map[string]string{
	"name":       "name",
	"code":       "code",
	"program":    "program",
	"semester":   "semester",
	"credits":    "credits",
	"created_at": "created_at",
}

type courseRow struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	Code          string         `db:"code"`
	Program       string         `db:"program"`
	Department    string         `db:"department"`
	Semester      int            `db:"semester"`
	Credits       int            `db:"credits"`
	Type          string         `db:"type"`
	HoursPerWeek  int            `db:"hours_per_week"`
	HasLab        bool           `db:"has_lab"`
	LabHours      null.Int       `db:"lab_hours"`
	Prerequisites types.JSONText `db:"prerequisites"`
	Description   string         `db:"description"`
	Status        string         `db:"status"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func newCourseRow(c course.Course) (courseRow, error) {
	row := courseRow{
		ID:           c.ID,
		Name:         c.Name,
		Code:         c.Code,
		Program:      c.Program,
		Department:   c.Department,
		Semester:     c.Semester,
		Credits:      c.Credits,
		Type:         c.Type,
		HoursPerWeek: c.HoursPerWeek,
		HasLab:       c.HasLab,
		LabHours:     null.NewInt(c.LabHours, c.HasLab),
		Description:  c.Description,
		Status:       c.Status,
		CreatedAt:    c.CreatedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
	}
	var err error
	if row.Prerequisites, err = toJSON(nonNilStrings(c.Prerequisites)); err != nil {
		return courseRow{}, err
	}
	return row, nil
}

func (row courseRow) course() (course.Course, error) {
	c := course.Course{
		ID:           row.ID,
		Name:         row.Name,
		Code:         row.Code,
		Program:      row.Program,
		Department:   row.Department,
		Semester:     row.Semester,
		Credits:      row.Credits,
		Type:         row.Type,
		HoursPerWeek: row.HoursPerWeek,
		HasLab:       row.HasLab,
		LabHours:     row.LabHours.Int,
		Description:  row.Description,
		Status:       row.Status,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if err := fromJSON(row.Prerequisites, &c.Prerequisites); err != nil {
		return course.Course{}, errors.Wrap(err, "decoding course prerequisites")
	}
	return c, nil
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error {
	var w where
	w.add("UPPER(code) = UPPER(?)", code)
	if err := w.notIn("id", excludedIDs); err != nil {
		return err
	}
	found, err := exists(ctx, repo.db, "courses", w)
	if err != nil {
		return errors.Wrap(err, "checking course uniqueness")
	}
	if found {
		return course.ErrCodeExists
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.New().String()
	row, err := newCourseRow(c)
	if err != nil {
		return course.Course{}, err
	}
	q := `INSERT INTO courses (` + courseColumns + `)
		VALUES (:id, :name, :code, :program, :department, :semester, :credits, :type, :hours_per_week, :has_lab,
			:lab_hours, :prerequisites, :description, :status, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

// QueryCourses filters program, semester, type and status in SQL; search is matched on the decoded rows.
func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	var w where
	if filter != nil {
		w.eqFold("program", filter.Program)
		w.eqFold("type", filter.Type)
		w.eqFold("status", filter.Status)
		if filter.Semester != 0 {
			w.add("semester = ?", filter.Semester)
		}
	}
	q := "SELECT " + courseColumns + " FROM courses" + w.String() +
		core.OrderByClause(core.AllowedOrderings(ordering, courseOrderings), "code")

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		c, err := row.course()
		if err != nil {
			return nil, err
		}
		if filter.Match(c) {
			courses = append(courses, c)
		}
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	q := repo.db.Rebind("SELECT " + courseColumns + " FROM courses WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	return row.course()
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	if !validID(c.ID) {
		return course.Course{}, course.ErrNotFound
	}
	row, err := newCourseRow(c)
	if err != nil {
		return course.Course{}, err
	}
	q := `UPDATE courses SET name = :name, code = :code, program = :program, department = :department,
		semester = :semester, credits = :credits, type = :type, hours_per_week = :hours_per_week, has_lab = :has_lab,
		lab_hours = :lab_hours, prerequisites = :prerequisites, description = :description, status = :status,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if err := checkAffected(res, course.ErrNotFound); err != nil {
		return course.Course{}, err
	}
	return c, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM courses WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return checkAffected(res, course.ErrNotFound)
}
