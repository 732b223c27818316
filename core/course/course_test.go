package course_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/crud"
	inmemdb "github.com/trezcool/ratiba/storage/database/inmem"
)

func newService() *course.Service {
	validate, translator := core.NewValidator()
	return course.NewService(inmemdb.NewCourseRepository(inmemdb.Open()), validate, translator)
}

func newCourse(code, name, program string, semester int) course.Course {
	c := course.Template()
	c.Code = code
	c.Name = name
	c.Program = program
	c.Semester = semester
	return c
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "want a validation error, got %v", err)
	return vErr.FieldMap()
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	got, err := svc.Create(ctx, newCourse(" cs101 ", "Intro to Programming", "BSc Computer Science", 1))
	require.NoError(t, err)
	assert.Equal(t, "CS101", got.Code)
	assert.NotEmpty(t, got.ID)

	tests := []struct {
		name      string
		course    func() course.Course
		wantField string
	}{
		{
			name:      "duplicate code",
			course:    func() course.Course { return newCourse("Cs101", "Other", "BSc Computer Science", 1) },
			wantField: "code",
		},
		{
			name:      "blank code",
			course:    func() course.Course { return newCourse("", "Other", "BSc Computer Science", 1) },
			wantField: "code",
		},
		{
			name:      "semester too low",
			course:    func() course.Course { return newCourse("CS100", "X", "BSc Computer Science", 0) },
			wantField: "semester",
		},
		{
			name:      "semester too high",
			course:    func() course.Course { return newCourse("CS100", "X", "BSc Computer Science", 13) },
			wantField: "semester",
		},
		{
			name: "lab without hours",
			course: func() course.Course {
				c := newCourse("CS102", "Data Structures", "BSc Computer Science", 2)
				c.HasLab = true
				return c
			},
			wantField: "lab_hours",
		},
		{
			name: "own prerequisite",
			course: func() course.Course {
				c := newCourse("CS201", "Algorithms", "BSc Computer Science", 3)
				c.Prerequisites = []string{"cs101", "cs201"}
				return c
			},
			wantField: "prerequisites",
		},
		{
			name: "unknown type",
			course: func() course.Course {
				c := newCourse("CS202", "Networks", "BSc Computer Science", 3)
				c.Type = "Seminar"
				return c
			},
			wantField: "type",
		},
		{
			name: "zero credits",
			course: func() course.Course {
				c := newCourse("CS203", "Networks", "BSc Computer Science", 3)
				c.Credits = 0
				return c
			},
			wantField: "credits",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.course())
			assert.Contains(t, fieldErrors(t, err), tt.wantField)
		})
	}

	t.Run("lab hours dropped without a lab", func(t *testing.T) {
		c := newCourse("CS104", "Discrete Maths", "BSc Computer Science", 1)
		c.LabHours = 4
		got, err := svc.Create(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, 0, got.LabHours)
		assert.Equal(t, 3, got.TotalHours())
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	a, err := svc.Create(ctx, newCourse("MA101", "Calculus", "BSc Mathematics", 1))
	require.NoError(t, err)
	b, err := svc.Create(ctx, newCourse("MA102", "Linear Algebra", "BSc Mathematics", 1))
	require.NoError(t, err)

	draft := a.Clone()
	draft.HasLab = true
	draft.LabHours = 2
	got, err := svc.Update(ctx, a.ID, draft)
	require.NoError(t, err)
	assert.Equal(t, 5, got.TotalHours())

	t.Run("keep own code", func(t *testing.T) {
		_, err := svc.Update(ctx, a.ID, got)
		assert.NoError(t, err)
	})

	t.Run("take a sibling's code", func(t *testing.T) {
		draft := got.Clone()
		draft.Code = b.Code
		_, err := svc.Update(ctx, a.ID, draft)
		assert.Contains(t, fieldErrors(t, err), "code")
	})
}

func TestStore_CourseLifecycle(t *testing.T) {
	ctx := context.Background()
	store := crud.NewStore[course.Course](crud.FromService[course.Course](newService()))
	buf := crud.NewBuffer[course.Course](course.Template, course.SetField)

	buf.OpenForCreate()
	for path, value := range map[string]string{
		"code":     "PH101",
		"name":     "Mechanics",
		"program":  "BSc Physics",
		"semester": "2",
		"has_lab":  "on",
	} {
		require.NoError(t, buf.SetField(path, value))
	}
	_, err := buf.Commit(ctx, store)
	assert.Contains(t, fieldErrors(t, err), "lab_hours")

	require.NoError(t, buf.SetField("labHours", "2"))
	id, err := buf.Commit(ctx, store)
	require.NoError(t, err)

	saved, ok := store.Find(id)
	require.True(t, ok)
	assert.Equal(t, 2, saved.Semester)
	assert.Equal(t, course.Summary{Total: 1, Programs: 1, TotalCredits: 3, WithLab: 1}, course.Summarize(store.Items()))

	require.NoError(t, store.Delete(ctx, id))
	assert.Equal(t, course.Summary{}, course.Summarize(store.Items()))
}

func TestQueryFilter(t *testing.T) {
	c := newCourse("CS101", "Intro to Programming", "BSc Computer Science", 1)

	tests := []struct {
		name   string
		filter *course.QueryFilter
		want   bool
	}{
		{name: "nil", filter: nil, want: true},
		{name: "code search", filter: &course.QueryFilter{Search: "cs1"}, want: true},
		{name: "name search", filter: &course.QueryFilter{Search: "PROGRAM"}, want: true},
		{name: "semester", filter: &course.QueryFilter{Semester: 1}, want: true},
		{name: "other semester", filter: &course.QueryFilter{Semester: 2}, want: false},
		{name: "program and type", filter: &course.QueryFilter{Program: "bsc computer science", Type: course.TypePractical}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(c); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}
