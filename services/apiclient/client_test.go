package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/crud"
	"github.com/trezcool/ratiba/core/room"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/user"
	"github.com/trezcool/ratiba/services/apiclient"
	"github.com/trezcool/ratiba/tests"
)

const pwd = "Tr1cky!Pass"

func setup(t *testing.T) (*testutil.Env, *apiclient.Client) {
	t.Helper()
	env := testutil.NewEnv(t)
	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Validate:       env.Validate,
		Translator:     env.Translator,
		UserSvc:        env.Users,
		RoomSvc:        env.Rooms,
		TeacherSvc:     env.Teachers,
		CourseSvc:      env.Courses,
		TimetableSvc:   env.Timetables,
		StatsSvc:       env.Stats,
		DisableReqLogs: true,
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return env, apiclient.New(ts.URL+"/v1", ts.Client())
}

func login(t *testing.T, env *testutil.Env, c *apiclient.Client, roles ...string) core.Session {
	t.Helper()
	testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "", pwd, roles, true)
	sess, err := c.Login(context.Background(), "admin", pwd)
	require.NoError(t, err)
	return sess
}

func TestClient_session(t *testing.T) {
	env, c := setup(t)
	ctx := context.Background()

	assert.True(t, c.Healthy(ctx))
	assert.False(t, c.Session().Authenticated())

	_, err := c.Me(ctx)
	assert.True(t, errors.Is(err, apiclient.ErrUnauthorized), err)

	_, err = c.Login(ctx, "admin", pwd)
	var apiErr *apiclient.Error
	require.True(t, errors.As(err, &apiErr), err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.False(t, c.Session().Authenticated())

	c.SetSession(c.Session().WithTheme(core.ThemeDark))
	sess := login(t, env, c, user.RoleAdmin)
	assert.True(t, sess.Authenticated())
	assert.True(t, sess.IsAdmin)
	assert.Equal(t, "admin", sess.Username)
	assert.Equal(t, core.ThemeDark, sess.Theme, "display mode survives login")

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, me.ID)

	require.NoError(t, c.RefreshToken(ctx))
	assert.NotEmpty(t, c.Session().Token)

	c.Logout()
	assert.False(t, c.Session().Authenticated())
	assert.Equal(t, core.ThemeDark, c.Session().Theme)
}

func TestClient_register(t *testing.T) {
	_, c := setup(t)
	ctx := context.Background()

	_, err := c.Register(ctx, user.NewUser{
		Name: "Hero", Username: "hero", Email: "hero@uni.edu", Password: "password", PasswordConfirm: "password",
	})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), err)
	assert.Contains(t, vErr.FieldMap(), "password")

	sess, err := c.Register(ctx, user.NewUser{
		Name: "Hero", Username: "hero", Email: "hero@uni.edu", Password: pwd, PasswordConfirm: pwd, Roles: []string{user.RoleAdmin},
	})
	require.NoError(t, err)
	assert.False(t, sess.IsAdmin, "sign-ups are students")
	assert.Contains(t, sess.Roles, user.RoleStudent)
}

func TestResource(t *testing.T) {
	env, c := setup(t)
	login(t, env, c, user.RoleAdmin)
	ctx := context.Background()
	rooms := c.Rooms()

	id, err := rooms.Create(ctx, testutil.NewRoom("A101", "Main Building", 120))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = rooms.Create(ctx, testutil.NewRoom("a101", "main building", 10))
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), err)
	assert.Contains(t, vErr.FieldMap(), "name")

	lab := testutil.NewRoom("Chem Lab", "Science Building", 24)
	lab.Type = room.TypeScienceLab
	_, err = rooms.Create(ctx, lab)
	require.NoError(t, err)

	got, err := rooms.Query(ctx, &room.QueryFilter{Building: "science building"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Chem Lab", got[0].Name)

	all, err := rooms.Query(ctx, nil, "-capacity")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	summary, err := rooms.Summary(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 144, summary.TotalCapacity)
	assert.Equal(t, 1, summary.Labs)

	a101, err := rooms.Get(ctx, id)
	require.NoError(t, err)
	a101.Capacity = 100
	require.NoError(t, rooms.Update(ctx, id, a101))
	a101, err = rooms.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 100, a101.Capacity)

	require.NoError(t, rooms.Delete(ctx, id))
	_, err = rooms.Get(ctx, id)
	assert.True(t, errors.Is(err, core.ErrNotFound), err)
	err = rooms.Delete(ctx, id)
	assert.True(t, errors.Is(err, core.ErrNotFound), err)

	courses, err := c.Courses().Query(ctx, &course.QueryFilter{Semester: 2})
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestResource_forbidden(t *testing.T) {
	env, c := setup(t)
	login(t, env, c, user.RoleStudent)

	_, err := c.Teachers().Create(context.Background(), testutil.NewTeacher("Dr. Otieno", "otieno@uni.edu", "Maths"))
	var apiErr *apiclient.Error
	require.True(t, errors.As(err, &apiErr), err)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "permission denied", apiErr.Message)
	assert.True(t, errors.Is(err, apiclient.ErrForbidden))
}

func TestResource_syncsStore(t *testing.T) {
	env, c := setup(t)
	login(t, env, c, user.RoleAdmin)
	ctx := context.Background()

	store := crud.NewStore[course.Course](c.Courses())
	require.NoError(t, store.Refresh(ctx))
	assert.Empty(t, store.Items())

	id, err := store.Create(ctx, testutil.NewCourse("cs101", "Programming", "BSc CS", 1))
	require.NoError(t, err)
	require.Len(t, store.Items(), 1)
	assert.Equal(t, id, store.Items()[0].ID)
	assert.Equal(t, "CS101", store.Items()[0].Code)

	local, err := env.Courses.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Programming", local.Name)
}

func TestTimetables(t *testing.T) {
	env, c := setup(t)
	login(t, env, c, user.RoleAdminDean)
	ctx := context.Background()
	tts := c.Timetables()

	draft := testutil.NewTimetable("BSc CS - Semester 1", "BSc CS", 1)
	draft.Status = timetable.StatusPublished
	tt, err := tts.Import(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, timetable.StatusDraft, tt.Status)

	_, err = tts.SetStatus(ctx, tt.ID, timetable.StatusPublished)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), err)
	assert.Contains(t, vErr.FieldMap(), "status")

	for _, status := range []string{timetable.StatusPendingReview, timetable.StatusApproved, timetable.StatusPublished} {
		tt, err = tts.SetStatus(ctx, tt.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, tt.Status)
	}

	tt, err = tts.Comment(ctx, tt.ID, "Looks good")
	require.NoError(t, err)
	require.Len(t, tt.Comments, 1)
	assert.Equal(t, "admin", tt.Comments[0].Author)

	list, err := tts.Query(ctx, &timetable.QueryFilter{Program: "bsc cs"}, timetable.ProjectionSummary)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Sessions)

	doc, name, err := tts.Export(ctx, tt.ID, timetable.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "bsc-cs-semester-1.csv", name)
	assert.Len(t, strings.Split(strings.TrimSpace(string(doc)), "\n"), 3)

	_, _, err = tts.Export(ctx, tt.ID, "pdf")
	require.True(t, errors.As(err, &vErr), err)
	assert.Contains(t, vErr.FieldMap(), "format")

	data, err := c.DataStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, data.TimetablesByStatus[timetable.StatusPublished])

	students, err := c.StudentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, students.TotalStudents)

	require.NoError(t, tts.Delete(ctx, tt.ID))
	_, err = tts.Get(ctx, tt.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound), err)
}

func TestClient_envelope(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "ok", status: http.StatusOK, body: `{"data":{"id":"r1","name":"A101"}}`},
		{name: "missing data", status: http.StatusOK, body: `{}`, wantErr: apiclient.ErrUnexpectedResponse},
		{name: "null data", status: http.StatusOK, body: `{"data":null}`, wantErr: apiclient.ErrUnexpectedResponse},
		{name: "unknown field", status: http.StatusOK, body: `{"data":{"id":"r1"},"meta":1}`, wantErr: apiclient.ErrUnexpectedResponse},
		{name: "not json", status: http.StatusOK, body: `<html>`, wantErr: apiclient.ErrUnexpectedResponse},
		{name: "not found", status: http.StatusNotFound, body: `{"error":"not found"}`, wantErr: core.ErrNotFound},
		{name: "plain error", status: http.StatusUnauthorized, body: `oops`, wantErr: apiclient.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			c := apiclient.WithToken(ts.URL, "secret", ts.Client())
			rm, err := c.Rooms().Get(context.Background(), "r1")
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "A101", rm.Name)
		})
	}
}

func TestNew_requiresBaseURL(t *testing.T) {
	assert.Panics(t, func() { apiclient.New("", nil) })
}
