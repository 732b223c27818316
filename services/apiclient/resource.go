package apiclient

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/sendgrid/rest"

	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/crud"
	"github.com/trezcool/ratiba/core/room"
	"github.com/trezcool/ratiba/core/teacher"
)

// Resource is one CRUD collection of the API. It implements crud.Adapter.
type Resource[T crud.Record[T], F any, S any] struct {
	c      *Client
	path   string
	params func(F) map[string]string
}

var (
	_ crud.Adapter[room.Room]       = (*Resource[room.Room, room.QueryFilter, room.Summary])(nil)
	_ crud.Adapter[teacher.Teacher] = (*Resource[teacher.Teacher, teacher.QueryFilter, teacher.Summary])(nil)
	_ crud.Adapter[course.Course]   = (*Resource[course.Course, course.QueryFilter, course.Summary])(nil)
)

func (c *Client) Rooms() *Resource[room.Room, room.QueryFilter, room.Summary] {
	return &Resource[room.Room, room.QueryFilter, room.Summary]{c: c, path: "/classrooms", params: roomParams}
}

func (c *Client) Teachers() *Resource[teacher.Teacher, teacher.QueryFilter, teacher.Summary] {
	return &Resource[teacher.Teacher, teacher.QueryFilter, teacher.Summary]{c: c, path: "/teachers", params: teacherParams}
}

func (c *Client) Courses() *Resource[course.Course, course.QueryFilter, course.Summary] {
	return &Resource[course.Course, course.QueryFilter, course.Summary]{c: c, path: "/courses", params: courseParams}
}

func (r *Resource[T, F, S]) item(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func (r *Resource[T, F, S]) List(ctx context.Context) ([]T, error) {
	return r.Query(ctx, nil)
}

// Query lists the records matching filter (all of them when nil), ordered by the given fields ("-name").
func (r *Resource[T, F, S]) Query(ctx context.Context, filter *F, ordering ...string) ([]T, error) {
	query := make(map[string]string)
	if filter != nil {
		query = r.params(*filter)
	}
	if len(ordering) > 0 {
		query["ordering"] = strings.Join(ordering, ",")
	}
	var recs []T
	if err := r.c.do(ctx, rest.Get, r.path, query, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *Resource[T, F, S]) Get(ctx context.Context, id string) (T, error) {
	var rec T
	err := r.c.do(ctx, rest.Get, r.item(id), nil, nil, &rec)
	return rec, err
}

// Create returns the identifier assigned by the server.
func (r *Resource[T, F, S]) Create(ctx context.Context, draft T) (string, error) {
	var rec T
	if err := r.c.do(ctx, rest.Post, r.path, nil, draft, &rec); err != nil {
		return "", err
	}
	if rec.Key() == "" {
		return "", ErrUnexpectedResponse
	}
	return rec.Key(), nil
}

func (r *Resource[T, F, S]) Update(ctx context.Context, id string, draft T) error {
	var rec T
	return r.c.do(ctx, rest.Put, r.item(id), nil, draft, &rec)
}

func (r *Resource[T, F, S]) Delete(ctx context.Context, id string) error {
	_, err := r.c.send(ctx, rest.Delete, r.item(id), nil, nil)
	return err
}

func (r *Resource[T, F, S]) Summary(ctx context.Context, filter *F) (S, error) {
	var (
		summary S
		query   map[string]string
	)
	if filter != nil {
		query = r.params(*filter)
	}
	err := r.c.do(ctx, rest.Get, r.path+"/summary", query, nil, &summary)
	return summary, err
}

// params drops the empty values.
type params map[string]string

func (p params) set(key, val string) params {
	if val != "" {
		p[key] = val
	}
	return p
}

func (p params) setInt(key string, val int) params {
	if val != 0 {
		p[key] = strconv.Itoa(val)
	}
	return p
}

func roomParams(f room.QueryFilter) map[string]string {
	return params{}.
		set("search", f.Search).
		set("building", f.Building).
		set("type", f.Type).
		set("status", f.Status).
		set("day", f.Day)
}

func teacherParams(f teacher.QueryFilter) map[string]string {
	return params{}.
		set("search", f.Search).
		set("department", f.Department).
		set("status", f.Status).
		set("priority", f.Priority).
		set("day", f.Day)
}

func courseParams(f course.QueryFilter) map[string]string {
	return params{}.
		set("search", f.Search).
		set("program", f.Program).
		setInt("semester", f.Semester).
		set("type", f.Type).
		set("status", f.Status)
}
