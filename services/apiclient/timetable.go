package apiclient

import (
	"context"
	"mime"
	"net/url"
	"strings"

	"github.com/sendgrid/rest"

	"github.com/trezcool/ratiba/core/stats"
	"github.com/trezcool/ratiba/core/timetable"
)

type Timetables struct {
	c *Client
}

func (c *Client) Timetables() Timetables {
	return Timetables{c: c}
}

func timetablePath(id string) string {
	return "/timetables/" + url.PathEscape(id)
}

// Query lists the timetables newest first. Summaries carry no sessions unless p is full.
func (t Timetables) Query(ctx context.Context, filter *timetable.QueryFilter, p timetable.Projection) ([]timetable.Timetable, error) {
	query := params{}
	if filter != nil {
		query = query.
			set("status", filter.Status).
			set("program", filter.Program).
			setInt("semester", filter.Semester).
			set("search", filter.Search)
	}
	query.set("projection", string(p))

	var tts []timetable.Timetable
	if err := t.c.do(ctx, rest.Get, "/timetables", query, nil, &tts); err != nil {
		return nil, err
	}
	return tts, nil
}

func (t Timetables) Get(ctx context.Context, id string) (timetable.Timetable, error) {
	var tt timetable.Timetable
	err := t.c.do(ctx, rest.Get, timetablePath(id), nil, nil, &tt)
	return tt, err
}

// Import uploads a timetable; it is stored as a draft whatever its status.
func (t Timetables) Import(ctx context.Context, draft timetable.Timetable) (timetable.Timetable, error) {
	var tt timetable.Timetable
	err := t.c.do(ctx, rest.Post, "/timetables", nil, draft, &tt)
	return tt, err
}

func (t Timetables) Update(ctx context.Context, id string, draft timetable.Timetable) (timetable.Timetable, error) {
	var tt timetable.Timetable
	err := t.c.do(ctx, rest.Put, timetablePath(id), nil, draft, &tt)
	return tt, err
}

func (t Timetables) Delete(ctx context.Context, id string) error {
	_, err := t.c.send(ctx, rest.Delete, timetablePath(id), nil, nil)
	return err
}

func (t Timetables) SetStatus(ctx context.Context, id, status string) (timetable.Timetable, error) {
	var tt timetable.Timetable
	err := t.c.do(ctx, rest.Patch, timetablePath(id)+"/status", nil, map[string]string{"status": status}, &tt)
	return tt, err
}

func (t Timetables) Comment(ctx context.Context, id, text string) (timetable.Timetable, error) {
	var tt timetable.Timetable
	err := t.c.do(ctx, rest.Post, timetablePath(id)+"/comments", nil, map[string]string{"text": text}, &tt)
	return tt, err
}

// Export downloads the rendered document and the file name suggested by the server.
func (t Timetables) Export(ctx context.Context, id string, f timetable.Format) ([]byte, string, error) {
	resp, err := t.c.send(ctx, rest.Get, timetablePath(id)+"/export", map[string]string{"format": string(f)}, nil)
	if err != nil {
		return nil, "", err
	}
	return []byte(resp.Body), attachmentName(resp.Headers["Content-Disposition"]), nil
}

func attachmentName(headers []string) string {
	for _, h := range headers {
		if _, prms, err := mime.ParseMediaType(h); err == nil && prms["filename"] != "" {
			return prms["filename"]
		}
	}
	return ""
}

// DataStatistics returns the counters of the dashboard.
func (c *Client) DataStatistics(ctx context.Context) (stats.DataStatistics, error) {
	var data stats.DataStatistics
	err := c.do(ctx, rest.Get, "/statistics", nil, nil, &data)
	return data, err
}

func (c *Client) StudentStats(ctx context.Context) (stats.StudentStats, error) {
	var data stats.StudentStats
	err := c.do(ctx, rest.Get, "/statistics/students", nil, nil, &data)
	return data, err
}

// Healthy reports whether the server answers its home route.
func (c *Client) Healthy(ctx context.Context) bool {
	root := strings.TrimSuffix(c.baseURL, "/v1")
	resp, err := c.rest.SendWithContext(ctx, rest.Request{Method: rest.Get, BaseURL: root + "/"})
	return err == nil && resp.StatusCode < 300
}
