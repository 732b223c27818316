package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/crud"
	"github.com/trezcool/ratiba/core/room"
	"github.com/trezcool/ratiba/core/teacher"
	"github.com/trezcool/ratiba/services/apiclient"
)

// backend is where a record command reads and writes: the local services or a remote API.
type backend[T crud.Record[T], S any] struct {
	adapter crud.Adapter[T]
	summary func(ctx context.Context) (S, error)
}

type backends[T crud.Record[T], S any] struct {
	local  backend[T, S]
	remote func(c *apiclient.Client) backend[T, S]
	form   func() *crud.Buffer[T]
}

func roomBackends(cli *commandLine) backends[room.Room, room.Summary] {
	return backends[room.Room, room.Summary]{
		local: backend[room.Room, room.Summary]{
			adapter: crud.FromService[room.Room](cli.rooms),
			summary: func(ctx context.Context) (room.Summary, error) { return cli.rooms.Summary(ctx, nil) },
		},
		remote: func(c *apiclient.Client) backend[room.Room, room.Summary] {
			res := c.Rooms()
			return backend[room.Room, room.Summary]{
				adapter: res,
				summary: func(ctx context.Context) (room.Summary, error) { return res.Summary(ctx, nil) },
			}
		},
		form: func() *crud.Buffer[room.Room] { return crud.NewBuffer[room.Room](room.Template, room.SetField) },
	}
}

func teacherBackends(cli *commandLine) backends[teacher.Teacher, teacher.Summary] {
	return backends[teacher.Teacher, teacher.Summary]{
		local: backend[teacher.Teacher, teacher.Summary]{
			adapter: crud.FromService[teacher.Teacher](cli.teachers),
			summary: func(ctx context.Context) (teacher.Summary, error) { return cli.teachers.Summary(ctx, nil) },
		},
		remote: func(c *apiclient.Client) backend[teacher.Teacher, teacher.Summary] {
			res := c.Teachers()
			return backend[teacher.Teacher, teacher.Summary]{
				adapter: res,
				summary: func(ctx context.Context) (teacher.Summary, error) { return res.Summary(ctx, nil) },
			}
		},
		form: func() *crud.Buffer[teacher.Teacher] {
			return crud.NewBuffer[teacher.Teacher](teacher.Template, teacher.SetField)
		},
	}
}

func courseBackends(cli *commandLine) backends[course.Course, course.Summary] {
	return backends[course.Course, course.Summary]{
		local: backend[course.Course, course.Summary]{
			adapter: crud.FromService[course.Course](cli.courses),
			summary: func(ctx context.Context) (course.Summary, error) { return cli.courses.Summary(ctx, nil) },
		},
		remote: func(c *apiclient.Client) backend[course.Course, course.Summary] {
			res := c.Courses()
			return backend[course.Course, course.Summary]{
				adapter: res,
				summary: func(ctx context.Context) (course.Summary, error) { return res.Summary(ctx, nil) },
			}
		},
		form: func() *crud.Buffer[course.Course] {
			return crud.NewBuffer[course.Course](course.Template, course.SetField)
		},
	}
}

// fieldValues collects repeated -set field=value flags.
type fieldValues []string

func (f *fieldValues) String() string { return strings.Join(*f, ", ") }

func (f *fieldValues) Set(v string) error {
	if field, _, ok := strings.Cut(v, "="); !ok || strings.TrimSpace(field) == "" {
		return errors.Errorf("%q is not of the form field=value", v)
	}
	*f = append(*f, v)
	return nil
}

// runResource handles `NAME list|add|edit|delete|summary`. Writes are staged in a crud.Buffer and
// committed through a crud.Store so the listing printed after them is the authoritative one.
func runResource[T crud.Record[T], S any](cli *commandLine, name string, args []string, b backends[T, S]) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	action := args[0]

	fs := cli.flagSet(name + " " + action)
	rmt := addRemoteFlags(fs)
	var (
		id, file *string
		sets     fieldValues
	)
	switch action {
	case "list", "summary":
	case "add", "edit":
		if action == "edit" {
			id = fs.String("id", "", "The record ID.")
		}
		file = fs.String("file", "", "JSON file holding the record.")
		fs.Var(&sets, "set", "Set a form field, e.g. -set capacity=40 (repeatable, applied after -file).")
	case "delete":
		id = fs.String("id", "", "The record ID.")
	default:
		cli.printUsage()
		return errHelp
	}
	if err := cli.parse(fs, args[1:]); err != nil {
		return err
	}
	if (id != nil && *id == "") || (file != nil && *file == "" && len(sets) == 0) {
		fs.Usage()
		return errHelp
	}

	client, err := rmt.client()
	if err != nil {
		return err
	}
	be := b.local
	if client != nil {
		be = b.remote(client)
	}

	ctx := context.Background()
	store := crud.NewStore[T](be.adapter)

	switch action {
	case "list":
		if err := store.Refresh(ctx); err != nil {
			return err
		}
		return cli.printJSON(store.Items())
	case "summary":
		summary, err := be.summary(ctx)
		if err != nil {
			return err
		}
		return cli.printJSON(summary)
	case "add", "edit":
		form := b.form()
		verb := "created"
		if action == "edit" {
			if err := store.Refresh(ctx); err != nil {
				return err
			}
			rec, ok := store.Find(*id)
			if !ok {
				return errors.Wrapf(core.ErrNotFound, "%s %s", name, *id)
			}
			form.OpenForEdit(rec)
			verb = "updated"
		} else {
			form.OpenForCreate()
		}
		if err := fillForm(form, *file, sets); err != nil {
			return err
		}
		savedID, err := form.Commit(ctx, store)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s %s: %s\n", name, verb, savedID)
	case "delete":
		if err := store.Delete(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s deleted: %s\n", name, *id)
	}
	return nil
}

// fillForm loads the record in file, if any, into the open form, then applies sets in order.
func fillForm[T crud.Record[T]](form *crud.Buffer[T], file string, sets fieldValues) error {
	if file != "" {
		rec, err := readRecord[T](file)
		if err != nil {
			return err
		}
		if err := form.Edit(func(draft *T) { *draft = rec }); err != nil {
			return err
		}
	}
	for _, set := range sets {
		field, value, _ := strings.Cut(set, "=")
		if err := form.SetField(strings.TrimSpace(field), value); err != nil {
			return err
		}
	}
	return nil
}

func readRecord[T any](path string) (T, error) {
	var rec T
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, errors.Wrapf(err, "decoding %s", path)
	}
	return rec, nil
}
