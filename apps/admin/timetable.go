package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/services/blob"
)

var openBlobStoreFunc = blob.NewStore // mockable

const cliActor = "admin-cli"

func (cli *commandLine) runTimetable(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	action := args[0]

	fs := cli.flagSet("timetable " + action)
	rmt := addRemoteFlags(fs)
	var (
		id, file, status, format, dest, key *string
	)
	switch action {
	case "import":
		file = fs.String("file", "", "JSON file holding the timetable. It is imported as a draft.")
	case "status":
		id = fs.String("id", "", "The timetable ID.")
		status = fs.String("status", "", "The next status: pending_review, approved, published, rejected or draft.")
	case "export":
		id = fs.String("id", "", "The timetable ID.")
		format = fs.String("format", string(timetable.FormatCSV), "csv, json or html.")
		dest = fs.String("dest", "", "Where to store the document: fs or s3 (default from the config).")
		key = fs.String("key", "", "Blob key of the document (default: the timetable file name).")
	default:
		cli.printUsage()
		return errHelp
	}
	if err := cli.parse(fs, args[1:]); err != nil {
		return err
	}
	for _, required := range []*string{id, file, status} {
		if required != nil && *required == "" {
			fs.Usage()
			return errHelp
		}
	}

	client, err := rmt.client()
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch action {
	case "import":
		draft, err := readRecord[timetable.Timetable](*file)
		if err != nil {
			return err
		}
		var tt timetable.Timetable
		if client != nil {
			tt, err = client.Timetables().Import(ctx, draft)
		} else {
			tt, err = cli.timetables.Create(ctx, draft)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "timetable imported: %s (%s, %d sessions)\n", tt.ID, tt.Status, len(tt.Sessions))

	case "status":
		var tt timetable.Timetable
		if client != nil {
			tt, err = client.Timetables().SetStatus(ctx, *id, *status)
		} else {
			tt, err = cli.timetables.UpdateStatus(ctx, *id, *status, cliActor)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "timetable %s: %s\n", tt.ID, tt.Status)

	case "export":
		var remote timetableExporter
		if client != nil {
			remote = client.Timetables()
		}
		return cli.exportTimetable(ctx, *id, *format, *dest, *key, remote)
	}
	return nil
}

type timetableExporter interface {
	Export(ctx context.Context, id string, f timetable.Format) ([]byte, string, error)
}

func (cli *commandLine) exportTimetable(ctx context.Context, id, format, dest, key string, remote timetableExporter) error {
	f, err := timetable.ParseFormat(format)
	if err != nil {
		return err
	}

	var (
		doc  []byte
		name string
	)
	if remote != nil {
		doc, name, err = remote.Export(ctx, id, f)
	} else {
		doc, name, err = cli.renderTimetable(ctx, id, f)
	}
	if err != nil {
		return err
	}
	if key == "" {
		key = name
	}

	conf := cli.conf.Blob
	if dest != "" {
		conf.Driver = dest
	}
	store, err := openBlobStoreFunc(ctx, conf)
	if err != nil {
		return err
	}
	info, err := store.Put(ctx, key, bytes.NewReader(doc), f.ContentType())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "timetable exported to %s:%s (%d bytes)\n", store.Driver(), info.Key, info.Size)
	return nil
}

func (cli *commandLine) renderTimetable(ctx context.Context, id string, f timetable.Format) ([]byte, string, error) {
	tt, err := cli.timetables.Get(ctx, id, timetable.ProjectionFull)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := timetable.Export(&buf, tt, f); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), timetable.FileName(tt, f), nil
}
