package timetable

import (
	"encoding/json"
	"html/template"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// Format of a timetable export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

var (
	ErrUnknownFormat = errors.New("export format must be one of: csv, json, html")

	// CSVHeader is the fixed column order of the CSV export.
	CSVHeader = []string{"Day", "StartTime", "EndTime", "CourseCode", "CourseName", "SessionType", "Teacher", "Classroom", "StudentCount"}

	slugRegex = regexp.MustCompile(`[^a-z0-9]+`)
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(core.CleanString(s, true /* lower */)); f {
	case FormatCSV, FormatJSON, FormatHTML:
		return f, nil
	}
	return "", ErrUnknownFormat
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// Export writes tt in format f.
func Export(w io.Writer, tt Timetable, f Format) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, tt)
	case FormatJSON:
		return WriteJSON(w, tt)
	case FormatHTML:
		return WritePrintHTML(w, tt)
	}
	return ErrUnknownFormat
}

// WriteCSV writes the header row then one row per session, by day then start time. Every field is quoted.
func WriteCSV(w io.Writer, tt Timetable) error {
	if err := writeCSVRow(w, CSVHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, s := range SortSessions(tt.Sessions) {
		row := []string{
			core.DayLabel(s.Day),
			s.StartTime,
			s.EndTime,
			s.CourseCode,
			s.CourseName,
			s.SessionType,
			s.Teacher,
			s.Classroom,
			strconv.Itoa(s.StudentCount),
		}
		if err := writeCSVRow(w, row); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	return nil
}

func writeCSVRow(w io.Writer, fields []string) error {
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		quoted = append(quoted, `"`+strings.ReplaceAll(f, `"`, `""`)+`"`)
	}
	_, err := io.WriteString(w, strings.Join(quoted, ",")+"\n")
	return err
}

// WriteJSON writes the full timetable, indented by two spaces.
func WriteJSON(w io.Writer, tt Timetable) error {
	tt = tt.Project(ProjectionFull)
	tt.Sessions = SortSessions(tt.Sessions)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(tt), "encoding timetable")
}

var printTmpl = template.Must(template.New("print").Funcs(template.FuncMap{"day": core.DayLabel}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Name}}</title>
<style>
body { font-family: sans-serif; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #444; padding: 4px 8px; text-align: left; }
</style>
</head>
<body>
<h1>{{.Name}}</h1>
<p>{{.Program}} &middot; Semester {{.Semester}}{{if .AcademicYear}} &middot; {{.AcademicYear}}{{end}}</p>
<table>
<thead>
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{- range .Sessions}}
<tr><td>{{day .Day}}</td><td>{{.StartTime}}</td><td>{{.EndTime}}</td><td>{{.CourseCode}}</td><td>{{.CourseName}}</td><td>{{.SessionType}}</td><td>{{.Teacher}}</td><td>{{.Classroom}}</td><td>{{.StudentCount}}</td></tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

// WritePrintHTML writes a standalone printable page holding the session table.
func WritePrintHTML(w io.Writer, tt Timetable) error {
	data := struct {
		Timetable
		Header []string
	}{Timetable: tt, Header: CSVHeader}
	data.Sessions = SortSessions(tt.Sessions)
	return errors.Wrap(printTmpl.Execute(w, data), "rendering print view")
}

// FileName is the download name of an export, e.g. "bsc-computer-science-semester-1.csv".
func FileName(tt Timetable, f Format) string {
	base := strings.Trim(slugRegex.ReplaceAllString(strings.ToLower(tt.Name), "-"), "-")
	if base == "" {
		base = "timetable-" + tt.ID
	}
	return base + "." + string(f)
}
