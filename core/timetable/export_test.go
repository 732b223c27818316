package timetable_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/ratiba/core/timetable"
)

func diff(want, got string) string {
	d, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	return d
}

func TestWriteCSV(t *testing.T) {
	tt := sampleTimetable()
	tt.Sessions[0].CourseName = `Discrete "Maths", part 1`

	var buf bytes.Buffer
	if err := timetable.WriteCSV(&buf, tt); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	want := `"Day","StartTime","EndTime","CourseCode","CourseName","SessionType","Teacher","Classroom","StudentCount"
"Monday","08:00","10:00","CS101","Programming","Lecture","Ms. Njeri","A101","60"
"Monday","14:00","16:00","CS101","Programming","Lab","Ms. Njeri","PC Lab","30"
"Wednesday","10:00","12:00","cs102","Discrete ""Maths"", part 1","Lecture","Dr. Otieno","A101","60"
`
	if got := buf.String(); got != want {
		t.Errorf("WriteCSV() mismatch:\n%s", diff(want, got))
	}

	t.Run("no sessions", func(t *testing.T) {
		var buf bytes.Buffer
		_ = timetable.WriteCSV(&buf, timetable.Timetable{Name: "Empty"})
		if lines := strings.Count(buf.String(), "\n"); lines != 1 {
			t.Errorf("WriteCSV() wrote %d lines, want the header only", lines)
		}
	})
}

func TestWriteJSON(t *testing.T) {
	tt := sampleTimetable()
	tt.ID = "b6f0c8de-3a65-4c55-9b43-0d9ce43a2a11"
	tt.Status = timetable.StatusApproved

	var buf bytes.Buffer
	if err := timetable.WriteJSON(&buf, tt); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "{\n  \"id\": \"b6f0c8de-3a65-4c55-9b43-0d9ce43a2a11\",\n  \"name\"") {
		t.Errorf("WriteJSON() is not indented by two spaces:\n%s", out)
	}

	var got timetable.Timetable
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got.SessionCount != 3 || len(got.Sessions) != 3 {
		t.Errorf("WriteJSON() sessions = %d (count %d), want 3", len(got.Sessions), got.SessionCount)
	}
	if got.Sessions[0].StartTime != "08:00" {
		t.Errorf("WriteJSON() first session starts at %s, want 08:00", got.Sessions[0].StartTime)
	}
}

func TestWritePrintHTML(t *testing.T) {
	tt := sampleTimetable()
	tt.Sessions[0].Teacher = "<script>alert(1)</script>"

	var buf bytes.Buffer
	if err := timetable.WritePrintHTML(&buf, tt); err != nil {
		t.Fatalf("WritePrintHTML() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>BSc Computer Science - Semester 1</title>",
		"<th>CourseCode</th>",
		"<td>Monday</td><td>08:00</td><td>10:00</td><td>CS101</td>",
		"&lt;script&gt;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("WritePrintHTML() missing %q", want)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Error("WritePrintHTML() did not escape session fields")
	}
	if strings.Index(out, "08:00") > strings.Index(out, "14:00") {
		t.Error("WritePrintHTML() sessions are not sorted")
	}
}

func TestExportHelpers(t *testing.T) {
	tests := []struct {
		in      string
		want    timetable.Format
		wantErr bool
	}{
		{in: "csv", want: timetable.FormatCSV},
		{in: " JSON ", want: timetable.FormatJSON},
		{in: "html", want: timetable.FormatHTML},
		{in: "pdf", wantErr: true},
	}
	for _, tt := range tests {
		got, err := timetable.ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}

	tt := sampleTimetable()
	if got := timetable.FileName(tt, timetable.FormatCSV); got != "bsc-computer-science-semester-1.csv" {
		t.Errorf("FileName() = %q", got)
	}
	if got := timetable.FileName(timetable.Timetable{ID: "42"}, timetable.FormatJSON); got != "timetable-42.json" {
		t.Errorf("FileName() = %q", got)
	}
}
