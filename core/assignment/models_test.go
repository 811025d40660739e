package assignment

import (
	"strings"
	"testing"
	"time"
)

func TestAssignment_IsLate(t *testing.T) {
	asg := Assignment{DueDate: "2026-09-05"}
	due, ok := asg.DueAt()
	if !ok {
		t.Fatalf("DueAt() failed to parse %q", asg.DueDate)
	}

	tests := []struct {
		name        string
		asg         Assignment
		submittedAt time.Time
		want        bool
	}{
		{name: "before the due date", asg: asg, submittedAt: due.Add(-time.Hour), want: false},
		{name: "on the due date", asg: asg, submittedAt: due, want: false},
		{name: "after the due date", asg: asg, submittedAt: due.Add(time.Hour), want: true},
		{name: "unparseable due date is never late", asg: Assignment{DueDate: "someday"}, submittedAt: due.Add(time.Hour), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.asg.IsLate(tt.submittedAt); got != tt.want {
				t.Errorf("IsLate() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "report.pdf", want: "report.pdf"},
		{name: "strips directories", in: "../../etc/passwd", want: "passwd"},
		{name: "strips windows directories", in: `C:\Users\x\sol.py`, want: "sol.py"},
		{name: "replaces unsafe characters", in: "my report (final).pdf", want: "my_report_final_.pdf"},
		{name: "trims leading dots", in: ".hidden", want: "hidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewSubmission_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ns      NewSubmission
		wantErr bool
	}{
		{name: "content only", ns: NewSubmission{Content: "print(42)"}},
		{name: "allowed document", ns: NewSubmission{FileName: "report.pdf", File: strings.NewReader("x")}},
		{name: "allowed code file", ns: NewSubmission{FileName: "solution.py", File: strings.NewReader("x")}},
		{name: "case-insensitive extension", ns: NewSubmission{FileName: "REPORT.PDF", File: strings.NewReader("x")}},
		{name: "executable rejected", ns: NewSubmission{FileName: "virus.exe", File: strings.NewReader("x")}, wantErr: true},
		{name: "extensionless rejected", ns: NewSubmission{FileName: "Makefile", File: strings.NewReader("x")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.ns.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}
