package job_test

import (
	"testing"

	"github.com/mit-kavli-institute/pdoflow-go/job"
)

func TestStatusRoundTrip(t *testing.T) {
	statuses := []job.Status{
		job.Unknown, job.Waiting, job.Executing, job.Done,
		job.ErroredOut, job.Paused, job.Cancelled,
	}
	for _, s := range statuses {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", s, err)
		}
		var got job.Status
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if got != s {
			t.Fatalf("round trip mismatch: got %v, want %v", got, s)
		}
	}
}

func TestParseStatusUnknownString(t *testing.T) {
	if _, err := job.ParseStatus("bogus"); err == nil {
		t.Fatal("expected error for unrecognized status string")
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[job.Status]bool{
		job.Waiting:    false,
		job.Executing:  false,
		job.Paused:     false,
		job.Done:       true,
		job.ErroredOut: true,
		job.Cancelled:  true,
	}
	for s, want := range terminal {
		if got := s.Terminal(); got != want {
			t.Errorf("%v.Terminal() = %v, want %v", s, got, want)
		}
	}
}
