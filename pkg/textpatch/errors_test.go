package textpatch

import (
	"errors"
	"strings"
	"testing"
)

func TestDescribeStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		statuses []StepResult
		want     string
	}{
		{
			name: "empty",
			want: "",
		},
		{
			name:     "only applied",
			statuses: []StepResult{{Index: 0, Status: StatusApplied}, {Index: 1, Status: StatusApplied}},
			want:     "Steps applied: 1, 2.",
		},
		{
			name: "mixed",
			statuses: []StepResult{
				{Index: 0, Status: StatusApplied},
				{Index: 1, Status: StatusNoOp},
				{Index: 2, Status: StatusSkipped},
				{Index: 3, Name: "login", Status: StatusFailed},
			},
			want: "Steps applied: 1.\nSteps without match: 2.\nSteps skipped by guard: 3.\nFailed at step 4 (login).",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := describeStatuses(tc.statuses); got != tc.want {
				t.Fatalf("describeStatuses() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatErrorIncludesCodePathAndSummary(t *testing.T) {
	t.Parallel()

	err := &Error{
		Code:     CodePatternMiss,
		Message:  "login: no match for literal \"x\"",
		Path:     "runtime.js",
		Step:     2,
		StepName: "login",
		Statuses: []StepResult{{Index: 0, Status: StatusApplied}, {Index: 1, Name: "login", Status: StatusFailed}},
	}

	got := FormatError(err)
	for _, want := range []string{
		"[PATTERN_MISS] runtime.js: login: no match",
		"Steps applied: 1.",
		"Failed at step 2 (login).",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("FormatError() missing %q in:\n%s", want, got)
		}
	}
}

func TestFormatErrorNil(t *testing.T) {
	t.Parallel()

	if got := FormatError(nil); got != "Unknown error occurred." {
		t.Fatalf("FormatError(nil) = %q", got)
	}
}

func TestErrorUnwrapAndMessageFallback(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := &Error{Code: CodeIO, Err: cause}
	if err.Error() != "disk full" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected error to unwrap to cause")
	}
	if !IsCode(err, CodeIO) || IsCode(cause, CodeIO) {
		t.Fatalf("IsCode mismatch")
	}
}
