package syncstatus_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/mpsync/core/syncstatus"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		desc   string
		result syncstatus.BatchResult
		want   syncstatus.Outcome
	}{
		{
			desc:   "empty batch",
			result: syncstatus.BatchResult{Attempted: 0},
			want:   syncstatus.OutcomeSucceeded,
		},
		{
			desc:   "all succeeded",
			result: syncstatus.BatchResult{Attempted: 2, Succeeded: []string{"a", "b"}},
			want:   syncstatus.OutcomeSucceeded,
		},
		{
			desc: "all failed",
			result: syncstatus.BatchResult{
				Attempted: 1,
				Failed:    []syncstatus.EntryFailure{{RelativePath: "a", Err: errors.New("boom")}},
			},
			want: syncstatus.OutcomeFailed,
		},
		{
			desc: "partial",
			result: syncstatus.BatchResult{
				Attempted: 2,
				Succeeded: []string{"a"},
				Failed:    []syncstatus.EntryFailure{{RelativePath: "b", Err: errors.New("boom")}},
			},
			want: syncstatus.OutcomePartiallySucceeded,
		},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			if got := test.result.Outcome(); got != test.want {
				t.Errorf("Outcome() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	r := &syncstatus.BatchResult{Attempted: 2, Succeeded: []string{"a"}, Failed: []syncstatus.EntryFailure{{RelativePath: "b"}}}
	got := r.String()
	want := "PARTIALLY_SUCCEEDED: 1 ok, 1 failed"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCombinedErrNilWhenNoFailures(t *testing.T) {
	r := &syncstatus.BatchResult{Attempted: 1, Succeeded: []string{"a"}}
	if err := r.CombinedErr(); err != nil {
		t.Errorf("CombinedErr() = %v, want nil", err)
	}
}

func TestCombinedErrFoldsFailures(t *testing.T) {
	r := &syncstatus.BatchResult{
		Attempted: 2,
		Failed: []syncstatus.EntryFailure{
			{RelativePath: "a", Err: errors.New("boom")},
			{RelativePath: "b", Err: errors.New("bang")},
		},
	}
	err := r.CombinedErr()
	if err == nil {
		t.Fatal("CombinedErr() = nil, want non-nil")
	}
	for _, substr := range []string{"a: boom", "b: bang"} {
		if !strings.Contains(err.Error(), substr) {
			t.Errorf("CombinedErr() = %q, want to contain %q", err.Error(), substr)
		}
	}
}
