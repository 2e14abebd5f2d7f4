package stats

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsEmpty(t *testing.T) {
	t.Parallel()
	var nilSingle *SingleDelta
	tests := []struct {
		name string
		c    Change
		want bool
	}{
		{"nil", nil, true},
		{"single", SingleDelta{Old: "a", New: "b"}, false},
		{"nil pointer", nilSingle, true},
		{"all absent", SubModeDeltas{}, true},
		{"one present", SubModeDeltas{SubTwistedTreeline: {Old: "a", New: "b"}}, false},
	}
	for _, tt := range tests {
		if got := IsEmpty(tt.c); got != tt.want {
			t.Fatalf("%s: IsEmpty() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSubModeDeltasPresent(t *testing.T) {
	t.Parallel()
	d := SubModeDeltas{nil, {Old: "SILVER I", New: "GOLD IV"}, nil}
	got := d.Present()
	if len(got) != 1 || got[0].Mode != SubFlex || got[0].Mode.Label() != "FLEX" || got[0].Delta.New != "GOLD IV" {
		t.Fatalf("Present() = %+v", got)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, 0},
		{&HTTPError{Status: 500}, Transient5xx},
		{&HTTPError{Status: 599}, Transient5xx},
		{fmt.Errorf("fetch: %w", &HTTPError{Status: 502}), Transient5xx},
		{&HTTPError{Status: 429}, ClientOrOtherHTTP},
		{&HTTPError{Status: 404}, ClientOrOtherHTTP},
		{&HTTPError{Status: 600}, ClientOrOtherHTTP},
		{errors.New("eof"), Unexpected},
		{&PanicError{Value: 1}, Unexpected},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Fatalf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
