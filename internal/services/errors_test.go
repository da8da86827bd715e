package services_test

import (
	"errors"
	"strings"
	"testing"

	"ffkit/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("exit status 1")
	err := services.Wrap(services.ErrEncode, "/media/in.mkv", "ffmpeg", "encode failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"/media/in.mkv", "ffmpeg", "encode failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "stream 3", "", "not a video stream", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if got, want := err.Error(), "validation error: stream 3: not a video stream"; got != want {
		t.Fatalf("unexpected message %q, want %q", got, want)
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrProbe, "a", "", "", nil), "probe"},
		{services.Wrap(services.ErrNotFound, "a", "", "", nil), "not_found"},
		{services.Wrap(services.ErrEncode, "a", "", "", nil), "encode"},
		{services.Wrap(services.ErrFormat, "a", "", "", nil), "format"},
		{errors.New("other"), "unknown"},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestSkippable(t *testing.T) {
	if !services.Skippable(services.Wrap(services.ErrProbe, "x", "", "", nil)) {
		t.Fatal("probe failures should be skippable")
	}
	if services.Skippable(services.Wrap(services.ErrEncode, "x", "", "", nil)) {
		t.Fatal("encode failures should not be skippable")
	}
}
