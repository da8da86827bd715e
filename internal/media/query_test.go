package media_test

import (
	"testing"
)

func TestFindStreamsByKey(t *testing.T) {
	desc := mustDescriptor(t, movieReport, 0)

	if got := desc.FindStreamsByKey("language"); !equalInts(got, []int{1, 2, 3}) {
		t.Fatalf("FindStreamsByKey(language) = %v", got)
	}
	if got := desc.FindStreamsByKey("forced"); !equalInts(got, []int{0}) {
		t.Fatalf("nested key search = %v", got)
	}
	if got := desc.FindStreamsByKey("language", 2, 3, 99); !equalInts(got, []int{2, 3}) {
		t.Fatalf("subset search = %v", got)
	}
	if got := desc.FindStreamsByKey("no_such_key"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

func TestFindStreamsByValue(t *testing.T) {
	desc := mustDescriptor(t, movieReport, 0)

	if got := desc.FindStreamsByValue("eng"); !equalInts(got, []int{1}) {
		t.Fatalf("FindStreamsByValue(eng) = %v", got)
	}
	if got := desc.FindStreamsByValue(6); !equalInts(got, []int{1}) {
		t.Fatalf("integer value should match decoded number, got %v", got)
	}
	if got := desc.FindStreamsByValue(1920.0, 0, 1); !equalInts(got, []int{0}) {
		t.Fatalf("float value search = %v", got)
	}
	if got := desc.FindStreamsByValue("6"); len(got) != 0 {
		t.Fatalf("string must not match number, got %v", got)
	}
}

func TestValueLookup(t *testing.T) {
	desc := mustDescriptor(t, movieReport, 0)

	if v, ok := desc.Value(0, "codec_name"); !ok || v != "h264" {
		t.Fatalf("top-level lookup = %v, %v", v, ok)
	}
	if v, ok := desc.Value(0, "forced"); !ok || v != float64(0) {
		t.Fatalf("nested lookup = %v, %v", v, ok)
	}
	if v, ok := desc.Value(4, "filename"); !ok || v != "font.ttf" {
		t.Fatalf("tag lookup = %v, %v", v, ok)
	}
	if _, ok := desc.Value(1, "width"); ok {
		t.Fatal("expected missing key to report false")
	}
	if _, ok := desc.Value(99, "index"); ok {
		t.Fatal("expected missing stream to report false")
	}
}
