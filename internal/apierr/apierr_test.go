package apierr

import "testing"

func TestHTTPStatusQueryTimeCodes(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{InvalidQuery, 400},
		{NoSegment, 400},
		{NoRoute, 400},
		{InternalError, 500},
	}
	for _, c := range cases {
		e := New(c.code, "boom")
		if got := e.HTTPStatus(); got != c.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestHTTPStatusLoadTimeFatalIsZero(t *testing.T) {
	for _, code := range []Code{InvalidFingerprint, IncompatibleVersion, DatatypeSizeMismatch} {
		e := New(code, "boom")
		if got := e.HTTPStatus(); got != 0 {
			t.Errorf("HTTPStatus(%s) = %d, want 0 (load-time fatal)", code, got)
		}
		if !IsLoadTimeFatal(code) {
			t.Errorf("IsLoadTimeFatal(%s) = false, want true", code)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	e := New(NoSegment, "coordinate %d outside data", 1)
	want := "NoSegment: coordinate 1 outside data"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}
