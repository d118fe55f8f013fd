package envutil

import (
	"testing"
	"time"
)

func TestFloatAndBool(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_F", "0.25")
	t.Setenv("ENVUTIL_TEST_BAD", "abc")
	t.Setenv("ENVUTIL_TEST_B", "off")

	if got := Float("ENVUTIL_TEST_F", 1); got != 0.25 {
		t.Fatalf("Float: got=%v", got)
	}
	if got := Float("ENVUTIL_TEST_BAD", 1); got != 1 {
		t.Fatalf("Float(bad): got=%v", got)
	}
	if got := Bool("ENVUTIL_TEST_B", true); got {
		t.Fatalf("Bool(off): got=%v", got)
	}
	if got := Bool("ENVUTIL_TEST_MISSING", true); !got {
		t.Fatalf("Bool(missing): got=%v", got)
	}
}

func TestDurations(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_S", "-4")
	if got := Seconds("ENVUTIL_TEST_S", 3); got != 0 {
		t.Fatalf("Seconds(negative): got=%v", got)
	}
	if got := Millis("ENVUTIL_TEST_MISSING", 250); got != 250*time.Millisecond {
		t.Fatalf("Millis(default): got=%v", got)
	}
}
