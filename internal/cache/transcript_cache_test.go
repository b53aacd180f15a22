package cache

import "testing"

func TestKey(t *testing.T) {
	k := Key("meeting.mp4", 41943040)
	if len(k) != 16 {
		t.Fatalf("expected 16-char key, got %d chars: %q", len(k), k)
	}
	// Deterministic for identical inputs.
	if k2 := Key("meeting.mp4", 41943040); k2 != k {
		t.Errorf("key not stable: %q vs %q", k, k2)
	}
	// Different inputs produce different keys.
	if k3 := Key("meeting.mp4", 41943041); k3 == k {
		t.Error("expected size change to change the key")
	}
	if k4 := Key("other.mp4", 41943040); k4 == k {
		t.Error("expected filename change to change the key")
	}
}
