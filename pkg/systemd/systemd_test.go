package systemd

import (
	"context"
	"testing"
)

func TestNoopOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")

	for name, fn := range map[string]func() (bool, error){
		"ready":    Ready,
		"stopping": Stopping,
		"status":   func() (bool, error) { return Status("idle") },
	} {
		sent, err := fn()
		if sent || err != nil {
			t.Fatalf("%s: sent=%v err=%v", name, sent, err)
		}
	}
	if err := Watchdog(context.Background()); err != nil {
		t.Fatalf("Watchdog: %v", err)
	}
}
