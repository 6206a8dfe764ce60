package risk

import "testing"

func TestAllow(t *testing.T) {
	limits := Limits{MinRatioBP: 10000, MaxRatioBP: 50000}
	if !limits.Allow(11000) {
		t.Fatalf("expected ratio inside range to pass")
	}
	if !limits.Allow(10000) || !limits.Allow(50000) {
		t.Fatalf("expected bounds to be inclusive")
	}
	if limits.Allow(9999) {
		t.Fatalf("expected ratio below minimum to fail")
	}
	if limits.Allow(50001) {
		t.Fatalf("expected ratio above maximum to fail")
	}
}

func TestAllowUnset(t *testing.T) {
	var limits Limits
	if !limits.Allow(1) || !limits.Allow(^uint32(0)) {
		t.Fatalf("expected zero limits to allow everything")
	}
	if got := limits.Describe(); got != "[0, unbounded]" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := (Limits{MinRatioBP: 100, MaxRatioBP: 200}).Describe(); got != "[100, 200]" {
		t.Fatalf("unexpected description %q", got)
	}
}
