// Package risk bounds the collateral ratio values governance is allowed to submit.
package risk

import "fmt"

// Limits is an inclusive basis-point range. A zero bound is unset.
type Limits struct {
	MinRatioBP uint32
	MaxRatioBP uint32
}

func (l Limits) Allow(bp uint32) bool {
	if l.MinRatioBP > 0 && bp < l.MinRatioBP {
		return false
	}
	if l.MaxRatioBP > 0 && bp > l.MaxRatioBP {
		return false
	}
	return true
}

// Describe renders the range for user-facing messages.
func (l Limits) Describe() string {
	max := "unbounded"
	if l.MaxRatioBP > 0 {
		max = fmt.Sprint(l.MaxRatioBP)
	}
	return fmt.Sprintf("[%d, %s]", l.MinRatioBP, max)
}
