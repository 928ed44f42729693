package domain

import "time"

// Outcome is the resolved ground truth for a previously observed event:
// 1 when the event condition was met, 0 when it was not. Outcomes arrive
// from an external resolution step and are only consumed by the backtester.
type Outcome struct {
	EventID        string
	ContractTicker string
	Result         int // 0 or 1
	ResolvedAt     time.Time
}
