package checks

import (
	"context"
	"fmt"

	"github.com/charlesng35/socialink/internal/monitoring"
)

// QueueDepth is satisfied by the background task runner.
type QueueDepth interface {
	Pending() int
	Capacity() int
}

// TaskQueue reports degraded once the background queue is at least
// threshold full, since further submissions are about to be dropped.
func TaskQueue(queue QueueDepth, threshold float64) monitoring.Check {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.9
	}
	return monitoring.Check{
		Name: "tasks",
		Run: func(context.Context) monitoring.ProbeResult {
			if queue == nil {
				return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "task runner not configured"}
			}
			pending, capacity := queue.Pending(), queue.Capacity()
			details := fmt.Sprintf("%d/%d queued", pending, capacity)
			if capacity > 0 && float64(pending)/float64(capacity) >= threshold {
				return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: details}
			}
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: details}
		},
	}
}
