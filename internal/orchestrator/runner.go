package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/switchback-net/switchback/pkg/types"
)

// Runner fans the device list out across groups. Groups run in
// parallel up to a concurrency limit; devices within a group run
// strictly in sequence, since the group's checkout is a single mutable
// resource. A device failure never stops the batch.
type Runner struct {
	orch        *Orchestrator
	concurrency int
}

// NewRunner returns a Runner processing up to concurrency groups at
// once.
func NewRunner(orch *Orchestrator, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Runner{orch: orch, concurrency: concurrency}
}

// Run processes every device and returns the per-device results in
// inventory order (groups in first-seen order, devices in file order).
func (r *Runner) Run(ctx context.Context, devices []types.Device) types.RunSummary {
	start := time.Now()

	var groups []string
	byGroup := make(map[string][]types.Device)
	for _, dev := range devices {
		if _, seen := byGroup[dev.Group]; !seen {
			groups = append(groups, dev.Group)
		}
		byGroup[dev.Group] = append(byGroup[dev.Group], dev)
	}

	sem := make(chan struct{}, r.concurrency)
	resultsByGroup := make(map[string][]types.DeviceResult, len(groups))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, group := range groups {
		wg.Add(1)
		go func(group string, devs []types.Device) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results := make([]types.DeviceResult, 0, len(devs))
			for _, dev := range devs {
				results = append(results, r.orch.ProcessDevice(ctx, dev))
			}
			mu.Lock()
			resultsByGroup[group] = results
			mu.Unlock()
		}(group, byGroup[group])
	}
	wg.Wait()

	summary := types.RunSummary{StartedAt: start}
	for _, group := range groups {
		summary.Results = append(summary.Results, resultsByGroup[group]...)
	}
	summary.Elapsed = time.Since(start)
	return summary
}
