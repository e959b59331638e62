package shm

import "github.com/nullhash/draizer/internal/domain"

// UpdateStats folds one operation's end-to-end latency into the shared
// header's rolling metrics (the contract). p99_latency_us is a rolling-max
// approximation, not a true high-percentile estimator — the matcher
// separately maintains a small tail-sample estimate and writes it into
// P99LatencyUsEst before calling UpdateStats, rather than further
// mislabeling PeakLatencyUs.
func UpdateStats(h *domain.SharedHeader, latencyUs, nowNs float64, p99Estimate float64) {
	h.AvgLatencyUs = (9*h.AvgLatencyUs + latencyUs) / 10
	if latencyUs > h.PeakLatencyUs {
		h.PeakLatencyUs = latencyUs
	}
	h.P99LatencyUsEst = p99Estimate
	h.LastUpdateNs = int64(nowNs)
}
