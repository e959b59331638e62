package main

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/nullhash/draizer/internal/domain"
	"github.com/nullhash/draizer/internal/shm"
)

// runStatus attaches to the engine's shared-memory region and prints a
// snapshot of the header counters plus the unread operations. It does
// not advance Tail, so the external consumer still receives them.
func runStatus() error {
	region, err := shm.Open(domain.ShmName)
	if err != nil {
		return fmt.Errorf("attach to %s: %w", domain.ShmName, err)
	}
	defer region.Close()

	h := region.Header
	fmt.Printf("engine_running: %v\n", h.EngineRunning)
	fmt.Printf("balance: $%s   total_profit: $%s\n",
		humanize.CommafWithDigits(h.BalanceUSD, 2),
		humanize.CommafWithDigits(h.TotalProfitUSD, 2))
	fmt.Printf("opps_detected: %s   opps_executed: %s   win_rate: %.1f%%\n",
		humanize.Comma(int64(h.OppsDetected)), humanize.Comma(int64(h.OppsExecuted)), h.WinRate*100)
	fmt.Printf("avg_latency_us: %.2f   peak_latency_us: %.2f   p99_est_us: %.2f\n",
		h.AvgLatencyUs, h.PeakLatencyUs, h.P99LatencyUsEst)

	ops := make([]domain.ShmOperation, domain.OpsRingCapacity)
	tail := atomic.LoadUint32(&h.Tail)
	head := atomic.LoadUint32(&h.Head)
	n := 0
	for tail != head && n < len(ops) {
		ops[n] = h.Ops[tail]
		tail = (tail + 1) % domain.OpsRingCapacity
		n++
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Symbol", "Buy", "Sell", "Qty", "Entry", "Exit", "PnL", "Spread(bps)")
	for i := 0; i < n; i++ {
		op := ops[i]
		table.Append(
			fmt.Sprintf("%d", op.ID),
			trimZero(op.Symbol[:]),
			trimZero(op.BuyVenue[:]),
			trimZero(op.SellVenue[:]),
			fmt.Sprintf("%.6f", op.Quantity),
			fmt.Sprintf("%.2f", op.EntryPrice),
			fmt.Sprintf("%.2f", op.ExitPrice),
			fmt.Sprintf("%.4f", op.PnL),
			fmt.Sprintf("%.2f", op.SpreadBps),
		)
	}
	table.Render()

	return nil
}

func trimZero(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}
