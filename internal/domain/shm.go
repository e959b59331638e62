package domain

// These sizes and the ring capacity are the bit-exact wire contract shared
// with the external consumer process . They must never change without
// a coordinated change on the reader side.
const (
	OpTypeLen     = 20
	OpStrategyLen = 20
	OpSymbolLen   = 12
	OpVenueLen    = 20

	OpsRingCapacity = 100

	ShmName = "/draizer_v2"
)

// ShmOperation is one executed paper-trade operation published through the
// shared-memory ring (C8). The byte layout is packed and
// host-endian; string fields are fixed-width and null-padded, never
// null-terminated, so a reader must trim at the first zero byte itself.
type ShmOperation struct {
	ID           uint64
	TimestampNs  int64
	Type         [OpTypeLen]byte
	Strategy     [OpStrategyLen]byte
	Symbol       [OpSymbolLen]byte
	BuyVenue     [OpVenueLen]byte
	SellVenue    [OpVenueLen]byte
	Quantity     float64
	EntryPrice   float64
	ExitPrice    float64
	PnL          float64
	PnLPercent   float64
	SpreadBps    float64
	FeesPaid     float64
	IsOpen       bool
	_            [7]byte // explicit padding, the packed layout's padding[7]
}

// SharedHeader is the fixed layout of the shared-memory region (C8).
// It embeds the operations ring directly so the whole region is exactly
// sizeof(SharedHeader) bytes — there is no separate allocation for the
// ring.
type SharedHeader struct {
	EngineRunning    bool
	StrategyEnabled  [3]bool
	_                [4]byte // re-align the uint64 block below to 8 bytes

	OppsDetected  uint64
	OppsExecuted  uint64
	OrdersPlaced  uint64
	OrdersFilled  uint64

	TotalProfitUSD float64
	BalanceUSD     float64

	Wins          uint64
	Losses        uint64
	WinRate       float64
	OpenPositions uint64

	AvgLatencyUs       float64
	PeakLatencyUs      float64 // rolling max — see open design question
	P99LatencyUsEst    float64 // small fixed-sample tail estimate, see the design notes

	LastUpdateNs int64

	Head             uint32
	Tail             uint32
	TotalOperations  uint64
	Ops              [OpsRingCapacity]ShmOperation
}
