package production

import "time"

// InventoryStatus marks whether a production record has been absorbed into
// inventory. It is a denormalized cache written after absorption; the
// inventory transaction back-reference stays the authoritative signal.
type InventoryStatus string

const (
	InventoryStatusNone  InventoryStatus = ""
	InventoryStatusAdded InventoryStatus = "ADDED"
)

// Thread purchase lifecycle.
const (
	ThreadPurchaseOrdered  = "ORDERED"
	ThreadPurchaseReceived = "RECEIVED"
)

// Dyeing result states.
const (
	DyeingResultPending = "PENDING"
	DyeingResultSuccess = "SUCCESS"
	DyeingResultFailed  = "FAILED"
)

// Fabric production lifecycle.
const (
	FabricProductionInProgress = "IN_PROGRESS"
	FabricProductionCompleted  = "COMPLETED"
)

// ThreadPurchase is a raw-thread procurement record.
type ThreadPurchase struct {
	ID              int64
	ThreadType      string
	Color           string
	Quantity        float64
	Unit            string
	Status          string
	InventoryStatus InventoryStatus
	PurchasedAt     time.Time
}

// DyeingProcess is one dyeing run over purchased thread.
type DyeingProcess struct {
	ID              int64
	ThreadType      string
	Color           string
	Quantity        float64
	Unit            string
	ResultStatus    string
	InventoryStatus InventoryStatus
	CompletedAt     time.Time
}

// FabricProduction is one weaving run producing finished fabric.
type FabricProduction struct {
	ID              int64
	FabricType      string
	Quantity        float64
	Unit            string
	Status          string
	InventoryStatus InventoryStatus
	CompletedAt     time.Time
}

// EligibleSet holds the records from each upstream domain that qualify for
// inventory absorption: received thread purchases, successful dyeing runs and
// completed fabric productions, each not yet flagged as added.
type EligibleSet struct {
	Threads []ThreadPurchase
	Dyeings []DyeingProcess
	Fabrics []FabricProduction
}
