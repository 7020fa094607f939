package production

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type memorySources struct {
	threads []ThreadPurchase
	dyeings []DyeingProcess
	fabrics []FabricProduction

	dyeingErr error
	marked    map[string][]int64
}

func newMemorySources() *memorySources {
	return &memorySources{marked: make(map[string][]int64)}
}

func (m *memorySources) EligibleThreadPurchases(ctx context.Context) ([]ThreadPurchase, error) {
	return m.threads, nil
}

func (m *memorySources) EligibleDyeingProcesses(ctx context.Context) ([]DyeingProcess, error) {
	if m.dyeingErr != nil {
		return nil, m.dyeingErr
	}
	return m.dyeings, nil
}

func (m *memorySources) EligibleFabricProductions(ctx context.Context) ([]FabricProduction, error) {
	return m.fabrics, nil
}

func (m *memorySources) MarkThreadPurchaseAbsorbed(ctx context.Context, id int64) error {
	m.marked["thread"] = append(m.marked["thread"], id)
	return nil
}

func (m *memorySources) MarkDyeingProcessAbsorbed(ctx context.Context, id int64) error {
	m.marked["dyeing"] = append(m.marked["dyeing"], id)
	return nil
}

func (m *memorySources) MarkFabricProductionAbsorbed(ctx context.Context, id int64) error {
	m.marked["fabric"] = append(m.marked["fabric"], id)
	return nil
}

func TestScannerEligibleCollectsAllThreeDomains(t *testing.T) {
	src := newMemorySources()
	src.threads = []ThreadPurchase{{ID: 1, ThreadType: "cotton", Quantity: 120, Unit: "kg", Status: ThreadPurchaseReceived}}
	src.dyeings = []DyeingProcess{{ID: 2, Color: "indigo", Quantity: 80, Unit: "kg", ResultStatus: DyeingResultSuccess}}
	src.fabrics = []FabricProduction{
		{ID: 3, FabricType: "denim", Quantity: 400, Unit: "m", Status: FabricProductionCompleted},
		{ID: 4, FabricType: "twill", Quantity: 150, Unit: "m", Status: FabricProductionCompleted},
	}

	set, err := NewScanner(src, nil).Eligible(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Threads, 1)
	require.Len(t, set.Dyeings, 1)
	require.Len(t, set.Fabrics, 2)
}

func TestScannerEligiblePropagatesQueryFailure(t *testing.T) {
	src := newMemorySources()
	src.dyeingErr = errors.New("connection reset")

	_, err := NewScanner(src, nil).Eligible(context.Background())
	require.Error(t, err)
}

func TestScannerMarkDelegates(t *testing.T) {
	src := newMemorySources()
	scanner := NewScanner(src, nil)
	ctx := context.Background()

	require.NoError(t, scanner.MarkThreadPurchaseAbsorbed(ctx, 1))
	require.NoError(t, scanner.MarkDyeingProcessAbsorbed(ctx, 2))
	require.NoError(t, scanner.MarkFabricProductionAbsorbed(ctx, 3))
	require.Equal(t, []int64{1}, src.marked["thread"])
	require.Equal(t, []int64{2}, src.marked["dyeing"])
	require.Equal(t, []int64{3}, src.marked["fabric"])
}
