package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAssemblesSnapshot(t *testing.T) {
	provider := &MemoryProvider{
		InvoiceRows: []Invoice{{ID: "A1"}},
		ProductRows: []Product{{Ref: "PS-01", ClassCode: "PS"}},
		AgentRows:   []Agent{{Ref: 1, Name: "PEREZ JUAN"}},
	}

	snap, err := Load(context.Background(), provider)
	require.NoError(t, err)
	require.NotEmpty(t, snap.ID)
	require.False(t, snap.TakenAt.IsZero())
	require.Len(t, snap.Invoices, 1)
	require.Len(t, snap.Products, 1)
	require.Empty(t, snap.CreditNotes)
}

func TestLoadSurfacesFetchError(t *testing.T) {
	provider := &MemoryProvider{
		Errs: map[string]error{"credit_notes": errors.New("relation gone")},
	}

	_, err := Load(context.Background(), provider)
	require.Error(t, err)

	var fetchError *FetchError
	require.ErrorAs(t, err, &fetchError)
	require.Equal(t, "credit_notes", fetchError.Table)
	require.Contains(t, err.Error(), "relation gone")
}

func TestSnapshotLookups(t *testing.T) {
	snap := &Snapshot{
		Products: []Product{{Ref: "PS-01", ClassCode: "PS", WeightFactor: 25}},
		Clients:  []Client{{Ref: 7, Name: "EMPAQUES DEL NORTE"}},
		Agents: []Agent{
			{Ref: 1, Name: "PEREZ JUAN"},
			{Ref: 7, Name: "RIOS ANA"},
		},
	}

	require.Equal(t, 25.0, snap.ProductIndex()["PS-01"].WeightFactor)
	require.Equal(t, "EMPAQUES DEL NORTE", snap.ClientNames()[7])
	require.Equal(t, "PEREZ JUAN", snap.AgentNames()[1])
	require.Equal(t, []int{7}, snap.ResolveAgents([]string{"RIOS ANA", "NO SUCH AGENT"}))
}

func TestMemoryProviderCopiesRows(t *testing.T) {
	provider := &MemoryProvider{InvoiceRows: []Invoice{{ID: "A1"}}}
	rows, err := provider.Invoices(context.Background())
	require.NoError(t, err)

	rows[0].ID = "mutated"
	require.Equal(t, "A1", provider.InvoiceRows[0].ID)
}
