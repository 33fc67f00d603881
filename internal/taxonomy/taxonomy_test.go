package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBusinessUnit(t *testing.T) {
	require.Equal(t, "RÍGIDOS", BusinessUnit("PS"))
	require.Equal(t, "CORRUGADOS", BusinessUnit("LAMICORR"))
	require.Equal(t, "PET", BusinessUnit("PET"))
	require.Equal(t, UnitOther, BusinessUnit("CARTEA"))
	require.Equal(t, UnitOther, BusinessUnit("UNMAPPED-CODE"))
}

func TestRawMaterialBusinessUnit(t *testing.T) {
	require.Equal(t, "RÍGIDOS", RawMaterialBusinessUnit("PETG"))
	require.Equal(t, "CORRUGADOS", RawMaterialBusinessUnit("LAMICORR"))
	require.Equal(t, UnitOther, RawMaterialBusinessUnit("NYLON"))
}

func TestClassificationIsTotal(t *testing.T) {
	for _, code := range ClassCodes() {
		require.NotEmpty(t, BusinessUnit(code))
	}
}

func TestAgentFilterDenyList(t *testing.T) {
	f := NewAgentFilter(DefaultAgentDenyList, nil)
	require.False(t, f.Keep(WarehouseTransferAgent))
	require.False(t, f.Keep(16))
	require.True(t, f.Keep(1))
	require.False(t, f.Restricted())
}

func TestAgentFilterAllowSet(t *testing.T) {
	f := NewAgentFilter(DefaultAgentDenyList, []int{1, 7})
	require.True(t, f.Keep(1))
	require.True(t, f.Keep(7))
	require.False(t, f.Keep(10))
	// Deny-list wins even when explicitly allowed.
	f = NewAgentFilter(DefaultAgentDenyList, []int{9999})
	require.False(t, f.Keep(9999))
	require.True(t, f.Restricted())
}
