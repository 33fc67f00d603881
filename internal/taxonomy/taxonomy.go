// Package taxonomy maps product classification codes onto business units and
// carries the agent deny-list used by every agent-level aggregation.
package taxonomy

// UnitOther is the catch-all business unit for unmapped codes.
// Classification is total: every code resolves to some unit.
const UnitOther = "OTROS"

// Finished-goods business units keyed by product class code.
var finishedGoodsUnits = map[string][]string{
	"RÍGIDOS":    {"PS", "ABS", "PE", "PET-G", "PP", "MAQUILA"},
	"CORRUGADOS": {"LAMICORR", "LAMINADOS"},
	"PET":        {"PET"},
	UnitOther:    {"CARTEA", "CONVERTING", "PLA", "SER", "LOGISTICA", "OTRO"},
}

// Raw-material business units keyed by product sub-sub-class code.
var rawMaterialUnits = map[string][]string{
	"RÍGIDOS":    {"RIGIDO", "PETG"},
	"CORRUGADOS": {"LAMICORR"},
	"PET":        {"PET"},
}

// RawMaterialClasses are the purchase classes covered by the raw-material
// aggregations.
var RawMaterialClasses = []string{"RESINA", "MOLIDO"}

// RawMaterialSubClasses enumerates the resin families used for purchase
// price breakdowns.
var RawMaterialSubClasses = []string{"ABS", "PE", "PET", "PET-G", "PP", "PS"}

var (
	finishedGoodsIndex = invert(finishedGoodsUnits)
	rawMaterialIndex   = invert(rawMaterialUnits)
)

func invert(units map[string][]string) map[string]string {
	index := make(map[string]string)
	for unit, codes := range units {
		for _, code := range codes {
			index[code] = unit
		}
	}
	return index
}

// BusinessUnit resolves a finished-goods class code to its business unit.
func BusinessUnit(classCode string) string {
	if unit, ok := finishedGoodsIndex[classCode]; ok {
		return unit
	}
	return UnitOther
}

// RawMaterialBusinessUnit resolves a raw-material sub-sub-class code to its
// business unit.
func RawMaterialBusinessUnit(subSubClass string) string {
	if unit, ok := rawMaterialIndex[subSubClass]; ok {
		return unit
	}
	return UnitOther
}

// BusinessUnits lists the finished-goods business unit names.
func BusinessUnits() []string {
	return []string{"RÍGIDOS", "CORRUGADOS", "PET", UnitOther}
}

// ClassCodes returns every finished-goods class code, in unit order.
func ClassCodes() []string {
	var codes []string
	for _, unit := range BusinessUnits() {
		codes = append(codes, finishedGoodsUnits[unit]...)
	}
	return codes
}
