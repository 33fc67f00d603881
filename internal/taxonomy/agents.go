package taxonomy

// DefaultAgentDenyList holds the internal and non-sales agent refs excluded
// from every agent-level aggregation. Ref 9999 is the warehouse-transfer
// pseudo-agent and is additionally dropped from invoice transforms.
var DefaultAgentDenyList = []int{
	9999, 9998, 9997, 2, 3, 4, 5, 6, 8, 12, 13, 14, 16, 17, 18,
	20, 21, 23, 24, 25, 27, 28, 29, 30, 31,
}

// WarehouseTransferAgent identifies internal stock transfers booked as
// invoices; they never represent sales.
const WarehouseTransferAgent = 9999

// AgentFilter applies the deny-list and an optional allow-set of agent refs.
type AgentFilter struct {
	deny  map[int]struct{}
	allow map[int]struct{}
}

// NewAgentFilter builds a filter from the deny-list and, when non-empty, a
// set of allowed agent refs. The deny-list wins over the allow-set.
func NewAgentFilter(denyList []int, allowed []int) AgentFilter {
	f := AgentFilter{deny: make(map[int]struct{}, len(denyList))}
	for _, ref := range denyList {
		f.deny[ref] = struct{}{}
	}
	if len(allowed) > 0 {
		f.allow = make(map[int]struct{}, len(allowed))
		for _, ref := range allowed {
			f.allow[ref] = struct{}{}
		}
	}
	return f
}

// Keep reports whether rows for the given agent ref participate.
func (f AgentFilter) Keep(ref int) bool {
	if _, denied := f.deny[ref]; denied {
		return false
	}
	if f.allow == nil {
		return true
	}
	_, ok := f.allow[ref]
	return ok
}

// Restricted reports whether an allow-set is in force.
func (f AgentFilter) Restricted() bool {
	return f.allow != nil
}
