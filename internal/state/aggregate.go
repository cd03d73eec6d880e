package state

// Aggregate rolls a group's endpoint statuses into one. It is the only
// rollup rule in the program; cards, reports and metrics all call it.
//
//	empty            -> Checking
//	any Checking     -> Checking
//	any Unreachable  -> Unreachable
//	any Caution      -> Caution
//	all Operational  -> Operational
//	otherwise        -> Unknown
func Aggregate(statuses []Status) Status {
	if len(statuses) == 0 {
		return StatusChecking
	}
	var checking, unreachable, caution, operational int
	for _, s := range statuses {
		switch s {
		case StatusChecking:
			checking++
		case StatusUnreachable:
			unreachable++
		case StatusCaution:
			caution++
		case StatusOperational:
			operational++
		}
	}
	switch {
	case checking > 0:
		return StatusChecking
	case unreachable > 0:
		return StatusUnreachable
	case caution > 0:
		return StatusCaution
	case operational == len(statuses):
		return StatusOperational
	default:
		return StatusUnknown
	}
}
