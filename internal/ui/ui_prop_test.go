package ui

import (
	"testing"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/state"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genStatuses() gopter.Gen {
	return gen.SliceOf(gen.IntRange(int(state.StatusOperational), int(state.StatusCaution)))
}

func toHistory(raw []int) []state.HistoryPoint {
	out := make([]state.HistoryPoint, len(raw))
	for i, s := range raw {
		out[i] = state.HistoryPoint{Timestamp: now.Add(time.Duration(i) * time.Second), Status: state.Status(s)}
	}
	return out
}

func TestPropertyHistoryStripWidth(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	props := gopter.NewProperties(params)

	props.Property("strip always fills exactly the requested slots", prop.ForAll(
		func(raw []int, slots int) bool {
			return len([]rune(lineText(historyStrip(toHistory(raw), slots)))) == slots
		},
		genStatuses(),
		gen.IntRange(1, 80),
	))

	props.Property("strip ends with the newest point", prop.ForAll(
		func(raw []int, slots int) bool {
			if len(raw) == 0 {
				return true
			}
			runes := []rune(lineText(historyStrip(toHistory(raw), slots)))
			return runes[len(runes)-1] == historyRune(state.Status(raw[len(raw)-1]))
		},
		genStatuses(),
		gen.IntRange(1, 80),
	))

	props.TestingRun(t)
}

func TestPropertyEndpointLineFitsWidth(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	props := gopter.NewProperties(params)
	u := newTestUI(&stubEngine{})

	props.Property("rendered line never exceeds the box width", prop.ForAll(
		func(addr string, raw []int, width int) bool {
			snap := state.EndpointSnapshot{
				Address:     addr,
				Status:      state.StatusOperational,
				LastProbeAt: now,
				History:     toHistory(raw),
			}
			return len([]rune(lineText(u.formatEndpointLine(width, snap, now)))) <= width
		},
		gen.AlphaString(),
		genStatuses(),
		gen.IntRange(1, 200),
	))

	props.TestingRun(t)
}
