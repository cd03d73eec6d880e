package state

import (
	"testing"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/ping"
	"github.com/doridoridoriand/regionwatch/internal/registry"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
)

func genVerdicts(maxLen int) gopter.Gen {
	return gopter.Gen(func(genParams *gopter.GenParameters) *gopter.GenResult {
		n := genParams.Rng.Intn(maxLen) + 1
		seq := make([]bool, n)
		for i := range seq {
			seq[i] = genParams.Rng.Intn(3) != 0
		}
		return gopter.NewGenResult(seq, gopter.NoShrinker)
	})
}

func TestPropertyHistoryRingFIFO(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	props := gopter.NewProperties(params)

	props.Property("ring keeps the last min(n, cap) points in order", prop.ForAll(
		func(n int, capacity int) bool {
			ring := NewHistoryRing(capacity)
			for i := 0; i < n; i++ {
				ring.Push(HistoryPoint{Timestamp: baseTime.Add(time.Duration(i) * time.Second)})
			}
			want := n
			if want > capacity {
				want = capacity
			}
			points := ring.Points()
			if len(points) != want || ring.Len() != want {
				return false
			}
			for i, p := range points {
				expected := baseTime.Add(time.Duration(n-want+i) * time.Second)
				if !p.Timestamp.Equal(expected) {
					return false
				}
			}
			return true
		},
		gopter.Gen(func(genParams *gopter.GenParameters) *gopter.GenResult {
			return gopter.NewGenResult(genParams.Rng.Intn(200), gopter.NoShrinker)
		}),
		gopter.Gen(func(genParams *gopter.GenParameters) *gopter.GenResult {
			return gopter.NewGenResult(genParams.Rng.Intn(70)+1, gopter.NoShrinker)
		}),
	))

	props.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPropertyHysteresis(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	props := gopter.NewProperties(params)

	props.Property("status follows the failure counter", prop.ForAll(
		func(seq []bool) bool {
			cur := Hysteresis{Status: StatusChecking}
			for _, reachable := range seq {
				prev := cur
				var kind NoticeKind
				cur, kind = Transition(cur, reachable)
				switch {
				case reachable:
					if cur.Status != StatusOperational || cur.ConsecutiveFailures != 0 {
						return false
					}
					if (kind == NoticeRestored) != (prev.ConsecutiveFailures >= 2) {
						return false
					}
				case cur.ConsecutiveFailures == 1:
					if cur.Status != StatusCaution || kind != NoticeSuspect {
						return false
					}
				case cur.ConsecutiveFailures == 2:
					if cur.Status != StatusUnreachable || kind != NoticeLost {
						return false
					}
				default:
					if cur.Status != StatusUnreachable || kind != NoticeNone {
						return false
					}
				}
			}
			return true
		},
		genVerdicts(40),
	))

	props.Property("no lost notice without two consecutive failures", prop.ForAll(
		func(seq []bool) bool {
			cur := Hysteresis{Status: StatusChecking}
			run := 0
			for _, reachable := range seq {
				var kind NoticeKind
				cur, kind = Transition(cur, reachable)
				if reachable {
					run = 0
				} else {
					run++
				}
				if kind == NoticeLost && run != 2 {
					return false
				}
			}
			return true
		},
		genVerdicts(40),
	))

	props.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPropertyLatencySmoothing(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	props := gopter.NewProperties(params)

	props.Property("constant samples converge without overshoot", prop.ForAll(
		func(start int, sample int) bool {
			s := int64(sample)
			cur := int64(start)
			for i := 0; i < 50; i++ {
				next := SmoothLatency(&cur, s)
				if cur >= s && next < s {
					return false
				}
				if cur <= s && next > s {
					return false
				}
				cur = next
			}
			diff := cur - s
			if diff < 0 {
				diff = -diff
			}
			return diff <= 1
		},
		gopter.Gen(func(genParams *gopter.GenParameters) *gopter.GenResult {
			return gopter.NewGenResult(genParams.Rng.Intn(2000), gopter.NoShrinker)
		}),
		gopter.Gen(func(genParams *gopter.GenParameters) *gopter.GenResult {
			return gopter.NewGenResult(genParams.Rng.Intn(2000), gopter.NoShrinker)
		}),
	))

	props.Property("first sample is taken as-is", prop.ForAll(
		func(sample int) bool {
			return SmoothLatency(nil, int64(sample)) == int64(sample)
		},
		gopter.Gen(func(genParams *gopter.GenParameters) *gopter.GenResult {
			return gopter.NewGenResult(genParams.Rng.Intn(5000), gopter.NoShrinker)
		}),
	))

	props.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPropertyStoreDeterminism(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	props := gopter.NewProperties(params)

	props.Property("replaying results yields identical state", prop.ForAll(
		func(seq []bool) bool {
			run := func() (EndpointSnapshot, []string) {
				reg, _ := registry.New([]registry.Group{{Name: "g", Endpoints: []registry.Endpoint{{Address: "a"}}}})
				store := NewStore(reg, DefaultHistorySize)
				var messages []string
				for i, reachable := range seq {
					result := ping.Result{Reachable: reachable, Latency: time.Duration(10+i) * time.Millisecond}
					_, n, _ := store.Apply("a", result, baseTime.Add(time.Duration(i)*time.Minute))
					if n != nil {
						messages = append(messages, n.Message)
					}
				}
				snap, _ := store.Endpoint("a")
				return snap, messages
			}

			a, am := run()
			b, bm := run()
			if a.Status != b.Status || a.ConsecutiveFailures != b.ConsecutiveFailures || len(a.History) != len(b.History) {
				return false
			}
			if (a.LatencyMs == nil) != (b.LatencyMs == nil) || (a.LatencyMs != nil && *a.LatencyMs != *b.LatencyMs) {
				return false
			}
			if len(am) != len(bm) {
				return false
			}
			for i := range am {
				if am[i] != bm[i] {
					return false
				}
			}
			return len(a.History) <= DefaultHistorySize
		},
		genVerdicts(120),
	))

	props.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestPropertyAggregateChecking(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	props := gopter.NewProperties(params)

	all := AllStatuses()
	props.Property("any Checking member yields Checking", prop.ForAll(
		func(statuses []Status) bool {
			hasChecking := false
			for _, s := range statuses {
				if s == StatusChecking {
					hasChecking = true
				}
			}
			got := Aggregate(statuses)
			if hasChecking {
				return got == StatusChecking
			}
			return got != StatusChecking || len(statuses) == 0
		},
		gopter.Gen(func(genParams *gopter.GenParameters) *gopter.GenResult {
			n := genParams.Rng.Intn(8)
			out := make([]Status, n)
			for i := range out {
				out[i] = all[genParams.Rng.Intn(len(all))]
			}
			return gopter.NewGenResult(out, gopter.NoShrinker)
		}),
	))

	props.TestingRun(t, gopter.ConsoleReporter(false))
}
