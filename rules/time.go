//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TimeNowSub detects time.Now().Sub(t) and suggests time.Since.
func TimeNowSub(m dsl.Matcher) {
	m.Match(
		`time.Now().Sub($t)`,
	).
		Report("use time.Since($t) instead of time.Now().Sub($t)").
		Suggest("time.Since($t)")
}

// TickerWithoutStop detects time.NewTicker assignments whose ticker
// is never stopped in the same function. Leaked tickers keep their
// goroutine alive, which the playback and pipeline loops must avoid.
func TickerWithoutStop(m dsl.Matcher) {
	m.Match(
		`$t := time.NewTicker($_); $*body`,
	).
		Where(!m["body"].Text.Matches(`\.Stop\(\)`)).
		Report("ticker $t is never stopped; defer $t.Stop() after creating it")
}

// SleepInLoopBody flags bare time.Sleep inside for loops in
// production code; loops that must remain cancellable should select
// on a quit channel instead.
func SleepInLoopBody(m dsl.Matcher) {
	m.Match(
		`for { $*_; time.Sleep($d); $*_ }`,
	).
		Where(m.File().Name.Matches(`loop|pipeline|playback`) && !m.File().Name.Matches(`_test`)).
		Report("bare time.Sleep in a worker loop ignores stop requests for up to $d; select on the quit channel instead")
}
