//go:build ruleguard

// Package gorules defines custom linter rules for this codebase.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo detects the manual sync.WaitGroup Add/Done pattern and
// suggests Go 1.25's wg.Go().
//
// Old pattern:
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    doSomething()
//	}()
//
// New pattern:
//
//	wg.Go(func() {
//	    doSomething()
//	})
//
// See: https://pkg.go.dev/sync#WaitGroup.Go
func WaitGroupGo(m dsl.Matcher) {
	m.Match(
		`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`,
	).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { $body }) instead of manual Add/Done pattern (Go 1.25+)").
		Suggest("$wg.Go(func() { $body })")
}

// MutexValueCopy detects locks taken on a mutex that was copied by
// value, which silently breaks mutual exclusion. The worker loops and
// ring buffers here depend on a single shared mutex per instance.
func MutexValueCopy(m dsl.Matcher) {
	m.Match(
		`func ($recv $type) $name($*_) $*_ { $*_; $recv.mu.Lock(); $*_ }`,
	).
		Where(m["type"].Text.Matches(`^[A-Z]`) && !m["type"].Text.Matches(`^\*`)).
		Report("method locks $recv.mu through a value receiver; the mutex is a copy and guards nothing")
}
