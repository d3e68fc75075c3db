// internal/recovery/recovery.go
// Package recovery turns panics into a clean exit. Registered cleanups run
// first so the audio device is released and the terminal restored before
// the stack trace is printed.
package recovery

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"slices"
	"sync"
)

var (
	mu       sync.Mutex
	cleanups = map[int]func(){}
	order    []int
	nextID   int

	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// OnPanic registers fn to run before the process exits on a panic.
// Cleanups run newest first. The returned func unregisters fn.
func OnPanic(fn func()) (remove func()) {
	mu.Lock()
	defer mu.Unlock()
	id := nextID
	nextID++
	cleanups[id] = fn
	order = append(order, id)
	return func() {
		mu.Lock()
		defer mu.Unlock()
		delete(cleanups, id)
		order = slices.DeleteFunc(order, func(v int) bool { return v == id })
	}
}

// HandlePanic should be deferred at the top of main() or goroutines.
// It runs registered cleanups, reports the panic and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		fail(r, nil)
	}
}

// HandlePanicFunc is HandlePanic with an extra cleanup that runs before the
// registered ones.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		fail(r, cleanup)
	}
}

func fail(r any, cleanup func()) {
	stack := debug.Stack()
	if cleanup != nil {
		runSafely(cleanup)
	}
	runCleanups()
	_, _ = fmt.Fprintf(stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, stack)
	exit(1)
}

func runCleanups() {
	mu.Lock()
	fns := make([]func(), 0, len(cleanups))
	for i := len(order) - 1; i >= 0; i-- {
		if fn, ok := cleanups[order[i]]; ok {
			fns = append(fns, fn)
		}
	}
	cleanups = map[int]func(){}
	order = nil
	mu.Unlock()

	for _, fn := range fns {
		runSafely(fn)
	}
}

// runSafely keeps a panicking cleanup from hiding the original panic.
func runSafely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(stderr, "cleanup panicked: %v\n", r)
		}
	}()
	fn()
}
