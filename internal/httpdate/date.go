// Package httpdate provides a cached, thread-safe RFC1123 date string for
// the Date response header, refreshed on a ticker instead of formatted on
// every request.
package httpdate

import (
	"sync/atomic"
	"time"
	"unsafe"
)

var current unsafe.Pointer

// StartTicker seeds the cached date immediately and refreshes it every
// 500ms until the returned stop function is called.
func StartTicker() func() {
	update()

	ticker := time.NewTicker(500 * time.Millisecond)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				update()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}

func update() {
	s := time.Now().UTC().Format(time.RFC1123)
	b := []byte(s)
	atomic.StorePointer(&current, unsafe.Pointer(&b))
}

// Current returns the cached Date header value. Falls back to formatting on
// the spot if the ticker was never started (e.g. in unit tests).
func Current() []byte {
	p := atomic.LoadPointer(&current)
	if p == nil {
		return []byte(time.Now().UTC().Format(time.RFC1123))
	}
	return *(*[]byte)(p)
}
