// Package goroutineid identifies the current goroutine so that code which
// must only run on the event loop goroutine can detect whether it already is.
package goroutineid

import (
	"runtime"
	"sync"
)

// The stack header is "goroutine N [state]:\n"; a small buffer always holds
// the first line.
var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 64)
		return &b
	},
}

const header = "goroutine "

// Get returns the current goroutine's ID, or 0 if the runtime stack header
// could not be parsed. The "goroutine N" header format has been stable since
// Go 1.5.
func Get() int64 {
	bp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bp)
	buf := *bp
	n := runtime.Stack(buf, false)
	return parse(buf[:n])
}

// parse extracts N from a stack trace beginning "goroutine N ". It works on
// the raw buffer to avoid allocating on what is a hot path for loop-affinity
// checks.
func parse(stack []byte) int64 {
	if len(stack) < len(header) {
		return 0
	}
	for i := 0; i < len(header); i++ {
		if stack[i] != header[i] {
			return 0
		}
	}
	var id int64
	for _, b := range stack[len(header):] {
		if b < '0' || b > '9' {
			break
		}
		id = id*10 + int64(b-'0')
	}
	return id
}
