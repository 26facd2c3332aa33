//go:build !linux

package uring

import "fmt"

// newPlatformRing has no real io_uring backend outside Linux; New() falls
// through to the portable poll-based ring.
func newPlatformRing(entries uint32) (Ring, error) {
	return nil, fmt.Errorf("uring: no native ring backend on this platform")
}
