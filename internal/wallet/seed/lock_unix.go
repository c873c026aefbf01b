//go:build unix

package seed

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Pin keeps b out of swap. Failure is not fatal: unprivileged processes
// commonly run with a small RLIMIT_MEMLOCK.
func Pin(b []byte) {
	if len(b) == 0 {
		return
	}

	if err := unix.Mlock(b); err != nil {
		log.Debug().Err(err).Msg("Failed to mlock secret buffer")
	}
}

func Unpin(b []byte) {
	if len(b) == 0 {
		return
	}

	_ = unix.Munlock(b)
}
