//go:build linux

package render

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// pinThread binds the calling OS thread to cpu. The caller must hold
// runtime.LockOSThread.
func pinThread(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "pin render thread to cpu %d", cpu)
	}
	return nil
}
