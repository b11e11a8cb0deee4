//go:build !linux

package render

import "github.com/pkg/errors"

func pinThread(cpu int) error {
	return errors.Errorf("cpu pinning not supported on this platform (cpu %d)", cpu)
}
