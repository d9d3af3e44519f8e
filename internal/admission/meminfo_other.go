//go:build !linux

package admission

import "errors"

// readAvailableMemory has no portable implementation outside Linux in
// this repo; --memfree is effectively a no-op gate there. When --memfree
// is set, this error makes the gate admit the job at once, without
// consulting the load-average gate either.
func readAvailableMemory() (uint64, error) {
	return 0, errors.New("admission: memfree gate unsupported on this platform")
}
