//go:build !windows

package transfer

import "os"

// OpenShared opens path for reading. Unix opens take no locks, so concurrent
// readers and writers are unaffected.
func OpenShared(path string) (*os.File, error) {
	return os.Open(path)
}
