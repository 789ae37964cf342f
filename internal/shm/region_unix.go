//go:build unix

package shm

import "golang.org/x/sys/unix"

func allocate(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_SHARED)
}

func protect(data []byte) error {
	return unix.Mprotect(data, unix.PROT_READ)
}

func release(data []byte) error {
	return unix.Munmap(data)
}
