//go:build linux
// +build linux

// File: internal/concurrency/numa_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux NUMA topology probing via sysfs, avoiding a libnuma cgo dependency
// for what is a read-only, best-effort query.

package concurrency

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

const sysNodePath = "/sys/devices/system/node"

// getcpu wraps the Linux getcpu(2) syscall directly; x/sys/unix does not
// expose a stable wrapper for it across all supported architectures.
func getcpu() (cpu, node uint32, err error) {
	_, _, errno := syscall.RawSyscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cpu)), uintptr(unsafe.Pointer(&node)), 0)
	if errno != 0 {
		return 0, 0, errno
	}
	return cpu, node, nil
}

func defaultNUMANodes() int {
	entries, err := os.ReadDir(sysNodePath)
	if err != nil {
		return 1
	}
	count := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "node") {
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return count
}

func defaultCurrentNUMANodeID() int {
	_, node, err := getcpu()
	if err != nil {
		return -1
	}
	return int(node)
}

func cpuListForNode(numaID int) []int {
	if numaID < 0 {
		return nil
	}
	dir := filepath.Join(sysNodePath, "node"+strconv.Itoa(numaID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var cpus []int
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "cpu") {
			continue
		}
		idStr := strings.TrimPrefix(e.Name(), "cpu")
		id, convErr := strconv.Atoi(idStr)
		if convErr != nil {
			continue
		}
		cpus = append(cpus, id)
	}
	sort.Ints(cpus)
	return cpus
}
