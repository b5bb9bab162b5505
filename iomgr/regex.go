// File: iomgr/regex.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thread-class predicates used by MulticastMsg and global timers.

package iomgr

// ThreadRegex selects a class of logical I/O threads for broadcast.
type ThreadRegex int

const (
	AllIO ThreadRegex = iota
	AllWorker
	AllUser
	LeastBusyIO
	LeastBusyWorker
	LeastBusyUser
	RandomWorker
)

// String renders the regex the way it is named in the design.
func (r ThreadRegex) String() string {
	switch r {
	case AllIO:
		return "all_io"
	case AllWorker:
		return "all_worker"
	case AllUser:
		return "all_user"
	case LeastBusyIO:
		return "least_busy_io"
	case LeastBusyWorker:
		return "least_busy_worker"
	case LeastBusyUser:
		return "least_busy_user"
	case RandomWorker:
		return "random_worker"
	default:
		return "unknown_regex"
	}
}

// isLeastBusy reports whether r resolves via the deferred-minimum path
// instead of immediate delivery.
func (r ThreadRegex) isLeastBusy() bool {
	switch r {
	case LeastBusyIO, LeastBusyWorker, LeastBusyUser:
		return true
	default:
		return false
	}
}

// matches reports whether thread t belongs to the class r selects, based
// on the classification exposed by t's owning reactor (IsWorker/IsIO).
// RandomWorker is handled separately by the caller (it never scans).
func (r ThreadRegex) matches(t *IOThread) bool {
	switch r {
	case AllIO, LeastBusyIO:
		return t.IsIO()
	case AllWorker, LeastBusyWorker:
		return t.IsWorker()
	case AllUser, LeastBusyUser:
		return !t.IsWorker()
	default:
		return false
	}
}

// isGlobalScope reports whether r is valid as a global-timer scope: any
// class predicate qualifies except a plain per-thread address, so every
// defined ThreadRegex value is valid here. Kept as an explicit check
// point per spec.md §7's "invalid argument" error kind.
func (r ThreadRegex) isGlobalScope() bool {
	return r >= AllIO && r <= RandomWorker
}
