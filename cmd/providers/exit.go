package providers

import "sync/atomic"

// ExitStatus holds the process exit code of a long-running command.
// Components failing after startup set it before shutting down the app.
// A nil *ExitStatus ignores updates and reports 0.
type ExitStatus struct {
	code int32
}

// Set records the exit code.
func (s *ExitStatus) Set(code int) {
	if s == nil {
		return
	}
	atomic.StoreInt32(&s.code, int32(code))
}

// Get returns the recorded exit code.
func (s *ExitStatus) Get() int {
	if s == nil {
		return 0
	}
	return int(atomic.LoadInt32(&s.code))
}
