package uthread

// Error mirrors fs.Error: a small integer error kind so call sites use
// errors.Is against the sentinels below instead of string comparison.
type Error int

const (
	_ Error = iota
	ErrAlreadyStarted
	ErrSchedulerNotRunning
	ErrSemaphoreBusy
)

var errText = map[Error]string{
	ErrAlreadyStarted:      "uthread: scheduler already started",
	ErrSchedulerNotRunning: "uthread: scheduler not running",
	ErrSemaphoreBusy:       "uthread: semaphore destroyed with threads waiting",
}

func (e Error) Error() string {
	if s, ok := errText[e]; ok {
		return s
	}
	return "uthread: unknown error"
}
