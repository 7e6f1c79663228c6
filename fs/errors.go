package fs

// Error is a comparable error kind, analogous to the teacher's fileResult:
// a small integer type implementing error so call sites can compare with
// errors.Is against the sentinels below instead of parsing strings.
type Error int

const (
	_ Error = iota
	ErrNotMounted
	ErrAlreadyMounted
	ErrBadImage
	ErrIOError
	ErrInvalidArgument
	ErrInvalidName
	ErrNotFound
	ErrExists
	ErrDirectoryFull
	ErrTooManyOpen
	ErrBadFd
	ErrBusy
	ErrNoSpace
	ErrOpenFilesOutstanding
)

var errText = map[Error]string{
	ErrNotMounted:           "fs: not mounted",
	ErrAlreadyMounted:       "fs: already mounted",
	ErrBadImage:             "fs: bad image",
	ErrIOError:              "fs: i/o error",
	ErrInvalidArgument:      "fs: invalid argument",
	ErrInvalidName:          "fs: invalid name",
	ErrNotFound:             "fs: not found",
	ErrExists:               "fs: already exists",
	ErrDirectoryFull:        "fs: directory full",
	ErrTooManyOpen:          "fs: too many open files",
	ErrBadFd:                "fs: bad file descriptor",
	ErrBusy:                 "fs: busy",
	ErrNoSpace:              "fs: no space left",
	ErrOpenFilesOutstanding: "fs: open files outstanding",
}

func (e Error) Error() string {
	if s, ok := errText[e]; ok {
		return s
	}
	return "fs: unknown error"
}
