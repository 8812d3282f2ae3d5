package filesystem

import (
	"errors"
	"fmt"
	"os"
)

// ErrInvalidMode is returned for an open mode token outside the supported set.
var ErrInvalidMode = errors.New("invalid open mode")

// ParseMode converts a document-provider mode token into os.OpenFile flags.
//
//	r    read only
//	w    write, create, truncate (same as wt)
//	wa   write, create, append
//	rw   read-write, create
//	rwt  read-write, create, truncate
func ParseMode(mode string) (int, error) {
	switch mode {
	case "r":
		return os.O_RDONLY, nil
	case "w", "wt":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case "wa":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case "rw":
		return os.O_RDWR | os.O_CREATE, nil
	case "rwt":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}

// Open opens path with a mode token. Files created through a write mode get
// 0666 before umask, like os.Create.
func Open(path, mode string) (*os.File, error) {
	flag, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(path, flag, 0o666)
}
