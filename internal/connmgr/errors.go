package connmgr

import "errors"

var (
	// ErrClosed is returned by Remove after Shutdown; Add/AddLocal log it
	// and ignore the call.
	ErrClosed = errors.New("connmgr: manager closed")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("connmgr: invalid config")
)
