package storage

import "errors"

// errClosed is returned by backends after Close.
var errClosed = errors.New("audit log is closed")
