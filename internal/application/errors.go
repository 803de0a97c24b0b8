package application

import "errors"

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("conflict")

// ErrTaskFailed is the only detail an on-demand pipeline trigger exposes.
var ErrTaskFailed = errors.New("background task execution error")
