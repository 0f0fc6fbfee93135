package dispatch

import (
	"errors"
)

const Version = "v0.1.0" // x-release-please-version

var (
	ErrUnknownTopic     = errors.New("unknown topic")
	ErrDuplicateTopic   = errors.New("topic registered twice")
	ErrDispatcherClosed = errors.New("dispatcher is closed")
	ErrDispatcherFailed = errors.New("dispatcher failed")
)
