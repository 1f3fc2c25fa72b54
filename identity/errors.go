package identity

import "errors"

var ErrNoSuchKey = errors.New("no such key")
