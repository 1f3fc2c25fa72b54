package ghost

import "errors"

var ErrPoolExhausted = errors.New("ghost pool exhausted")
