package resolver

import "errors"

// ErrNoSessionRefs reports a token that resolves to zero session ids.
var ErrNoSessionRefs = errors.New("token resolves to no session ids")
