// Package resolver normalizes raw session path tokens into canonical
// session id lists.
//
// A single token may reference several sessions joined with any of the
// delimiter conventions that accumulated in historical URLs, and the token
// (or each id inside it) may be percent-encoded once or twice. Resolve
// collapses all of those conventions into one deterministic result.
package resolver

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultMaxRefs bounds how many session ids a single token may reference.
// The cap keeps fetch fan-out per request bounded.
const DefaultMaxRefs = 8

// separators matches one-or-more of every delimiter observed in historical
// URLs: plus, tilde and literal whitespace. A percent-encoded plus becomes
// one of these during decoding.
var separators = regexp.MustCompile(`[+~\s]+`)

// Resolver turns one opaque path token into an ordered, deduplicated,
// size-bounded list of session ids.
type Resolver struct {
	maxRefs int
}

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithMaxRefs caps the number of ids returned from a single token.
func WithMaxRefs(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxRefs = n
		}
	}
}

// New creates a Resolver with default configuration.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		maxRefs: DefaultMaxRefs,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve normalizes rawToken: fully percent-decode the token (undoing
// possible double-encoding), split on separators, trim, decode each entry
// on its own, dedupe keeping first-seen order, and cap the result.
//
// An empty result is the normal "no session" value, not an error. A token
// that cannot be decoded at all is still split and trimmed in its raw form.
func (r *Resolver) Resolve(rawToken string) []string {
	decoded := decodeFully(rawToken)

	var ids []string
	seen := make(map[string]struct{})
	for _, part := range separators.Split(decoded, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// Entries that were encoded individually rather than as a whole
		// token still carry escapes here; give each its own decode pass. It
		// is a no-op for anything the whole-token pass already normalized.
		// The decode can surface whitespace (e.g. "%20"), so trim again and
		// drop entries that were nothing but encoded separators.
		part = strings.TrimSpace(decodeFully(part))
		if part == "" {
			continue
		}

		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}

		ids = append(ids, part)
		if len(ids) == r.maxRefs {
			break
		}
	}
	return ids
}

// decodeFully percent-decodes s until a fixed point or the first decode
// error. A failing step falls back to the last successfully decoded form,
// so malformed input degrades to being split as-is instead of being
// dropped.
func decodeFully(s string) string {
	for {
		decoded, err := url.PathUnescape(s)
		if err != nil || decoded == s {
			return s
		}
		s = decoded
	}
}
