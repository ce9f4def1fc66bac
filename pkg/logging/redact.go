// pkg/logging/redact.go
package logging

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultRedactionMarker replaces every redacted value, whatever its type.
const DefaultRedactionMarker = "[Redacted]"

// DefaultRedactionPaths covers credential and card data fields. The list and
// its order are part of the public contract; consumers depend on it verbatim.
var DefaultRedactionPaths = []string{
	`req.headers["x-api-key"]`,
	`req.headers["x-confirmation-password"]`,
	`password`,
	`card_cvn`,
	`card_account_number`,
	`card_data`,
	`cvn`,
	`pin`,
	`transaction_signature`,
	`secure_signature`,
	`TXN_SIGNATURE`,
	`SECURE_SIGNATURE`,
	`api_key`,
	`card_exp_year`,
	`card_exp_month`,
	`authorization`,
	`secret_api_key`,
	`secretApiKey`,
	`passcode`,
	`req.headers["x-callback-token"]`,
	`res.body.*["x-callback-token"]`,
}

// ErrInvalidPath is returned for redaction paths that cannot be parsed.
var ErrInvalidPath = errors.New("invalid redaction path")

// segment is one step of a redaction path. A wildcard matches any key or index.
type segment struct {
	key      string
	wildcard bool
}

// Path is a parsed redaction path, addressed from the root of a record.
type Path []segment

// String renders the path in canonical bracket form.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		switch {
		case s.wildcard:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteByte('*')
		case isIdent(s.key):
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s.key)
		default:
			b.WriteString(`["`)
			b.WriteString(s.key)
			b.WriteString(`"]`)
		}
	}
	return b.String()
}

// ParsePath parses dot and bracket addressing:
//
//	password
//	req.headers["x-api-key"]
//	res.body.*['token']
//	items[*].secret
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	var (
		path Path
		i    int
	)
	expectKey := true
	for i < len(s) {
		switch c := s[i]; {
		case c == '[':
			seg, n, err := parseBracket(s, i)
			if err != nil {
				return nil, err
			}
			path = append(path, seg)
			i = n
			expectKey = false
		case c == '.':
			if expectKey {
				return nil, fmt.Errorf("%w: unexpected '.' at %d in %q", ErrInvalidPath, i, s)
			}
			i++
			expectKey = true
			if i == len(s) {
				return nil, fmt.Errorf("%w: trailing '.' in %q", ErrInvalidPath, s)
			}
		default:
			if !expectKey {
				return nil, fmt.Errorf("%w: expected '.' or '[' at %d in %q", ErrInvalidPath, i, s)
			}
			j := i
			for j < len(s) && s[j] != '.' && s[j] != '[' {
				j++
			}
			key := s[i:j]
			path = append(path, segment{key: key, wildcard: key == "*"})
			i = j
			expectKey = false
		}
	}
	return path, nil
}

func parseBracket(s string, start int) (segment, int, error) {
	i := start + 1
	if i >= len(s) {
		return segment{}, 0, fmt.Errorf("%w: unterminated '[' in %q", ErrInvalidPath, s)
	}
	if q := s[i]; q == '"' || q == '\'' {
		end := strings.IndexByte(s[i+1:], q)
		if end < 0 {
			return segment{}, 0, fmt.Errorf("%w: unterminated quote in %q", ErrInvalidPath, s)
		}
		key := s[i+1 : i+1+end]
		i = i + 1 + end + 1
		if i >= len(s) || s[i] != ']' {
			return segment{}, 0, fmt.Errorf("%w: expected ']' after quoted key in %q", ErrInvalidPath, s)
		}
		return segment{key: key}, i + 1, nil
	}
	end := strings.IndexByte(s[i:], ']')
	if end <= 0 {
		return segment{}, 0, fmt.Errorf("%w: empty or unterminated '[' in %q", ErrInvalidPath, s)
	}
	key := s[i : i+end]
	return segment{key: key, wildcard: key == "*"}, i + end + 1, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// Policy is a compiled RedactionSpec. It is immutable and safe for concurrent use.
type Policy struct {
	paths  []Path
	marker string
	start  matcher
}

// CompilePolicy parses paths in order. An empty marker selects DefaultRedactionMarker.
func CompilePolicy(paths []string, marker string) (*Policy, error) {
	if marker == "" {
		marker = DefaultRedactionMarker
	}
	p := &Policy{marker: marker, paths: make([]Path, 0, len(paths))}
	for _, raw := range paths {
		parsed, err := ParsePath(raw)
		if err != nil {
			return nil, err
		}
		p.paths = append(p.paths, parsed)
	}
	p.start = p.root()
	return p, nil
}

// Paths returns the canonical form of every compiled path.
func (p *Policy) Paths() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.paths))
	for i, path := range p.paths {
		out[i] = path.String()
	}
	return out
}

// Marker returns the replacement value.
func (p *Policy) Marker() string {
	return p.marker
}

// Empty reports whether the policy redacts nothing.
func (p *Policy) Empty() bool {
	return p == nil || len(p.paths) == 0
}

func (p *Policy) root() matcher {
	m := make(matcher, len(p.paths))
	for i, path := range p.paths {
		m[i] = cursor{path: path}
	}
	return m
}

// cursor tracks how far into one path the encoder has descended.
type cursor struct {
	path Path
	pos  int
}

// matcher is the set of paths still alive at one nesting level.
type matcher []cursor

// step consumes key. redact is true when a path ends at key; otherwise next
// holds the cursors that continue below key.
func (m matcher) step(key string) (redact bool, next matcher) {
	for _, c := range m {
		seg := c.path[c.pos]
		if !seg.wildcard && seg.key != key {
			continue
		}
		if c.pos+1 == len(c.path) {
			return true, nil
		}
		next = append(next, cursor{path: c.path, pos: c.pos + 1})
	}
	return false, next
}
