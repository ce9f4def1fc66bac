// pkg/logging/scope.go
package logging

import (
	"go.uber.org/zap"
)

// Scope is one node of the logger tree. Bound context is copied from the
// parent when the node is created; parent is kept for diagnostics only.
type Scope struct {
	parent   *Scope
	module   string
	bindings Fields
}

// Module returns the dot-joined module name, empty at the root.
func (s *Scope) Module() string {
	return s.module
}

// Parent returns the scope this one was derived from, nil at the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Bindings returns a copy of the bound context.
func (s *Scope) Bindings() Fields {
	return s.bindings.Clone()
}

// Path lists module names from the root down to s, skipping unnamed nodes.
func (s *Scope) Path() []string {
	var path []string
	for n := s; n != nil; n = n.parent {
		if n.parent != nil && n.module == n.parent.module {
			continue
		}
		if n.module != "" {
			path = append([]string{n.module}, path...)
		}
	}
	return path
}

// child derives a named scope.
func (s *Scope) child(name string, bindings []Fields) *Scope {
	module := name
	if s.module != "" {
		module = s.module + "." + name
	}
	n := &Scope{parent: s, module: module, bindings: s.bindings.Clone()}
	for _, b := range bindings {
		for k, v := range b {
			n.bindings[k] = v
		}
	}
	return n
}

// bind derives an unnamed scope that adds fields to the bound context.
func (s *Scope) bind(fields Fields) *Scope {
	n := &Scope{parent: s, module: s.module, bindings: s.bindings.Clone()}
	for k, v := range fields {
		n.bindings[k] = v
	}
	return n
}

func (s *Scope) appendTo(fs *fieldSet) {
	if s.module != "" {
		fs.set(zap.String("module", s.module))
	}
	fs.merge(s.bindings)
}
