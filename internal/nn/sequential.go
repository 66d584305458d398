package nn

import (
	"strconv"
)

// Sequential is an indexed list of modules, such as a stack of transformer
// layers.
//
// Parameters are prefixed with their module index (e.g., "0.fc1.weight",
// "1.fc1.weight") to avoid name collisions.
type Sequential struct {
	modules []Module
}

// NewSequential creates a new Sequential container.
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{modules: modules}
}

// Add appends a module to the list.
func (s *Sequential) Add(module Module) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules.
func (s *Sequential) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential) Module(index int) Module {
	if index < 0 || index >= len(s.modules) {
		panic("Sequential.Module: index out of bounds")
	}
	return s.modules[index]
}

// NamedParameters returns the parameters of every module, index-prefixed.
func (s *Sequential) NamedParameters() map[string]*Parameter {
	params := make(map[string]*Parameter)
	for i, module := range s.modules {
		prefixed(strconv.Itoa(i), module.NamedParameters(), params)
	}
	return params
}
