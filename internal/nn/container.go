package nn

import (
	"fmt"
)

// Container groups named child modules and loose parameters.
//
//	attn := nn.NewContainer().
//	    Add("k_proj", nn.NewLinear(d, d, true)).
//	    Add("v_proj", nn.NewLinear(d, d, true)).
//	    AddParameter("bias_k", nn.NewParameter("bias_k", tensor.Shape{1, 1, d}, tensor.Float32, nil))
//
// Names must be unique within one container; Add and AddParameter panic on a
// duplicate, since skeletons are built from code and a clash is a bug.
type Container struct {
	children map[string]Module
	params   map[string]*Parameter
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		children: make(map[string]Module),
		params:   make(map[string]*Parameter),
	}
}

// Add registers a child module under name and returns c for chaining.
func (c *Container) Add(name string, m Module) *Container {
	c.claim(name)
	c.children[name] = m
	return c
}

// AddParameter registers a parameter directly under name.
func (c *Container) AddParameter(name string, p *Parameter) *Container {
	c.claim(name)
	c.params[name] = p
	return c
}

// Child returns the child module registered under name.
func (c *Container) Child(name string) (Module, bool) {
	m, ok := c.children[name]
	return m, ok
}

// NamedParameters returns the container's own parameters and those of its
// children, prefixed with the child name.
func (c *Container) NamedParameters() map[string]*Parameter {
	params := make(map[string]*Parameter, len(c.params))
	for name, p := range c.params {
		params[name] = p
	}
	for name, child := range c.children {
		prefixed(name, child.NamedParameters(), params)
	}
	return params
}

func (c *Container) claim(name string) {
	_, isChild := c.children[name]
	_, isParam := c.params[name]
	if isChild || isParam {
		panic(fmt.Sprintf("nn.Container: duplicate name %q", name))
	}
}
