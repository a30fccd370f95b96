package common

import (
	"errors"
	"sort"
)

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// PauseSet is a mutable PauseView keyed by module name.
type PauseSet map[string]bool

func (p PauseSet) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	return p[module]
}

// Set toggles the pause switch for module.
func (p PauseSet) Set(module string, paused bool) {
	if paused {
		p[module] = true
		return
	}
	delete(p, module)
}

// Modules lists the paused modules in lexical order.
func (p PauseSet) Modules() []string {
	out := make([]string, 0, len(p))
	for k, v := range p {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
