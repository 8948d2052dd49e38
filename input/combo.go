package input

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zyedidia/generic/mapset"
)

// Action is what a satisfied combo asks the daemon to do
type Action int

const (
	ActionRequest Action = iota
	ActionView
)

func (a Action) String() string {
	switch a {
	case ActionRequest:
		return "request"
	case ActionView:
		return "view"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Combo is a set of canonical button names that must be held together.
// It is kept sorted so two combos naming the same buttons compare equal.
type Combo []string

// ParseCombo resolves configured button names to canonical names.
// Aliases collapse (BTN_A and BTN_SOUTH are the same button).
func ParseCombo(names []string) (Combo, error) {
	seen := mapset.New[string]()
	var combo Combo
	for _, n := range names {
		code, ok := ButtonCode(n)
		if !ok {
			return nil, fmt.Errorf("unknown button %q", n)
		}
		canonical := ButtonName(code)
		if seen.Has(canonical) {
			continue
		}
		seen.Put(canonical)
		combo = append(combo, canonical)
	}
	if len(combo) == 0 {
		return nil, fmt.Errorf("combo must name at least one button")
	}
	sort.Strings(combo)
	return combo, nil
}

func (c Combo) String() string {
	return strings.Join(c, "+")
}

// SatisfiedBy reports whether every button of the combo is held
func (c Combo) SatisfiedBy(pressed *mapset.Set[string]) bool {
	for _, b := range c {
		if !pressed.Has(b) {
			return false
		}
	}
	return true
}

// Binding ties a combo to the action it fires
type Binding struct {
	Action Action
	Combo  Combo
}

// Matcher evaluates bindings in priority order against the pressed set
type Matcher struct {
	bindings []Binding
	watched  map[string]bool
}

// NewMatcher keeps the bindings in the order given; earlier bindings win ties
func NewMatcher(bindings ...Binding) *Matcher {
	m := &Matcher{bindings: bindings, watched: make(map[string]bool)}
	for _, b := range bindings {
		for _, name := range b.Combo {
			m.watched[name] = true
		}
	}
	return m
}

// Match returns the first binding whose combo is satisfied
func (m *Matcher) Match(pressed *mapset.Set[string]) (Action, bool) {
	for _, b := range m.bindings {
		if b.Combo.SatisfiedBy(pressed) {
			return b.Action, true
		}
	}
	return 0, false
}

// Watches reports whether any binding uses the button
func (m *Matcher) Watches(name string) bool {
	return m.watched[name]
}

// Buttons returns every button used by any binding
func (m *Matcher) Buttons() []string {
	names := make([]string, 0, len(m.watched))
	for name := range m.watched {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bindings returns the bindings in priority order
func (m *Matcher) Bindings() []Binding {
	return m.bindings
}
