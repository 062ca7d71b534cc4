package augment

import "strings"

// Selection is the caller's ordered choice of steps.
//
// It has two states: Disabled (the zero value) and Active, which holds a
// non-empty ordered list of step ids. "none" is never stored; selecting it
// moves the selection to Disabled. Selection values are immutable; every
// operation returns a new value.
type Selection struct {
	ids []string
}

// Disabled returns the empty selection.
func Disabled() Selection { return Selection{} }

// Only returns a single-step selection. Only(None) is Disabled.
func Only(id string) Selection {
	return Disabled().Select(id)
}

// ParseSelection folds Select over ids, rejecting ids missing from c.
// Only the ids after the last "none" survive, so an empty list, ["none"]
// and ["trim", "none"] are all Disabled.
func ParseSelection(c Catalog, ids []string) (Selection, error) {
	sel := Disabled()
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if id != None {
			if _, ok := c.Lookup(id); !ok {
				return Disabled(), &UnknownStepError{ID: id}
			}
		}
		sel = sel.Select(id)
	}
	return sel, nil
}

// IsDisabled reports whether no augmentation is selected.
func (s Selection) IsDisabled() bool { return len(s.ids) == 0 }

// IDs returns the selected ids in application order.
// A Disabled selection returns nil.
func (s Selection) IDs() []string {
	if len(s.ids) == 0 {
		return nil
	}
	return append([]string(nil), s.ids...)
}

// Has reports whether id is part of the selection.
// None is reported as selected exactly when the selection is Disabled.
func (s Selection) Has(id string) bool {
	if id == None {
		return s.IsDisabled()
	}
	return s.index(id) >= 0
}

// Select adds id at the end of the order. Selecting None disables the
// selection; selecting an id already present is a no-op.
func (s Selection) Select(id string) Selection {
	if id == None {
		return Disabled()
	}
	if s.index(id) >= 0 {
		return s
	}
	ids := make([]string, len(s.ids), len(s.ids)+1)
	copy(ids, s.ids)
	return Selection{ids: append(ids, id)}
}

// Toggle flips id. Toggling None always disables the selection. Removing
// the last active id also leaves the selection Disabled.
func (s Selection) Toggle(id string) Selection {
	if id == None {
		return Disabled()
	}
	i := s.index(id)
	if i < 0 {
		return s.Select(id)
	}
	if len(s.ids) == 1 {
		return Disabled()
	}
	ids := make([]string, 0, len(s.ids)-1)
	ids = append(ids, s.ids[:i]...)
	ids = append(ids, s.ids[i+1:]...)
	return Selection{ids: ids}
}

// Steps resolves the selection against c in application order.
func (s Selection) Steps(c Catalog) ([]Step, error) {
	steps := make([]Step, 0, len(s.ids))
	for _, id := range s.ids {
		st, ok := c.Lookup(id)
		if !ok {
			return nil, &UnknownStepError{ID: id}
		}
		steps = append(steps, st)
	}
	return steps, nil
}

// Apply resolves the selection against c and applies it to input.
func (s Selection) Apply(c Catalog, input string) (string, error) {
	steps, err := s.Steps(c)
	if err != nil {
		return "", err
	}
	return Apply(input, steps), nil
}

// String renders the selection as comma-separated ids, or "none".
func (s Selection) String() string {
	if s.IsDisabled() {
		return None
	}
	return strings.Join(s.ids, ",")
}

func (s Selection) index(id string) int {
	for i, v := range s.ids {
		if v == id {
			return i
		}
	}
	return -1
}
