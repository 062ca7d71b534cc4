// Package augment applies named, composable text transforms to a key
// before it is hashed.
//
// Steps live in an immutable Catalog. A Selection records which steps the
// caller picked and in what order; Apply folds the resolved steps over the
// input left to right.
package augment

import "fmt"

// Step is one named transform. Transform must be pure and total.
type Step struct {
	ID        string
	Label     string
	Transform func(string) string
}

// Catalog is an immutable, ordered table of steps.
type Catalog struct {
	steps []Step
	byID  map[string]int
}

// NewCatalog builds a catalog; order is display order only.
func NewCatalog(steps ...Step) (Catalog, error) {
	c := Catalog{
		steps: make([]Step, 0, len(steps)),
		byID:  make(map[string]int, len(steps)),
	}
	for _, s := range steps {
		if s.ID == "" {
			return Catalog{}, fmt.Errorf("augment: step id is required")
		}
		if s.Transform == nil {
			return Catalog{}, fmt.Errorf("augment: step %q has no transform", s.ID)
		}
		if _, dup := c.byID[s.ID]; dup {
			return Catalog{}, fmt.Errorf("augment: duplicate step %q", s.ID)
		}
		c.byID[s.ID] = len(c.steps)
		c.steps = append(c.steps, s)
	}
	return c, nil
}

func mustCatalog(steps ...Step) Catalog {
	c, err := NewCatalog(steps...)
	if err != nil {
		panic(err)
	}
	return c
}

// Steps returns the catalog entries in display order.
func (c Catalog) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

// Len returns the number of steps in the catalog.
func (c Catalog) Len() int { return len(c.steps) }

// IDs returns the step ids in display order.
func (c Catalog) IDs() []string {
	ids := make([]string, len(c.steps))
	for i, s := range c.steps {
		ids[i] = s.ID
	}
	return ids
}

// Lookup returns the step with the given id.
func (c Catalog) Lookup(id string) (Step, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Step{}, false
	}
	return c.steps[i], true
}

// UnknownStepError reports a selection id missing from the catalog.
type UnknownStepError struct {
	ID string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("augment: unknown step %q", e.ID)
}

// Apply runs steps in order, feeding each output to the next step.
// An empty sequence returns input unchanged.
func Apply(input string, steps []Step) string {
	out := input
	for _, s := range steps {
		out = s.Transform(out)
	}
	return out
}
