package reconcile

import (
	"github.com/matthewdavidson09/cloud-attribute-sync/tools"
)

// WriteSet maps a local attribute name to its new value. A nil value
// clears the attribute.
type WriteSet map[string]*string

func (w WriteSet) set(attr, value string) {
	w[attr] = &value
}

func (w WriteSet) clear(attr string) {
	w[attr] = nil
}

// Attributes returns the attribute names in sorted order.
func (w WriteSet) Attributes() []string {
	return tools.MapKeys(w)
}

// Value returns the pending value for attr. ok is false when attr is not
// part of the set; a cleared attribute reports ok with an empty value.
func (w WriteSet) Value(attr string) (value string, ok bool) {
	v, ok := w[attr]
	if !ok || v == nil {
		return "", ok
	}
	return *v, true
}

// IsClear reports whether attr is scheduled to be cleared.
func (w WriteSet) IsClear(attr string) bool {
	v, ok := w[attr]
	return ok && v == nil
}
