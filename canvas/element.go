package canvas

import "sync"

// Element is a map-backed Container for hosts without a real document
// model, and for tests.
type Element struct {
	mu     sync.Mutex
	id     string
	attrs  map[string]string
	marked bool
}

// NewElement creates an Element with the given id and attributes.
func NewElement(id string, attrs map[string]string) *Element {
	if attrs == nil {
		attrs = make(map[string]string)
	}
	return &Element{id: id, attrs: attrs}
}

func (e *Element) ID() string { return e.id }

func (e *Element) Attr(name string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attrs[name]
}

// SetAttr sets an attribute value.
func (e *Element) SetAttr(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attrs[name] = value
}

func (e *Element) Marked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.marked
}

func (e *Element) SetMarked(marked bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.marked = marked
}
