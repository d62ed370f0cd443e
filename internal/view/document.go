// Package view holds the panel's element model: the handful of page elements
// the sensor poller, LED controller and stream switch write into.
package view

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Element identifiers the panel markup provides.
const (
	CameraStream     = "camera-stream"
	Container        = ".container"
	TemperatureValue = "temperature-value"
	HumidityValue    = "humidity-value"
	BtnRed           = "btn-red"
	BtnGreen         = "btn-green"
	BtnBlue          = "btn-blue"
	BtnOff           = "btn-off"
)

// ClassActive marks a pressed button.
const ClassActive = "active"

// Display values used by the stream switch.
const (
	DisplayNone  = "none"
	DisplayBlock = "block"
)

// ErrNoElement is returned when an identifier is not part of the document.
var ErrNoElement = errors.New("element not found")

// Document is a set of addressable elements. All element mutations are
// serialized by the document lock, and every effective change is reported to
// the registered listeners with a fresh snapshot. Listeners see snapshots in
// version order and must not mutate the document.
type Document struct {
	// notifyMu is held from a change until its listeners return.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	version   uint64
	elements  map[string]*Element
	listeners []func(Snapshot)
}

// NewDocument creates a document containing the given element identifiers.
func NewDocument(ids ...string) *Document {
	d := &Document{elements: make(map[string]*Element, len(ids))}
	for _, id := range ids {
		d.elements[id] = &Element{doc: d, id: id, classes: make(map[string]struct{})}
	}
	return d
}

// NewPanel creates the document for the camera panel page: the stream image
// is hidden behind its placeholder container until the stream loads.
func NewPanel() *Document {
	d := NewDocument(
		CameraStream, Container,
		TemperatureValue, HumidityValue,
		BtnRed, BtnGreen, BtnBlue, BtnOff,
	)
	d.elements[CameraStream].display = DisplayNone
	d.elements[TemperatureValue].text = "--"
	d.elements[HumidityValue].text = "--"
	return d
}

// Element returns the handle for id.
func (d *Document) Element(id string) (*Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.elements[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoElement, id)
	}
	return e, nil
}

// Elements resolves several identifiers at once, failing on the first missing one.
func (d *Document) Elements(ids ...string) ([]*Element, error) {
	out := make([]*Element, 0, len(ids))
	for _, id := range ids {
		e, err := d.Element(id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// OnChange registers fn to receive a snapshot after each change.
func (d *Document) OnChange(fn func(Snapshot)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Snapshot returns a copy of every element's state, ordered by identifier.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}

func (d *Document) snapshotLocked() Snapshot {
	snap := Snapshot{Version: d.version, Elements: make(map[string]ElementState, len(d.elements))}
	for id, e := range d.elements {
		snap.Elements[id] = e.stateLocked()
	}
	return snap
}

// mutate applies fn under the write lock and notifies listeners if fn
// reports a change. Readers are only blocked while fn runs; the next
// mutation waits until this one's listeners have returned.
func (d *Document) mutate(fn func() bool) {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()

	d.mu.Lock()
	if !fn() {
		d.mu.Unlock()
		return
	}
	d.version++
	snap := d.snapshotLocked()
	listeners := d.listeners
	d.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// Element is a single addressable page element.
type Element struct {
	doc     *Document
	id      string
	text    string
	display string
	classes map[string]struct{}
}

// ID returns the element identifier.
func (e *Element) ID() string {
	return e.id
}

// SetText replaces the element's text content.
func (e *Element) SetText(text string) {
	e.doc.mutate(func() bool {
		if e.text == text {
			return false
		}
		e.text = text
		return true
	})
}

// SetDisplay sets the element's display style.
func (e *Element) SetDisplay(display string) {
	e.doc.mutate(func() bool {
		if e.display == display {
			return false
		}
		e.display = display
		return true
	})
}

// ToggleClass adds class when on is true and removes it otherwise.
func (e *Element) ToggleClass(class string, on bool) {
	e.doc.mutate(func() bool {
		_, has := e.classes[class]
		switch {
		case on && !has:
			e.classes[class] = struct{}{}
		case !on && has:
			delete(e.classes, class)
		default:
			return false
		}
		return true
	})
}

// Text returns the element's text content.
func (e *Element) Text() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.text
}

// Display returns the element's display style ("" means the default).
func (e *Element) Display() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.display
}

// HasClass reports whether class is set on the element.
func (e *Element) HasClass(class string) bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	_, ok := e.classes[class]
	return ok
}

func (e *Element) stateLocked() ElementState {
	classes := make([]string, 0, len(e.classes))
	for c := range e.classes {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return ElementState{
		Text:    e.text,
		Display: e.display,
		Classes: classes,
	}
}
