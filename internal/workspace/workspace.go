// Package workspace keeps the set of open documents (tabs) and which one is
// active, and notifies listeners when either changes.
package workspace

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/daystreams/internal/apperr"
	"github.com/starford/daystreams/internal/datekey"
)

// Document is one open tab.
type Document struct {
	ID       string    `json:"id"`
	Binding  Binding   `json:"binding"`
	Pinned   bool      `json:"pinned"`
	Focused  bool      `json:"focused"`
	OpenedAt time.Time `json:"opened_at"`
}

// ActiveFunc is notified when the active document changes; ok is false when
// no document is active any more.
type ActiveFunc func(doc Document, ok bool)

// StateFunc is notified when a document's binding changes in place.
type StateFunc func(doc Document)

// Workspace is an in-process tab set.
//
// Listeners run after the workspace lock is released, on the goroutine that
// made the change, in registration order.
type Workspace struct {
	logger *slog.Logger

	mu       sync.Mutex
	docs     []*Document
	activeID string
	nextSub  uint64
	onActive map[uint64]ActiveFunc
	onState  map[uint64]StateFunc
	subOrder []uint64
}

// New returns an empty workspace.
func New(logger *slog.Logger) *Workspace {
	return &Workspace{
		logger:   logger.With(slog.String("component", "workspace")),
		onActive: make(map[uint64]ActiveFunc),
		onState:  make(map[uint64]StateFunc),
	}
}

// OnActiveDocumentChanged registers fn; the returned func removes it.
func (w *Workspace) OnActiveDocumentChanged(fn ActiveFunc) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextSub++
	id := w.nextSub
	w.onActive[id] = fn
	w.subOrder = append(w.subOrder, id)
	return func() { w.unsubscribe(id) }
}

// OnDocumentStateChanged registers fn; the returned func removes it.
func (w *Workspace) OnDocumentStateChanged(fn StateFunc) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextSub++
	id := w.nextSub
	w.onState[id] = fn
	w.subOrder = append(w.subOrder, id)
	return func() { w.unsubscribe(id) }
}

func (w *Workspace) unsubscribe(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.onActive, id)
	delete(w.onState, id)
	w.subOrder = slices.DeleteFunc(w.subOrder, func(x uint64) bool { return x == id })
}

// Documents returns the open documents in tab order.
func (w *Workspace) Documents() []Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Document, len(w.docs))
	for i, d := range w.docs {
		out[i] = *d
	}
	return out
}

// Document returns the document with id.
func (w *Workspace) Document(id string) (Document, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d := w.findLocked(id); d != nil {
		return *d, true
	}
	return Document{}, false
}

// ActiveDocument returns the active document, if any.
func (w *Workspace) ActiveDocument() (Document, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d := w.findLocked(w.activeID); d != nil {
		return *d, true
	}
	return Document{}, false
}

// FindOpenDocumentByPath returns the open note document for path.
// Placeholder documents are not notes and never match.
func (w *Workspace) FindOpenDocumentByPath(path string) (Document, bool) {
	path = datekey.NormalizeFolderPath(path)
	return w.findFirst(func(d *Document) bool {
		return d.Binding.Kind == KindNote && datekey.NormalizeFolderPath(d.Binding.Path) == path
	})
}

// FindPlaceholder returns the open placeholder document, if any.
func (w *Workspace) FindPlaceholder() (Document, bool) {
	return w.findFirst(func(d *Document) bool { return d.Binding.Kind == KindPlaceholder })
}

// FindAggregate returns the open aggregate view of streamID, if any.
func (w *Workspace) FindAggregate(streamID string) (Document, bool) {
	return w.findFirst(func(d *Document) bool {
		return d.Binding.Kind == KindAggregate && d.Binding.StreamID == streamID
	})
}

func (w *Workspace) findFirst(match func(*Document) bool) (Document, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range w.docs {
		if match(d) {
			return *d, true
		}
	}
	return Document{}, false
}

// OpenInNewTab opens b in a new tab after the active one and activates it.
func (w *Workspace) OpenInNewTab(b Binding) (Document, error) {
	if err := b.Validate(); err != nil {
		return Document{}, err
	}
	w.mu.Lock()
	doc := &Document{
		ID:       ulid.Make().String(),
		Binding:  b,
		Focused:  true,
		OpenedAt: time.Now(),
	}
	at := len(w.docs)
	if i := w.indexLocked(w.activeID); i >= 0 {
		at = i + 1
		w.docs[i].Focused = false
	}
	w.docs = slices.Insert(w.docs, at, doc)
	w.activeID = doc.ID
	out := *doc
	active := w.activeListenersLocked()
	w.mu.Unlock()

	w.logger.Debug("tab opened", slog.String("doc", out.ID), slog.String("kind", string(b.Kind)), slog.String("path", b.Path))
	for _, fn := range active {
		fn(out, true)
	}
	return out, nil
}

// OpenInCurrentTab replaces the active document's binding in place. With no
// active document it opens a new tab.
func (w *Workspace) OpenInCurrentTab(b Binding) (Document, error) {
	doc, ok := w.ActiveDocument()
	if !ok {
		return w.OpenInNewTab(b)
	}
	return w.Rebind(doc.ID, b)
}

// Rebind changes the binding of document id in place.
func (w *Workspace) Rebind(id string, b Binding) (Document, error) {
	if err := b.Validate(); err != nil {
		return Document{}, err
	}
	w.mu.Lock()
	d := w.findLocked(id)
	if d == nil {
		w.mu.Unlock()
		return Document{}, fmt.Errorf("workspace: document %s: %w", id, apperr.ErrNotFound)
	}
	d.Binding = b
	out := *d
	state := w.stateListenersLocked()
	w.mu.Unlock()

	for _, fn := range state {
		fn(out)
	}
	return out, nil
}

// ActivateDocument brings document id to the front. Activating the already
// active document only updates focus and notifies nobody.
func (w *Workspace) ActivateDocument(id string, focus bool) error {
	w.mu.Lock()
	d := w.findLocked(id)
	if d == nil {
		w.mu.Unlock()
		return fmt.Errorf("workspace: document %s: %w", id, apperr.ErrNotFound)
	}
	changed := w.activeID != id
	if prev := w.findLocked(w.activeID); prev != nil && changed {
		prev.Focused = false
	}
	w.activeID = id
	d.Focused = focus
	out := *d
	var active []ActiveFunc
	if changed {
		active = w.activeListenersLocked()
	}
	w.mu.Unlock()

	for _, fn := range active {
		fn(out, true)
	}
	return nil
}

// SetPinned pins or unpins document id. Pinned tabs are never reused.
func (w *Workspace) SetPinned(id string, pinned bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.findLocked(id)
	if d == nil {
		return fmt.Errorf("workspace: document %s: %w", id, apperr.ErrNotFound)
	}
	d.Pinned = pinned
	return nil
}

// Close removes document id. Closing the active tab activates its left
// neighbour, or the new first tab.
func (w *Workspace) Close(id string) error {
	w.mu.Lock()
	i := w.indexLocked(id)
	if i < 0 {
		w.mu.Unlock()
		return fmt.Errorf("workspace: document %s: %w", id, apperr.ErrNotFound)
	}
	wasActive := w.activeID == id
	w.docs = slices.Delete(w.docs, i, i+1)

	var (
		next   Document
		hasNew bool
		active []ActiveFunc
	)
	if wasActive {
		w.activeID = ""
		if len(w.docs) > 0 {
			j := max(i-1, 0)
			w.activeID = w.docs[j].ID
			w.docs[j].Focused = true
			next, hasNew = *w.docs[j], true
		}
		active = w.activeListenersLocked()
	}
	w.mu.Unlock()

	for _, fn := range active {
		fn(next, hasNew)
	}
	return nil
}

func (w *Workspace) findLocked(id string) *Document {
	if i := w.indexLocked(id); i >= 0 {
		return w.docs[i]
	}
	return nil
}

func (w *Workspace) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(w.docs, func(d *Document) bool { return d.ID == id })
}

func (w *Workspace) activeListenersLocked() []ActiveFunc {
	out := make([]ActiveFunc, 0, len(w.onActive))
	for _, id := range w.subOrder {
		if fn, ok := w.onActive[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (w *Workspace) stateListenersLocked() []StateFunc {
	out := make([]StateFunc, 0, len(w.onState))
	for _, id := range w.subOrder {
		if fn, ok := w.onState[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
