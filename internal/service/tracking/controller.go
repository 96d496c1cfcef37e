package tracking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/tracklog/internal/domain/models"
)

var (
	// ErrRecordNotFound indicates no count carries the requested identity.
	ErrRecordNotFound = errors.New("inventory count not found")
	// ErrNotEditing indicates a save was requested for a row that is not being edited.
	ErrNotEditing = errors.New("row is not being edited")
)

// CountStore is the persistence the controller needs.
type CountStore interface {
	Load(ctx context.Context) ([]models.InventoryCount, bool, error)
	SaveAll(ctx context.Context, counts []models.InventoryCount) error
}

// Controller owns the complete dataset and the row drafts. Views are derived
// from the dataset on demand; every mutation applies to the complete dataset,
// is persisted, and is followed by a reload. Operations are serialized.
type Controller struct {
	mu       sync.Mutex
	store    CountStore
	renderer *Renderer
	editor   *Editor
	logger   *zap.Logger

	all    []models.InventoryCount
	loaded bool

	subMu       sync.Mutex
	nextSub     int
	subscribers map[int]chan struct{}
}

// NewController wires a controller. Call Reload before serving views.
func NewController(store CountStore, renderer *Renderer, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:       store,
		renderer:    renderer,
		editor:      NewEditor(),
		logger:      logger,
		subscribers: make(map[int]chan struct{}),
	}
}

// Reload re-reads the persisted log. When nothing is stored the previous
// in-memory dataset is kept.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked(ctx)
}

func (c *Controller) reloadLocked(ctx context.Context) error {
	counts, found, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload tracking log: %w", err)
	}
	if !found {
		c.logger.Debug("no tracking log stored, keeping current state", zap.Int("records", len(c.all)))
		return nil
	}

	c.all = counts
	c.loaded = true
	c.editor.Retain(counts)
	c.logger.Debug("tracking log reloaded", zap.Int("records", len(counts)))
	return nil
}

// HandleExternalChange reloads after another process changed the log and
// signals subscribers. Changes made through the controller do not signal:
// the client that made them already receives the new view.
func (c *Controller) HandleExternalChange(ctx context.Context) {
	if err := c.Reload(ctx); err != nil {
		c.logger.Error("reload after external change failed", zap.Error(err))
		return
	}
	c.broadcast()
}

// Loaded reports whether a stored log has been read at least once.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// All returns a copy of the complete dataset.
func (c *Controller) All() []models.InventoryCount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.all)
}

// View returns the active view for p.
func (c *Controller) View(p models.Predicates) []models.InventoryCount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Filter(c.all, p)
}

// Rows renders the active view for p, including rows being edited.
func (c *Controller) Rows(p models.Predicates) []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderer.Render(Filter(c.all, p), c.editor.Drafts())
}

// State reports the edit state of the row with identity id.
func (c *Controller) State(id string) RowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editor.State(id)
}

// BeginEdit moves a row into Editing with a draft seeded from the stored record.
func (c *Controller) BeginEdit(_ context.Context, id string) (models.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return models.Draft{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return c.editor.Begin(c.all[idx]), nil
}

// Save commits d to the record with identity id, persists the complete
// dataset and reloads. The dataset is re-read first so the edit lands on the
// latest stored log. If the record disappeared while it was being edited the
// draft is dropped and nothing is written.
func (c *Controller) Save(ctx context.Context, id string, d models.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.editor.Finish(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotEditing, id)
	}
	if err := c.reloadLocked(ctx); err != nil {
		return err
	}

	idx := c.indexOf(id)
	if idx < 0 {
		c.logger.Warn("edited record no longer exists, discarding edit", zap.String("id", id))
		return nil
	}

	updated := slices.Clone(c.all)
	d.Apply(&updated[idx])
	if err := c.store.SaveAll(ctx, updated); err != nil {
		return fmt.Errorf("save edit of %s: %w", id, err)
	}
	c.logger.Info("inventory count updated", zap.String("id", id), zap.Int64("timestamp", updated[idx].Timestamp))

	return c.reloadLocked(ctx)
}

// Cancel discards the draft of id and reloads without writing.
func (c *Controller) Cancel(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.editor.Finish(id)
	return c.reloadLocked(ctx)
}

// Delete removes every record with identity id once confirmed. It reports
// whether anything was removed; an unconfirmed request changes nothing.
func (c *Controller) Delete(ctx context.Context, id string, confirmed bool) (bool, error) {
	if !confirmed {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.reloadLocked(ctx); err != nil {
		return false, err
	}

	remaining := slices.DeleteFunc(slices.Clone(c.all), func(rec models.InventoryCount) bool {
		return rec.ID == id
	})
	removed := len(c.all) - len(remaining)
	if removed == 0 {
		return false, nil
	}

	if err := c.store.SaveAll(ctx, remaining); err != nil {
		return false, fmt.Errorf("delete %s: %w", id, err)
	}
	c.editor.Finish(id)
	c.logger.Info("inventory count deleted", zap.String("id", id), zap.Int("removed", removed))

	return true, c.reloadLocked(ctx)
}

// Subscribe returns a channel signalled after each reload caused by an
// external change, and a function that releases it.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan struct{}, 1)
	c.subscribers[id] = ch

	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if _, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(ch)
		}
	}
}

func (c *Controller) broadcast() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (c *Controller) indexOf(id string) int {
	return slices.IndexFunc(c.all, func(rec models.InventoryCount) bool { return rec.ID == id })
}
