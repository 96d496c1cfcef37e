package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/tracklog/internal/domain/models"
)

const (
	// DefaultCountsKey is the key holding the tracking log.
	DefaultCountsKey = "inventoryCounts"
	// DefaultUserNameKey is the key holding the display user name.
	DefaultUserNameKey = "userName"
)

// ErrCorrupt marks persisted counts that could not be decoded.
var ErrCorrupt = errors.New("persisted inventory counts are corrupt")

// Backend is the key-value store the adapter persists through.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Watch(ctx context.Context, key string) (<-chan struct{}, error)
}

// Store reads and writes the whole tracking log under a fixed key.
type Store struct {
	backend     Backend
	countsKey   string
	userNameKey string
	logger      *zap.Logger
	newID       func() string
}

// New builds a Store. Empty keys fall back to the defaults.
func New(backend Backend, countsKey, userNameKey string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if countsKey == "" {
		countsKey = DefaultCountsKey
	}
	if userNameKey == "" {
		userNameKey = DefaultUserNameKey
	}
	return &Store{
		backend:     backend,
		countsKey:   countsKey,
		userNameKey: userNameKey,
		logger:      logger,
		newID:       uuid.NewString,
	}
}

// CountsKey returns the key holding the tracking log.
func (s *Store) CountsKey() string { return s.countsKey }

// Load returns the persisted counts. found is false when nothing has ever been
// stored under the key; callers keep their previous state in that case.
// Corrupt content is logged and loaded as an empty log. Load never writes:
// records stored without an identity get a local one derived from their
// content, stable across loads while the record is unchanged.
func (s *Store) Load(ctx context.Context) (counts []models.InventoryCount, found bool, err error) {
	data, found, err := s.backend.Get(ctx, s.countsKey)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", s.countsKey, err)
	}
	if !found {
		return nil, false, nil
	}

	if err := json.Unmarshal(bytes.TrimSpace(data), &counts); err != nil {
		s.logger.Warn("discarding unreadable tracking log",
			zap.String("key", s.countsKey),
			zap.Error(fmt.Errorf("%w: %v", ErrCorrupt, err)))
		return []models.InventoryCount{}, true, nil
	}
	if counts == nil {
		counts = []models.InventoryCount{}
	}

	seen := make(map[string]int)
	for i := range counts {
		if counts[i].ID != "" {
			continue
		}
		id, err := localID(counts[i], seen)
		if err != nil {
			return nil, true, err
		}
		counts[i].AssignLocalID(id)
	}

	return counts, true, nil
}

// localID hashes the encoded record. Identical records are told apart by
// their position among each other.
func localID(c models.InventoryCount, seen map[string]int) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode count: %w", err)
	}
	sum := sha256.Sum256(data)
	id := "h" + hex.EncodeToString(sum[:8])

	n := seen[id]
	seen[id] = n + 1
	if n > 0 {
		id = fmt.Sprintf("%s-%d", id, n)
	}
	return id, nil
}

// SaveAll overwrites the persisted log with counts. Last writer wins.
func (s *Store) SaveAll(ctx context.Context, counts []models.InventoryCount) error {
	if counts == nil {
		counts = []models.InventoryCount{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(counts); err != nil {
		return fmt.Errorf("encode counts: %w", err)
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	if err := s.backend.Put(ctx, s.countsKey, data); err != nil {
		return fmt.Errorf("save %s: %w", s.countsKey, err)
	}
	s.logger.Debug("tracking log saved", zap.Int("records", len(counts)))
	return nil
}

// Append adds counts at the end of the persisted log and returns them with
// their assigned identities.
func (s *Store) Append(ctx context.Context, counts []models.InventoryCount) ([]models.InventoryCount, error) {
	existing, _, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	added := slices.Clone(counts)
	for i := range added {
		if added[i].ID == "" {
			added[i].ID = s.newID()
		}
	}

	if err := s.SaveAll(ctx, append(existing, added...)); err != nil {
		return nil, err
	}
	s.logger.Info("counts appended", zap.Int("added", len(added)), zap.Int("records", len(existing)+len(added)))
	return added, nil
}

// UserName returns the display user name, or "" when none is stored.
func (s *Store) UserName(ctx context.Context) (string, error) {
	data, found, err := s.backend.Get(ctx, s.userNameKey)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", s.userNameKey, err)
	}
	if !found {
		return "", nil
	}
	return strings.TrimSpace(string(data)), nil
}

// SetUserName stores the display user name.
func (s *Store) SetUserName(ctx context.Context, name string) error {
	if err := s.backend.Put(ctx, s.userNameKey, []byte(strings.TrimSpace(name))); err != nil {
		return fmt.Errorf("save %s: %w", s.userNameKey, err)
	}
	return nil
}

// OnExternalChange calls callback each time another process changes the
// tracking log, until ctx is done. Writes made through this Store do not
// trigger the callback.
func (s *Store) OnExternalChange(ctx context.Context, callback func(context.Context)) error {
	changes, err := s.backend.Watch(ctx, s.countsKey)
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.countsKey, err)
	}

	go func() {
		for range changes {
			s.logger.Info("tracking log changed externally", zap.String("key", s.countsKey))
			callback(ctx)
		}
	}()
	return nil
}
