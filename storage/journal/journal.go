package journal

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"lukechampine.com/blake3"

	"meltwater/core/events"
	"meltwater/core/types"
)

var (
	// ErrPathRequired is returned when no journal path is configured.
	ErrPathRequired = errors.New("journal: path must be configured")
	// ErrChainBroken is returned by Verify when a stored digest does not match.
	ErrChainBroken = errors.New("journal: digest chain broken")
)

// Entry is one committed engine event. Digest chains each entry to the one
// before it.
type Entry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sequence   uint64    `gorm:"uniqueIndex;not null"`
	Type       string    `gorm:"index;not null"`
	Attributes string    `gorm:"not null"`
	Digest     string    `gorm:"size:64;not null"`
	CreatedAt  time.Time
}

// Event decodes the stored attributes.
func (e Entry) Event() (*types.Event, error) {
	attrs := map[string]string{}
	if e.Attributes != "" {
		if err := json.Unmarshal([]byte(e.Attributes), &attrs); err != nil {
			return nil, fmt.Errorf("decode attributes of %s: %w", e.ID, err)
		}
	}
	return &types.Event{Type: e.Type, Attributes: attrs}, nil
}

// Journal is an append-only sqlite log of committed events. It implements
// events.Emitter so it can sit behind the controller.
type Journal struct {
	mu     sync.Mutex
	db     *gorm.DB
	seq    uint64
	last   [32]byte
	logger *slog.Logger
	now    func() time.Time
}

// Open opens or creates the journal at path. ":memory:" gives a private
// in-memory journal.
func Open(path string) (*Journal, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	if trimmed == ":memory:" {
		trimmed = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}
	db, err := gorm.Open(sqlite.Open(trimmed), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	j := &Journal{db: db, logger: slog.Default(), now: time.Now}
	var tail Entry
	err = db.Order("sequence DESC").Limit(1).Find(&tail).Error
	if err != nil {
		return nil, fmt.Errorf("load journal tail: %w", err)
	}
	if tail.Sequence > 0 {
		j.seq = tail.Sequence
		if j.last, err = decodeDigest(tail.Digest); err != nil {
			return nil, err
		}
	}
	return j, nil
}

func (j *Journal) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.Default()
	}
	j.logger = l
}

// Close releases the database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Emit implements events.Emitter. Failures are logged; the event has already
// been committed by the engine.
func (j *Journal) Emit(evt events.Event) {
	rendered := events.Render(evt)
	if rendered == nil {
		return
	}
	if _, err := j.Append(context.Background(), rendered); err != nil {
		j.logger.Error("journal append failed", slog.String("type", rendered.Type), slog.Any("error", err))
	}
}

// Append stores evt as the next entry.
func (j *Journal) Append(ctx context.Context, evt *types.Event) (*Entry, error) {
	if evt == nil {
		return nil, fmt.Errorf("journal: nil event")
	}
	attrs, err := json.Marshal(evt.Attributes)
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	digest := chain(j.last, evt)
	entry := &Entry{
		ID:         uuid.New(),
		Sequence:   j.seq + 1,
		Type:       evt.Type,
		Attributes: string(attrs),
		Digest:     hex.EncodeToString(digest[:]),
		CreatedAt:  j.now().UTC(),
	}
	if err := j.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	j.seq = entry.Sequence
	j.last = digest
	return entry, nil
}

// Filter narrows List.
type Filter struct {
	Type  string
	After uint64
	Limit int
}

// List returns entries in sequence order.
func (j *Journal) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := j.db.WithContext(ctx).Model(&Entry{}).Where("sequence > ?", filter.After)
	if t := strings.TrimSpace(filter.Type); t != "" {
		query = query.Where("type = ?", t)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var entries []Entry
	if err := query.Order("sequence ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Verify recomputes the digest chain over every entry.
func (j *Journal) Verify(ctx context.Context) error {
	entries, err := j.List(ctx, Filter{})
	if err != nil {
		return err
	}
	var prev [32]byte
	for _, entry := range entries {
		evt, err := entry.Event()
		if err != nil {
			return err
		}
		want := chain(prev, evt)
		if hex.EncodeToString(want[:]) != entry.Digest {
			return fmt.Errorf("%w at sequence %d", ErrChainBroken, entry.Sequence)
		}
		prev = want
	}
	return nil
}

// chain hashes the previous digest with the event type and its attributes in
// key order.
func chain(prev [32]byte, evt *types.Event) [32]byte {
	h := blake3.New(32, nil)
	h.Write(prev[:])
	h.Write([]byte(evt.Type))
	for _, key := range evt.Keys() {
		h.Write([]byte{0})
		h.Write([]byte(key))
		h.Write([]byte{0})
		h.Write([]byte(evt.Attributes[key]))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func decodeDigest(value string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(value)
	if err != nil || len(raw) != len(out) {
		return out, fmt.Errorf("journal: malformed digest %q", value)
	}
	copy(out[:], raw)
	return out, nil
}
