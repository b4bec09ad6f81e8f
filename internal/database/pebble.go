package database

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/pebble"
)

/*
Key layout:
- "slot:current"  -> SlotRecord (gzip-compressed JSON)
- "slot:previous" -> SlotRecord (gzip-compressed JSON)
*/
var (
	currentKey  = []byte("slot:" + SlotCurrent)
	previousKey = []byte("slot:" + SlotPrevious)
)

// PebbleStore keeps the two visual slots in a Pebble key-value store.
type PebbleStore struct {
	mu sync.Mutex
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{Logger: pebbleLogger{}})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble store: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Close() error {
	return p.db.Close()
}

// Rotate demotes the current slot and stores record as current in one batch.
func (p *PebbleStore) Rotate(record SlotRecord) error {
	if err := ValidateRecord(record); err != nil {
		return fmt.Errorf("invalid slot record: %w", err)
	}
	value, err := encodeSlot(record)
	if err != nil {
		return fmt.Errorf("failed to encode slot: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	batch := p.db.NewBatch()
	defer batch.Close()

	current, closer, err := p.db.Get(currentKey)
	switch {
	case err == nil:
		err = batch.Set(previousKey, current, nil)
		closer.Close()
		if err != nil {
			return fmt.Errorf("failed to demote current slot: %w", err)
		}
	case errors.Is(err, pebble.ErrNotFound):
		if err := batch.Delete(previousKey, nil); err != nil {
			return fmt.Errorf("failed to drop previous slot: %w", err)
		}
	default:
		return fmt.Errorf("failed to read current slot: %w", err)
	}

	if err := batch.Set(currentKey, value, nil); err != nil {
		return fmt.Errorf("failed to write current slot: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit slots: %w", err)
	}
	return nil
}

func (p *PebbleStore) Slots() (current, previous *SlotRecord, err error) {
	if current, err = p.get(currentKey); err != nil {
		return nil, nil, err
	}
	if previous, err = p.get(previousKey); err != nil {
		return nil, nil, err
	}
	return current, previous, nil
}

func (p *PebbleStore) get(key []byte) (*SlotRecord, error) {
	val, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	defer closer.Close()

	record, err := decodeSlot(val)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &record, nil
}

func (p *PebbleStore) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	batch := p.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(currentKey, nil); err != nil {
		return fmt.Errorf("failed to clear slots: %w", err)
	}
	if err := batch.Delete(previousKey, nil); err != nil {
		return fmt.Errorf("failed to clear slots: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to clear slots: %w", err)
	}
	return nil
}

// encodeSlot stores a record as gzip-compressed JSON.
func encodeSlot(record SlotRecord) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(record); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeSlot(data []byte) (SlotRecord, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return SlotRecord{}, err
	}
	defer zr.Close()

	var record SlotRecord
	if err := json.NewDecoder(zr).Decode(&record); err != nil {
		return SlotRecord{}, err
	}
	return record, nil
}

// pebbleLogger keeps Pebble's background chatter out of the service log
// but still reports its errors.
type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...interface{}) {}

func (pebbleLogger) Errorf(format string, args ...interface{}) {
	log.Printf("pebble: "+format, args...)
}

func (pebbleLogger) Fatalf(format string, args ...interface{}) {
	log.Fatalf("pebble: "+format, args...)
}
