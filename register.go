// FILE: lixenwraith/sectcfg/register.go
package sectcfg

import (
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Register adds or replaces the record used for its struct type.
func (e *Engine) Register(rec *Record) error {
	if rec == nil {
		return errors.New("cannot register nil record")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records[rec.typ] = rec
	e.logger.Debug("registered record", zap.String("record", rec.name), zap.Stringer("type", rec.typ))
	return nil
}

// Unregister removes the record registered for t.
func (e *Engine) Unregister(t reflect.Type) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.records[t]; !exists {
		return fmt.Errorf("no record registered for %s", t)
	}
	delete(e.records, t)
	return nil
}

// Record returns the record registered for t.
func (e *Engine) Record(t reflect.Type) (*Record, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.records[t]
	return rec, ok
}

// Records returns the registered records keyed by name.
func (e *Engine) Records() map[string]*Record {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]*Record, len(e.records))
	for _, rec := range e.records {
		out[rec.name] = rec
	}
	return out
}

func (e *Engine) registered(t reflect.Type) *Record {
	rec, _ := e.Record(t)
	return rec
}

// recordFor returns the registered record for t or derives one from its tags.
func (e *Engine) recordFor(t reflect.Type) (*Record, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return e.binder.recordFor(t)
}

// RegisterType derives the record for T with opts and registers it.
func RegisterType[T any](e *Engine, opts ...Option) (*Record, error) {
	rec, err := Define[T](opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", reflect.TypeOf((*T)(nil)).Elem(), err)
	}
	if err := e.Register(rec); err != nil {
		return nil, err
	}
	return rec, nil
}
