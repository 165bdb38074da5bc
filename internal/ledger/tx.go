// Atomic multi-field batches. A behavior block that needs several related
// mutations for one logical action submits them as a single batch: the whole
// batch applies under one lock acquisition or not at all.
package ledger

import "fmt"

// Tx stages reads and writes against the ledger. Reads observe staged writes,
// so a batch sees its own effects. Nothing touches the ledger until commit.
type Tx struct {
	l      *Ledger
	staged map[ActorID]map[Field]float64
	writes int
}

// Apply runs fn against a staged view of the ledger under the write lock and
// commits every staged write if fn returns nil. On error nothing is applied —
// partial multi-field updates are forbidden.
func (l *Ledger) Apply(fn func(tx *Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &Tx{l: l, staged: make(map[ActorID]map[Field]float64)}
	if err := fn(tx); err != nil {
		return err
	}

	for id, fields := range tx.staged {
		rec, ok := l.actors[id]
		if !ok {
			// Actor checked at staging time; removal is impossible while
			// the lock is held.
			return fmt.Errorf("%w: %d", ErrNoActor, id)
		}
		for f, v := range fields {
			rec.fields[f] = v
		}
	}
	l.version += uint64(tx.writes)
	return nil
}

// Get reads a field, observing any staged write.
func (tx *Tx) Get(id ActorID, field Field) (float64, error) {
	if fields, ok := tx.staged[id]; ok {
		if v, ok := fields[field]; ok {
			return v, nil
		}
	}
	return tx.l.getLocked(id, field)
}

// Set stages an overwrite.
func (tx *Tx) Set(id ActorID, field Field, value float64) error {
	rec, ok := tx.l.actors[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoActor, id)
	}
	if !kindFields[rec.kind][field] {
		return fmt.Errorf("%w: %s for %s", ErrUnknownField, field, KindName(rec.kind))
	}
	tx.stage(id, field, value)
	return nil
}

// Delta stages an atomic add and returns the staged value.
func (tx *Tx) Delta(id ActorID, field Field, delta float64) (float64, error) {
	cur, err := tx.Get(id, field)
	if err != nil {
		return 0, err
	}
	next := cur + delta
	tx.stage(id, field, next)
	return next, nil
}

// DeltaClamped stages an add clamped at zero and returns the realized delta.
func (tx *Tx) DeltaClamped(id ActorID, field Field, delta float64) (float64, error) {
	cur, err := tx.Get(id, field)
	if err != nil {
		return 0, err
	}
	next := cur + delta
	if next < 0 {
		next = 0
	}
	tx.stage(id, field, next)
	return next - cur, nil
}

func (tx *Tx) stage(id ActorID, field Field, value float64) {
	fields, ok := tx.staged[id]
	if !ok {
		fields = make(map[Field]float64, 4)
		tx.staged[id] = fields
	}
	fields[field] = value
	tx.writes++
}
