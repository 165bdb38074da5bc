// Package ledger is the authoritative, concurrently-accessible store of
// economic actor records. It is the only shared mutable state in the
// simulation: agents and the clearing engine read and mutate actors solely
// through it, and its delta primitive is a true atomic increment so
// concurrent consumers never lose updates.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ActorID identifies an economic actor.
type ActorID int64

// ActorKind classifies ledger-tracked entities.
type ActorKind uint8

const (
	KindPerson ActorKind = iota
	KindFirm
	KindBank
	KindGovernment
)

// KindName returns a readable actor kind name.
func KindName(k ActorKind) string {
	switch k {
	case KindPerson:
		return "person"
	case KindFirm:
		return "firm"
	case KindBank:
		return "bank"
	case KindGovernment:
		return "government"
	}
	return "unknown"
}

// Field names an actor's numeric ledger field.
type Field string

const (
	FieldCurrency    Field = "currency"
	FieldSkill       Field = "skill"
	FieldConsumption Field = "consumption"
	FieldIncome      Field = "income"
	FieldBudget      Field = "budget"
	FieldInventory   Field = "inventory"
	FieldPrice       Field = "price"
	FieldDemand      Field = "demand"
	FieldSales       Field = "sales"
)

// kindFields declares which fields each actor kind carries.
var kindFields = map[ActorKind]map[Field]bool{
	KindPerson: {
		FieldCurrency: true, FieldSkill: true, FieldConsumption: true,
		FieldIncome: true, FieldBudget: true,
	},
	KindFirm: {
		FieldCurrency: true, FieldInventory: true, FieldPrice: true,
		FieldDemand: true, FieldSales: true,
	},
	KindBank:       {FieldCurrency: true},
	KindGovernment: {FieldCurrency: true},
}

// Errors returned by ledger operations.
var (
	ErrNoActor      = errors.New("ledger: no such actor")
	ErrDuplicate    = errors.New("ledger: actor already exists")
	ErrUnknownField = errors.New("ledger: field not valid for actor kind")
	ErrNotFirm      = errors.New("ledger: actor is not a firm")
)

type actorRecord struct {
	id        ActorID
	kind      ActorKind
	fields    map[Field]float64
	employees map[ActorID]struct{} // firms only
}

// Ledger holds all actor records behind one lock. Every mutation bumps a
// monotonically increasing version for observability and conflict diagnosis.
type Ledger struct {
	mu       sync.RWMutex
	actors   map[ActorID]*actorRecord
	employer map[ActorID]ActorID // person -> employing firm
	version  uint64
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		actors:   make(map[ActorID]*actorRecord),
		employer: make(map[ActorID]ActorID),
	}
}

// AddActor registers a new actor with initial field values. Unset fields
// default to zero, except a firm's price which defaults to 1 and must stay
// strictly positive.
func (l *Ledger) AddActor(id ActorID, kind ActorKind, init map[Field]float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.actors[id]; dup {
		return fmt.Errorf("%w: %d", ErrDuplicate, id)
	}
	valid := kindFields[kind]
	rec := &actorRecord{id: id, kind: kind, fields: make(map[Field]float64, len(valid))}
	for f := range valid {
		rec.fields[f] = 0
	}
	if kind == KindFirm {
		rec.fields[FieldPrice] = 1
		rec.employees = make(map[ActorID]struct{})
	}
	for f, v := range init {
		if !valid[f] {
			return fmt.Errorf("%w: %s for %s", ErrUnknownField, f, KindName(kind))
		}
		rec.fields[f] = v
	}
	if kind == KindFirm && rec.fields[FieldPrice] <= 0 {
		return fmt.Errorf("ledger: firm %d price must be > 0", id)
	}
	l.actors[id] = rec
	l.version++
	return nil
}

// RemoveActor deletes an actor. A removed person is dropped from its
// employer's set; a removed firm releases all its employees.
func (l *Ledger) RemoveActor(id ActorID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.actors[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoActor, id)
	}
	if firmID, employed := l.employer[id]; employed {
		if firm, ok := l.actors[firmID]; ok {
			delete(firm.employees, id)
		}
		delete(l.employer, id)
	}
	if rec.kind == KindFirm {
		for pid := range rec.employees {
			delete(l.employer, pid)
		}
	}
	delete(l.actors, id)
	l.version++
	return nil
}

// Kind reports an actor's kind.
func (l *Ledger) Kind(id ActorID) (ActorKind, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.actors[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNoActor, id)
	}
	return rec.kind, nil
}

// Actors returns all actor IDs of a kind in ascending order.
func (l *Ledger) Actors(kind ActorKind) []ActorID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var ids []ActorID
	for id, rec := range l.actors {
		if rec.kind == kind {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Get reads one field of one actor.
func (l *Ledger) Get(id ActorID, field Field) (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.getLocked(id, field)
}

func (l *Ledger) getLocked(id ActorID, field Field) (float64, error) {
	rec, ok := l.actors[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNoActor, id)
	}
	if !kindFields[rec.kind][field] {
		return 0, fmt.Errorf("%w: %s for %s", ErrUnknownField, field, KindName(rec.kind))
	}
	return rec.fields[field], nil
}

// BatchGet reads the given fields for every listed actor under one lock
// acquisition, yielding a mutually consistent snapshot.
func (l *Ledger) BatchGet(ids []ActorID, fields []Field) (map[ActorID]map[Field]float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[ActorID]map[Field]float64, len(ids))
	for _, id := range ids {
		rec, ok := l.actors[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrNoActor, id)
		}
		vals := make(map[Field]float64, len(fields))
		for _, f := range fields {
			if kindFields[rec.kind][f] {
				vals[f] = rec.fields[f]
			}
		}
		out[id] = vals
	}
	return out, nil
}

// Update overwrites one field (last-writer-wins within a clearing period).
func (l *Ledger) Update(id ActorID, field Field, value float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.setLocked(id, field, value); err != nil {
		return err
	}
	l.version++
	return nil
}

func (l *Ledger) setLocked(id ActorID, field Field, value float64) error {
	rec, ok := l.actors[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoActor, id)
	}
	if !kindFields[rec.kind][field] {
		return fmt.Errorf("%w: %s for %s", ErrUnknownField, field, KindName(rec.kind))
	}
	rec.fields[field] = value
	return nil
}

// DeltaUpdate atomically adds delta to a field and returns the new value.
// This is the accumulation primitive for inventory/demand/sales counters
// touched by many concurrent consumers.
func (l *Ledger) DeltaUpdate(id ActorID, field Field, delta float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, err := l.getLocked(id, field)
	if err != nil {
		return 0, err
	}
	next := cur + delta
	l.actors[id].fields[field] = next
	l.version++
	return next, nil
}

// DeltaUpdateClamped adds delta but never lets the field drop below zero.
// It returns the realized delta, which is what callers must record —
// an over-draw is clamped to the feasible amount, never raised as an error.
func (l *Ledger) DeltaUpdateClamped(id ActorID, field Field, delta float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	realized, err := deltaClampedLocked(l, id, field, delta)
	if err != nil {
		return 0, err
	}
	l.version++
	return realized, nil
}

func deltaClampedLocked(l *Ledger, id ActorID, field Field, delta float64) (float64, error) {
	cur, err := l.getLocked(id, field)
	if err != nil {
		return 0, err
	}
	next := cur + delta
	if next < 0 {
		next = 0
	}
	l.actors[id].fields[field] = next
	return next - cur, nil
}

// Version returns the current mutation sequence number.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}
