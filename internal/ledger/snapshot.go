// Point-in-time export of all actor records for the observability sink.
package ledger

import "sort"

// ActorSnapshot is one actor's state at snapshot time.
type ActorSnapshot struct {
	ID        ActorID
	Kind      ActorKind
	Fields    map[Field]float64
	Employees []ActorID // firms only, ascending
}

// Snapshot copies every actor record under one read lock. The result is
// detached from the ledger and safe to hand to slow consumers.
func (l *Ledger) Snapshot() []ActorSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]ActorSnapshot, 0, len(l.actors))
	for _, rec := range l.actors {
		snap := ActorSnapshot{
			ID:     rec.id,
			Kind:   rec.kind,
			Fields: make(map[Field]float64, len(rec.fields)),
		}
		for f, v := range rec.fields {
			snap.Fields[f] = v
		}
		if rec.kind == KindFirm {
			for id := range rec.employees {
				snap.Employees = append(snap.Employees, id)
			}
			sort.Slice(snap.Employees, func(i, j int) bool {
				return snap.Employees[i] < snap.Employees[j]
			})
		}
		out = append(out, snap)
	}
	// Deterministic export order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
