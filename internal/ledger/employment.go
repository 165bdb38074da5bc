// Employment bookkeeping. Invariant: a person employed by some firm appears
// in exactly that firm's employee set, never two.
package ledger

import (
	"fmt"
	"sort"
)

// Hire puts a person on a firm's payroll, removing them from any previous
// employer first.
func (l *Ledger) Hire(firmID, personID ActorID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	firm, ok := l.actors[firmID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoActor, firmID)
	}
	if firm.kind != KindFirm {
		return fmt.Errorf("%w: %d", ErrNotFirm, firmID)
	}
	person, ok := l.actors[personID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoActor, personID)
	}
	if person.kind != KindPerson {
		return fmt.Errorf("ledger: %d is not a person", personID)
	}

	if prevID, employed := l.employer[personID]; employed {
		if prev, ok := l.actors[prevID]; ok {
			delete(prev.employees, personID)
		}
	}
	firm.employees[personID] = struct{}{}
	l.employer[personID] = firmID
	l.version++
	return nil
}

// Fire removes a person from their firm's payroll.
func (l *Ledger) Fire(personID ActorID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	firmID, employed := l.employer[personID]
	if !employed {
		return fmt.Errorf("%w: person %d has no employer", ErrNoActor, personID)
	}
	if firm, ok := l.actors[firmID]; ok {
		delete(firm.employees, personID)
	}
	delete(l.employer, personID)
	l.version++
	return nil
}

// Employees returns a firm's employee IDs in ascending order.
func (l *Ledger) Employees(firmID ActorID) ([]ActorID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	firm, ok := l.actors[firmID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoActor, firmID)
	}
	if firm.kind != KindFirm {
		return nil, fmt.Errorf("%w: %d", ErrNotFirm, firmID)
	}
	ids := make([]ActorID, 0, len(firm.employees))
	for id := range firm.employees {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// EmployerOf returns the firm employing a person, if any.
func (l *Ledger) EmployerOf(personID ActorID) (ActorID, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	firmID, ok := l.employer[personID]
	return firmID, ok
}
