package license

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStore keeps everything in process. Writers are serialised by txMu;
// a transaction works on a staged copy that replaces the live state only
// when the callback succeeds.
type MemoryStore struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state *memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

type memoryState struct {
	customers map[string]*Customer
	emails    map[string]string
	licenses  map[string]*License
	keys      map[string]string
}

func newMemoryState() *memoryState {
	return &memoryState{
		customers: map[string]*Customer{},
		emails:    map[string]string{},
		licenses:  map[string]*License{},
		keys:      map[string]string{},
	}
}

// Stored records are never mutated in place, so a shallow map copy is a
// safe snapshot.
func (m *memoryState) clone() *memoryState {
	return &memoryState{
		customers: maps.Clone(m.customers),
		emails:    maps.Clone(m.emails),
		licenses:  maps.Clone(m.licenses),
		keys:      maps.Clone(m.keys),
	}
}

func (m *memoryState) createCustomer(c *Customer) error {
	if _, ok := m.emails[c.ContactEmail]; ok {
		return ErrDuplicateEmail
	}
	m.customers[c.ID] = c.clone()
	m.emails[c.ContactEmail] = c.ID
	return nil
}

func (m *memoryState) findCustomerByEmail(email string) *Customer {
	id, ok := m.emails[email]
	if !ok {
		return nil
	}
	return m.customers[id].clone()
}

func (m *memoryState) createLicense(l *License) error {
	if _, ok := m.keys[l.LicenseKey]; ok {
		return ErrDuplicateKey
	}
	if _, ok := m.customers[l.CustomerID]; !ok {
		return storageErr("create license", ErrNotFound)
	}
	stored := l.clone()
	stored.Customer = nil
	m.licenses[l.ID] = stored
	m.keys[l.LicenseKey] = l.ID
	return nil
}

func (m *memoryState) withCustomer(l *License) *License {
	out := l.clone()
	if c, ok := m.customers[l.CustomerID]; ok {
		out.Customer = c.clone()
	}
	return out
}

func (m *memoryState) findLicenseByKey(key string) *License {
	id, ok := m.keys[key]
	if !ok {
		return nil
	}
	return m.withCustomer(m.licenses[id])
}

func (m *memoryState) listLicenses(p ListParams) []*License {
	all := slices.Collect(maps.Values(m.licenses))
	slices.SortFunc(all, compareLicenses)

	out := make([]*License, 0, len(all))
	for _, l := range all {
		if p.After != nil {
			if l.CreatedAt.Before(p.After.CreatedAt) {
				continue
			}
			if l.CreatedAt.Equal(p.After.CreatedAt) && l.ID <= p.After.ID {
				continue
			}
		}
		out = append(out, m.withCustomer(l))
		if p.Limit > 0 && len(out) == p.Limit {
			break
		}
	}
	return out
}

func compareLicenses(a, b *License) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

func (s *MemoryStore) CreateCustomer(ctx context.Context, c *Customer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createCustomer(c)
}

func (s *MemoryStore) FindCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.findCustomerByEmail(email), nil
}

func (s *MemoryStore) CreateLicense(ctx context.Context, l *License) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createLicense(l)
}

func (s *MemoryStore) FindLicenseByKey(ctx context.Context, key string) (*License, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.findLicenseByKey(key), nil
}

func (s *MemoryStore) ListLicensesWithCustomer(ctx context.Context, p ListParams) ([]*License, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listLicenses(p), nil
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	staged := s.state.clone()
	s.mu.RUnlock()

	tx := &memoryTx{state: staged}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = tx.state
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// memoryTx is the view handed to a transaction callback. It is confined to
// the callback's goroutine.
type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) CreateCustomer(_ context.Context, c *Customer) error {
	return t.state.createCustomer(c)
}

func (t *memoryTx) FindCustomerByEmail(_ context.Context, email string) (*Customer, error) {
	return t.state.findCustomerByEmail(email), nil
}

func (t *memoryTx) CreateLicense(_ context.Context, l *License) error {
	return t.state.createLicense(l)
}

func (t *memoryTx) FindLicenseByKey(_ context.Context, key string) (*License, error) {
	return t.state.findLicenseByKey(key), nil
}

func (t *memoryTx) ListLicensesWithCustomer(_ context.Context, p ListParams) ([]*License, error) {
	return t.state.listLicenses(p), nil
}

func (t *memoryTx) Transaction(ctx context.Context, fn func(tx Store) error) error {
	nested := &memoryTx{state: t.state.clone()}
	if err := fn(nested); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.state = nested.state
	return nil
}

func (t *memoryTx) Ping(ctx context.Context) error {
	return ctx.Err()
}
