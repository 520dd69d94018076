// AngelaMos | 2026
// memory_test.go

package escrow

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/listing"
	"github.com/tonymphomilanzi/microbid/internal/user"
)

// world is a single-lock transactional store. Within holds the lock for the
// whole unit of work and restores a snapshot when fn fails, which gives the
// same serialization a row lock gives in postgres.
type world struct {
	mu        sync.Mutex
	escrows   map[string]Escrow
	proofs    map[string][]Proof
	purchases map[string]Purchase
	listings  map[string]listing.Listing
	users     map[string]user.User

	failDeals error
}

func newWorld() *world {
	return &world{
		escrows:   make(map[string]Escrow),
		proofs:    make(map[string][]Proof),
		purchases: make(map[string]Purchase),
		listings:  make(map[string]listing.Listing),
		users:     make(map[string]user.User),
	}
}

type snapshot struct {
	escrows   map[string]Escrow
	proofs    map[string][]Proof
	purchases map[string]Purchase
	listings  map[string]listing.Listing
	users     map[string]user.User
}

func (w *world) snapshot() snapshot {
	proofs := make(map[string][]Proof, len(w.proofs))
	for k, v := range w.proofs {
		proofs[k] = slices.Clone(v)
	}
	return snapshot{
		escrows:   maps.Clone(w.escrows),
		proofs:    proofs,
		purchases: maps.Clone(w.purchases),
		listings:  maps.Clone(w.listings),
		users:     maps.Clone(w.users),
	}
}

func (w *world) restore(s snapshot) {
	w.escrows = s.escrows
	w.proofs = s.proofs
	w.purchases = s.purchases
	w.listings = s.listings
	w.users = s.users
}

func (w *world) stores(tx bool) Stores {
	return Stores{
		Escrows:   &memEscrows{w: w, tx: tx},
		Purchases: &memPurchases{w: w, tx: tx},
		Listings:  &memListings{w: w, tx: tx},
		Users:     &memUsers{w: w, tx: tx},
	}
}

func (w *world) Within(_ context.Context, fn func(Stores) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := w.snapshot()
	if err := fn(w.stores(true)); err != nil {
		w.restore(snap)
		return err
	}
	return nil
}

func (w *world) lock(tx bool) func() {
	if tx {
		return func() {}
	}
	w.mu.Lock()
	return w.mu.Unlock
}

func (w *world) escrow(id string) Escrow {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.escrows[id]
}

func (w *world) listing(id string) listing.Listing {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.listings[id]
}

func (w *world) user(id string) user.User {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.users[id]
}

func (w *world) purchaseCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.purchases)
}

type memEscrows struct {
	w  *world
	tx bool
}

func (m *memEscrows) Create(_ context.Context, e *Escrow) error {
	defer m.w.lock(m.tx)()
	if _, ok := m.w.escrows[e.ID]; ok {
		return core.ErrDuplicateKey
	}
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	m.w.escrows[e.ID] = *e
	return nil
}

func (m *memEscrows) GetByID(_ context.Context, id string) (*Escrow, error) {
	defer m.w.lock(m.tx)()
	e, ok := m.w.escrows[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &e, nil
}

func (m *memEscrows) GetByIDForUpdate(ctx context.Context, id string) (*Escrow, error) {
	return m.GetByID(ctx, id)
}

func (m *memEscrows) UpdateStatus(_ context.Context, e *Escrow) error {
	defer m.w.lock(m.tx)()
	stored, ok := m.w.escrows[e.ID]
	if !ok {
		return core.ErrNotFound
	}
	stored.Status = e.Status
	stored.FundedAt = e.FundedAt
	stored.VerifiedBy = e.VerifiedBy
	stored.VerifiedAt = e.VerifiedAt
	stored.DisputeReason = e.DisputeReason
	stored.UpdatedAt = time.Now().UTC()
	e.UpdatedAt = stored.UpdatedAt
	m.w.escrows[e.ID] = stored
	return nil
}

func (m *memEscrows) AppendProof(_ context.Context, p *Proof) error {
	defer m.w.lock(m.tx)()
	p.CreatedAt = time.Now().UTC()
	m.w.proofs[p.EscrowID] = append(m.w.proofs[p.EscrowID], *p)
	return nil
}

func (m *memEscrows) ListProofs(_ context.Context, escrowID string) ([]Proof, error) {
	defer m.w.lock(m.tx)()
	return slices.Clone(m.w.proofs[escrowID]), nil
}

func (m *memEscrows) ListByStatus(_ context.Context, statuses []Status, limit int) ([]Escrow, error) {
	defer m.w.lock(m.tx)()
	var out []Escrow
	for _, e := range m.w.escrows {
		if slices.Contains(statuses, e.Status) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Escrow) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memPurchases struct {
	w  *world
	tx bool
}

func (m *memPurchases) CreateIfAbsent(_ context.Context, p *Purchase) (bool, error) {
	defer m.w.lock(m.tx)()
	if _, ok := m.w.purchases[p.EscrowID]; ok {
		return false, nil
	}
	p.CreatedAt = time.Now().UTC()
	m.w.purchases[p.EscrowID] = *p
	return true, nil
}

func (m *memPurchases) GetByEscrowID(_ context.Context, escrowID string) (*Purchase, error) {
	defer m.w.lock(m.tx)()
	p, ok := m.w.purchases[escrowID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &p, nil
}

type memListings struct {
	w  *world
	tx bool
}

func (m *memListings) Create(_ context.Context, l *listing.Listing) error {
	defer m.w.lock(m.tx)()
	m.w.listings[l.ID] = *l
	return nil
}

func (m *memListings) GetByID(_ context.Context, id string) (*listing.Listing, error) {
	defer m.w.lock(m.tx)()
	l, ok := m.w.listings[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &l, nil
}

func (m *memListings) GetByIDForUpdate(ctx context.Context, id string) (*listing.Listing, error) {
	return m.GetByID(ctx, id)
}

func (m *memListings) MarkSold(_ context.Context, id string) error {
	defer m.w.lock(m.tx)()
	l, ok := m.w.listings[id]
	if !ok || l.Status != listing.StatusActive {
		return core.ErrInvalidState
	}
	l.Status = listing.StatusSold
	m.w.listings[id] = l
	return nil
}

type memUsers struct {
	w  *world
	tx bool
}

func (m *memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	defer m.w.lock(m.tx)()
	u, ok := m.w.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) UpdateTier(_ context.Context, id string, tier user.Tier) error {
	defer m.w.lock(m.tx)()
	u, ok := m.w.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.Tier = tier
	m.w.users[id] = u
	return nil
}

func (m *memUsers) IncrementCompletedDeals(_ context.Context, ids ...string) error {
	defer m.w.lock(m.tx)()
	if m.w.failDeals != nil {
		return m.w.failDeals
	}
	for _, id := range ids {
		u, ok := m.w.users[id]
		if !ok {
			return core.ErrNotFound
		}
		u.CompletedDealsCount++
		m.w.users[id] = u
	}
	return nil
}
