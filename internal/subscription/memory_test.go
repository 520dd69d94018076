// AngelaMos | 2026
// memory_test.go

package subscription

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tonymphomilanzi/microbid/internal/core"
	"github.com/tonymphomilanzi/microbid/internal/user"
)

type world struct {
	mu       sync.Mutex
	plans    map[string]Plan
	payments map[string]Payment
	users    map[string]user.User

	tierWrites int
	failUpdate error
}

func newWorld() *world {
	return &world{
		plans:    make(map[string]Plan),
		payments: make(map[string]Payment),
		users:    make(map[string]user.User),
	}
}

func (w *world) stores(tx bool) Stores {
	return Stores{
		Plans:    &memPlans{w: w, tx: tx},
		Payments: &memPayments{w: w, tx: tx},
		Users:    &memUsers{w: w, tx: tx},
	}
}

func (w *world) Within(_ context.Context, fn func(Stores) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	payments := maps.Clone(w.payments)
	users := maps.Clone(w.users)
	tierWrites := w.tierWrites

	if err := fn(w.stores(true)); err != nil {
		w.payments = payments
		w.users = users
		w.tierWrites = tierWrites
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

func (w *world) user(id string) user.User {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.users[id]
}

func (w *world) payment(id string) Payment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.payments[id]
}

type memPlans struct {
	w  *world
	tx bool
}

func (m *memPlans) ListActive(_ context.Context) ([]Plan, error) {
	defer m.w.lock(m.tx)()
	var out []Plan
	for _, p := range m.w.plans {
		if p.IsActive {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Plan) int { return a.SortOrder - b.SortOrder })
	return out, nil
}

func (m *memPlans) GetByID(_ context.Context, id string) (*Plan, error) {
	defer m.w.lock(m.tx)()
	for _, p := range m.w.plans {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memPlans) GetByName(_ context.Context, name user.Tier) (*Plan, error) {
	defer m.w.lock(m.tx)()
	p, ok := m.w.plans[string(name)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &p, nil
}

type memPayments struct {
	w  *world
	tx bool
}

func (m *memPayments) Create(_ context.Context, p *Payment) error {
	defer m.w.lock(m.tx)()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	m.w.payments[p.ID] = *p
	return nil
}

func (m *memPayments) GetByID(_ context.Context, id string) (*Payment, error) {
	defer m.w.lock(m.tx)()
	p, ok := m.w.payments[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &p, nil
}

func (m *memPayments) GetByIDForUpdate(ctx context.Context, id string) (*Payment, error) {
	return m.GetByID(ctx, id)
}

func (m *memPayments) Update(_ context.Context, p *Payment) error {
	defer m.w.lock(m.tx)()
	if m.w.failUpdate != nil {
		return m.w.failUpdate
	}
	stored, ok := m.w.payments[p.ID]
	if !ok {
		return core.ErrNotFound
	}
	p.TotalChargeCents = stored.TotalChargeCents
	p.UpdatedAt = time.Now().UTC()
	m.w.payments[p.ID] = *p
	return nil
}

func (m *memPayments) ListByStatus(_ context.Context, statuses []Status, limit int) ([]Payment, error) {
	defer m.w.lock(m.tx)()
	var out []Payment
	for _, p := range m.w.payments {
		if slices.Contains(statuses, p.Status) {
			out = append(out, p)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
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
	m.w.tierWrites++
	return nil
}

func (m *memUsers) IncrementCompletedDeals(_ context.Context, _ ...string) error {
	return nil
}
