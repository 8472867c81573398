// Package memory is an in-process Store used for local development and tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/planmoni/planmoni-backend/internal/models"
	repo "github.com/planmoni/planmoni-backend/internal/repository"
)

type data struct {
	wallets  map[string]models.Wallet
	txns     map[string]models.Transaction // by reference
	plans    map[string]models.PayoutPlan
	events   map[string]models.Event
	cards    map[string]models.Card
	accounts map[string]models.VirtualAccount // by user
}

func (d data) clone() data {
	return data{
		wallets:  maps.Clone(d.wallets),
		txns:     maps.Clone(d.txns),
		plans:    maps.Clone(d.plans),
		events:   maps.Clone(d.events),
		cards:    maps.Clone(d.cards),
		accounts: maps.Clone(d.accounts),
	}
}

type Store struct {
	mu  sync.Mutex
	d   data
	now func() time.Time

	// ProcedureErr is returned by ProcessEmergencyWithdrawal. It defaults to
	// repo.ErrProcedureUnavailable, like a database without the function.
	ProcedureErr error
	// WithdrawalProcedure, when set, stands in for the database function and
	// runs inside a store transaction.
	WithdrawalProcedure func(ctx context.Context, r repo.Repos, c repo.EmergencyWithdrawalCall) error
}

func NewStore() *Store {
	return &Store{
		d: data{
			wallets:  map[string]models.Wallet{},
			txns:     map[string]models.Transaction{},
			plans:    map[string]models.PayoutPlan{},
			events:   map[string]models.Event{},
			cards:    map[string]models.Card{},
			accounts: map[string]models.VirtualAccount{},
		},
		now:          time.Now,
		ProcedureErr: repo.ErrProcedureUnavailable,
	}
}

// handle scopes repository calls either to a held transaction lock or to one call each.
type handle struct {
	s    *Store
	inTx bool
}

func (h *handle) do(fn func(d *data) error) error {
	if !h.inTx {
		h.s.mu.Lock()
		defer h.s.mu.Unlock()
	}
	return fn(&h.s.d)
}

func (s *Store) reposFor(h *handle) repo.Repos {
	return repo.Repos{
		Wallets:         &wallets{h},
		Transactions:    &transactions{h},
		PayoutPlans:     &plans{h},
		Events:          &events{h},
		Cards:           &cards{h},
		VirtualAccounts: &accounts{h},
		Procedures:      &procedures{h},
	}
}

func (s *Store) Repos() repo.Repos { return s.reposFor(&handle{s: s}) }

// WithTx serializes units of work and restores the previous state when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(r repo.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.d.clone()
	if err := fn(s.reposFor(&handle{s: s, inTx: true})); err != nil {
		s.d = snapshot
		return err
	}
	return nil
}

// ---------- wallets ----------

type wallets struct{ h *handle }

func (r *wallets) get(d *data, userID string) models.Wallet {
	w, ok := d.wallets[userID]
	if !ok {
		w = models.Wallet{UserID: userID, Balance: decimal.Zero, LockedBalance: decimal.Zero, UpdatedAt: r.h.s.now()}
		d.wallets[userID] = w
	}
	return w
}

func (r *wallets) GetOrCreate(_ context.Context, userID string) (w models.Wallet, err error) {
	err = r.h.do(func(d *data) error { w = r.get(d, userID); return nil })
	return w, err
}

func (r *wallets) GetForUpdate(ctx context.Context, userID string) (models.Wallet, error) {
	return r.GetOrCreate(ctx, userID)
}

func (r *wallets) Adjust(_ context.Context, userID string, balanceDelta, lockedDelta decimal.Decimal) (w models.Wallet, err error) {
	err = r.h.do(func(d *data) error {
		cur, ok := d.wallets[userID]
		if !ok {
			return repo.ErrNotFound
		}
		next, err := cur.Apply(balanceDelta, lockedDelta)
		if err != nil {
			return err
		}
		next.UpdatedAt = r.h.s.now()
		d.wallets[userID] = next
		w = next
		return nil
	})
	return w, err
}

// ---------- transactions ----------

type transactions struct{ h *handle }

func (r *transactions) Insert(_ context.Context, tx models.Transaction) (out models.Transaction, inserted bool, err error) {
	err = r.h.do(func(d *data) error {
		if existing, ok := d.txns[tx.Reference]; ok {
			out = existing
			return nil
		}
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		tx.CreatedAt = r.h.s.now()
		d.txns[tx.Reference] = tx
		out, inserted = tx, true
		return nil
	})
	return out, inserted, err
}

func (r *transactions) GetByReference(_ context.Context, reference string) (tx models.Transaction, err error) {
	err = r.h.do(func(d *data) error {
		var ok bool
		if tx, ok = d.txns[reference]; !ok {
			return repo.ErrNotFound
		}
		return nil
	})
	return tx, err
}

func (r *transactions) Transition(_ context.Context, reference string, from, to models.TransactionStatus) (tx models.Transaction, err error) {
	err = r.h.do(func(d *data) error {
		cur, ok := d.txns[reference]
		if !ok || cur.Status != from {
			return repo.ErrNotFound
		}
		cur.Status = to
		d.txns[reference] = cur
		tx = cur
		return nil
	})
	return tx, err
}

func (r *transactions) ListByUser(_ context.Context, userID string, limit, offset int) (out []models.Transaction, err error) {
	err = r.h.do(func(d *data) error {
		all := []models.Transaction{}
		for _, tx := range d.txns {
			if tx.UserID == userID {
				all = append(all, tx)
			}
		}
		sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
		out = page(all, limit, offset)
		return nil
	})
	return out, err
}

// ---------- payout plans ----------

type plans struct{ h *handle }

func (r *plans) Create(_ context.Context, p models.PayoutPlan) (models.PayoutPlan, error) {
	err := r.h.do(func(d *data) error {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.CreatedAt = r.h.s.now()
		p.UpdatedAt = p.CreatedAt
		d.plans[p.ID] = p
		return nil
	})
	return p, err
}

func (r *plans) Get(_ context.Context, id string) (p models.PayoutPlan, err error) {
	err = r.h.do(func(d *data) error {
		var ok bool
		if p, ok = d.plans[id]; !ok {
			return repo.ErrNotFound
		}
		return nil
	})
	return p, err
}

func (r *plans) GetForUpdate(ctx context.Context, id string) (models.PayoutPlan, error) {
	return r.Get(ctx, id)
}

func (r *plans) Update(_ context.Context, p models.PayoutPlan) (out models.PayoutPlan, err error) {
	err = r.h.do(func(d *data) error {
		cur, ok := d.plans[p.ID]
		if !ok {
			return repo.ErrNotFound
		}
		cur.TotalAmount = p.TotalAmount
		cur.CompletedPayouts = p.CompletedPayouts
		cur.Duration = p.Duration
		cur.Status = p.Status
		cur.UpdatedAt = r.h.s.now()
		d.plans[p.ID] = cur
		out = cur
		return nil
	})
	return out, err
}

func (r *plans) ListByUser(_ context.Context, userID string) (out []models.PayoutPlan, err error) {
	err = r.h.do(func(d *data) error {
		out = []models.PayoutPlan{}
		for _, p := range d.plans {
			if p.UserID == userID {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

// ---------- events ----------

type events struct{ h *handle }

func (r *events) Create(_ context.Context, e models.Event) (models.Event, error) {
	err := r.h.do(func(d *data) error {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Status == "" {
			e.Status = models.EventUnread
		}
		e.CreatedAt = r.h.s.now()
		d.events[e.ID] = e
		return nil
	})
	return e, err
}

func (r *events) ListByUser(_ context.Context, userID string, limit, offset int) (out []models.Event, err error) {
	err = r.h.do(func(d *data) error {
		all := []models.Event{}
		for _, e := range d.events {
			if e.UserID == userID {
				all = append(all, e)
			}
		}
		sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
		out = page(all, limit, offset)
		return nil
	})
	return out, err
}

func (r *events) MarkRead(_ context.Context, userID, id string) error {
	return r.h.do(func(d *data) error {
		e, ok := d.events[id]
		if !ok || e.UserID != userID {
			return repo.ErrNotFound
		}
		e.Status = models.EventRead
		d.events[id] = e
		return nil
	})
}

// ---------- cards ----------

type cards struct{ h *handle }

func (r *cards) Save(_ context.Context, c models.Card) (out models.Card, err error) {
	err = r.h.do(func(d *data) error {
		for id, existing := range d.cards {
			if existing.UserID == c.UserID && existing.Signature == c.Signature {
				c.ID, c.CreatedAt = id, existing.CreatedAt
				d.cards[id] = c
				out = c
				return nil
			}
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CreatedAt = r.h.s.now()
		d.cards[c.ID] = c
		out = c
		return nil
	})
	return out, err
}

func (r *cards) ListByUser(_ context.Context, userID string) (out []models.Card, err error) {
	err = r.h.do(func(d *data) error {
		out = []models.Card{}
		for _, c := range d.cards {
			if c.UserID == userID {
				out = append(out, c)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r *cards) Delete(_ context.Context, userID, id string) error {
	return r.h.do(func(d *data) error {
		c, ok := d.cards[id]
		if !ok || c.UserID != userID {
			return repo.ErrNotFound
		}
		delete(d.cards, id)
		return nil
	})
}

// ---------- virtual accounts ----------

type accounts struct{ h *handle }

func (r *accounts) Upsert(_ context.Context, a models.VirtualAccount) (out models.VirtualAccount, err error) {
	err = r.h.do(func(d *data) error {
		if cur, ok := d.accounts[a.UserID]; ok && a.AccountNumber == "" {
			a.AccountNumber = cur.AccountNumber
		}
		a.UpdatedAt = r.h.s.now()
		d.accounts[a.UserID] = a
		out = a
		return nil
	})
	return out, err
}

func (r *accounts) GetByUser(_ context.Context, userID string) (a models.VirtualAccount, err error) {
	err = r.h.do(func(d *data) error {
		var ok bool
		if a, ok = d.accounts[userID]; !ok {
			return repo.ErrNotFound
		}
		return nil
	})
	return a, err
}

func (r *accounts) GetByAccountNumber(_ context.Context, accountNumber string) (models.VirtualAccount, error) {
	return r.find(func(a models.VirtualAccount) bool { return accountNumber != "" && a.AccountNumber == accountNumber })
}

func (r *accounts) GetByCustomerCode(_ context.Context, customerCode string) (models.VirtualAccount, error) {
	return r.find(func(a models.VirtualAccount) bool { return customerCode != "" && a.CustomerCode == customerCode })
}

func (r *accounts) find(match func(models.VirtualAccount) bool) (out models.VirtualAccount, err error) {
	err = r.h.do(func(d *data) error {
		for _, a := range d.accounts {
			if match(a) {
				out = a
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

// ---------- procedures ----------

type procedures struct{ h *handle }

func (r *procedures) ProcessEmergencyWithdrawal(ctx context.Context, c repo.EmergencyWithdrawalCall) error {
	fn := r.h.s.WithdrawalProcedure
	if fn == nil {
		return r.h.s.ProcedureErr
	}
	if r.h.inTx {
		return fn(ctx, r.h.s.reposFor(r.h), c)
	}
	return r.h.s.WithTx(ctx, func(tx repo.Repos) error { return fn(ctx, tx, c) })
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
