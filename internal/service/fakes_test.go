package service

import (
	"context"
	"sync"
	"time"

	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/repository/contract"
	"ai-dispatch-be/internal/repository/specification"
	"ai-dispatch-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// In-memory ledger store shared across fake units of work. LockUserLedger
// takes a per-user mutex held until Commit/Rollback, mirroring the advisory
// lock semantics of the real store closely enough for concurrency tests.
type memLedgerStore struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
	rows  []*entity.CreditTransaction
}

func newMemLedgerStore() *memLedgerStore {
	return &memLedgerStore{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (s *memLedgerStore) userLock(userId uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userId]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userId] = l
	}
	return l
}

func (s *memLedgerStore) snapshot() []*entity.CreditTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.CreditTransaction, len(s.rows))
	copy(out, s.rows)
	return out
}

type memCredentialStore struct {
	mu    sync.Mutex
	creds map[string]*entity.ApiCredential
}

func newMemCredentialStore() *memCredentialStore {
	return &memCredentialStore{creds: make(map[string]*entity.ApiCredential)}
}

func credKey(userId uuid.UUID, vendor string) string {
	return userId.String() + "|" + vendor
}

func (s *memCredentialStore) lookup(userId uuid.UUID, vendor string) (*entity.ApiCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds[credKey(userId, vendor)], nil
}

type fakeFactory struct {
	ledger *memLedgerStore
	creds  *memCredentialStore
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{ledger: newMemLedgerStore(), creds: newMemCredentialStore()}
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{factory: f}
}

type fakeUow struct {
	factory *fakeFactory
	staged  []*entity.CreditTransaction
	held    []*sync.Mutex
	done    bool
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }

func (u *fakeUow) Commit() error {
	store := u.factory.ledger
	store.mu.Lock()
	store.rows = append(store.rows, u.staged...)
	store.mu.Unlock()
	u.staged = nil
	u.release()
	u.done = true
	return nil
}

func (u *fakeUow) Rollback() error {
	if u.done {
		return nil
	}
	u.staged = nil
	u.release()
	u.done = true
	return nil
}

func (u *fakeUow) release() {
	for _, l := range u.held {
		l.Unlock()
	}
	u.held = nil
}

func (u *fakeUow) CreditTransactionRepository() contract.CreditTransactionRepository {
	return &fakeLedgerRepo{uow: u}
}

func (u *fakeUow) CredentialRepository() contract.CredentialRepository {
	return &fakeCredentialRepo{store: u.factory.creds}
}

type fakeLedgerRepo struct {
	uow *fakeUow
}

func (r *fakeLedgerRepo) LockUserLedger(ctx context.Context, userId uuid.UUID) error {
	l := r.uow.factory.ledger.userLock(userId)
	l.Lock()
	r.uow.held = append(r.uow.held, l)
	return nil
}

func (r *fakeLedgerRepo) Create(ctx context.Context, tx *entity.CreditTransaction) error {
	if tx.Id == uuid.Nil {
		tx.Id = uuid.New()
	}
	tx.CreatedAt = time.Now()
	r.uow.staged = append(r.uow.staged, tx)
	return nil
}

func (r *fakeLedgerRepo) visible() []*entity.CreditTransaction {
	rows := r.uow.factory.ledger.snapshot()
	return append(rows, r.uow.staged...)
}

func (r *fakeLedgerRepo) FindLatest(ctx context.Context, userId uuid.UUID) (*entity.CreditTransaction, error) {
	rows := r.visible()
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].UserId == userId {
			return rows[i], nil
		}
	}
	return nil, nil
}

func (r *fakeLedgerRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.CreditTransaction, error) {
	for _, row := range r.visible() {
		if row.Id == id {
			return row, nil
		}
	}
	return nil, nil
}

func (r *fakeLedgerRepo) FindRefundOf(ctx context.Context, originalId uuid.UUID) (*entity.CreditTransaction, error) {
	for _, row := range r.visible() {
		if row.Type != entity.TransactionTypeRefund {
			continue
		}
		if ref, ok := row.RefundOf(); ok && ref == originalId {
			return row, nil
		}
	}
	return nil, nil
}

func (r *fakeLedgerRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditTransaction, error) {
	rows := r.filter(specs)

	limit, offset := len(rows), 0
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.OrderBy:
			if s.Desc {
				for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
					rows[i], rows[j] = rows[j], rows[i]
				}
			}
		case specification.Pagination:
			limit, offset = s.Limit, s.Offset
		}
	}

	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (r *fakeLedgerRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.filter(specs))), nil
}

func (r *fakeLedgerRepo) filter(specs []specification.Specification) []*entity.CreditTransaction {
	var out []*entity.CreditTransaction
	for _, row := range r.visible() {
		if matches(row, specs) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row *entity.CreditTransaction, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByUserId:
			if row.UserId != s.UserId {
				return false
			}
		case specification.ByTransactionType:
			if string(row.Type) != s.Type {
				return false
			}
		case specification.ByPaymentReference:
			if row.PaymentReference == nil || *row.PaymentReference != s.Reference {
				return false
			}
		}
	}
	return true
}

type fakeCredentialRepo struct {
	store *memCredentialStore
}

func (r *fakeCredentialRepo) Upsert(ctx context.Context, cred *entity.ApiCredential) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if cred.Id == uuid.Nil {
		cred.Id = uuid.New()
	}
	cred.UpdatedAt = time.Now()
	r.store.creds[credKey(cred.UserId, cred.VendorFamily)] = cred
	return nil
}

func (r *fakeCredentialRepo) Delete(ctx context.Context, userId uuid.UUID, vendorFamily string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.creds, credKey(userId, vendorFamily))
	return nil
}

func (r *fakeCredentialRepo) FindOne(ctx context.Context, userId uuid.UUID, vendorFamily string) (*entity.ApiCredential, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.creds[credKey(userId, vendorFamily)], nil
}

func (r *fakeCredentialRepo) FindAllByUser(ctx context.Context, userId uuid.UUID) ([]*entity.ApiCredential, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.ApiCredential
	for _, cred := range r.store.creds {
		if cred.UserId == userId {
			out = append(out, cred)
		}
	}
	return out, nil
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }
