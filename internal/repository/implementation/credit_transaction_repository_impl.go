package implementation

import (
	"context"
	"errors"
	"fmt"

	"ai-dispatch-be/internal/entity"
	"ai-dispatch-be/internal/mapper"
	"ai-dispatch-be/internal/model"
	"ai-dispatch-be/internal/repository/contract"
	"ai-dispatch-be/internal/repository/scope"
	"ai-dispatch-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type CreditTransactionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CreditTransactionMapper
}

func NewCreditTransactionRepository(db *gorm.DB) contract.CreditTransactionRepository {
	return &CreditTransactionRepositoryImpl{
		db:     db,
		mapper: mapper.NewCreditTransactionMapper(),
	}
}

func (r *CreditTransactionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// LockUserLedger takes a transaction-scoped advisory lock keyed on the user
// id. A plain FOR UPDATE on the tail row is not enough: a user with an empty
// ledger has no row to lock, and two concurrent first writes would both pass
// the balance check.
func (r *CreditTransactionRepositoryImpl) LockUserLedger(ctx context.Context, userId uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?::text))", userId.String()).Error
	return classifyPgError(err)
}

func (r *CreditTransactionRepositoryImpl) Create(ctx context.Context, tx *entity.CreditTransaction) error {
	m := r.mapper.ToModel(tx)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return classifyPgError(err)
	}
	*tx = *r.mapper.ToEntity(m)
	return nil
}

func (r *CreditTransactionRepositoryImpl) FindLatest(ctx context.Context, userId uuid.UUID) (*entity.CreditTransaction, error) {
	var m model.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Scopes(scope.TailFirst).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classifyPgError(err)
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CreditTransactionRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.CreditTransaction, error) {
	var m model.CreditTransaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classifyPgError(err)
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CreditTransactionRepositoryImpl) FindRefundOf(ctx context.Context, originalId uuid.UUID) (*entity.CreditTransaction, error) {
	var m model.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("type = ?", string(entity.TransactionTypeRefund)).
		Where("metadata->>? = ?", entity.MetadataKeyRefundOf, originalId.String()).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classifyPgError(err)
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CreditTransactionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditTransaction, error) {
	var models []*model.CreditTransaction
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, classifyPgError(err)
	}
	entities := make([]*entity.CreditTransaction, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *CreditTransactionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.CreditTransaction{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, classifyPgError(err)
	}
	return count, nil
}

// classifyPgError folds transient isolation failures into
// entity.ErrLedgerWriteConflict so the service layer can retry the whole
// transaction. 40001 serialization_failure, 40P01 deadlock_detected,
// 55P03 lock_not_available.
func classifyPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %s", entity.ErrLedgerWriteConflict, pgErr.Code)
		}
	}
	return err
}
