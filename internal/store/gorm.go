package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/benmarket/internal/models"
)

const uniqueViolation = "23505"

// GormStore implements Store on PostgreSQL through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore constructs GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, id uuid.UUID, fn func(user *models.User) error) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := fn(&user); err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"first_name":   user.FirstName,
				"last_name":    user.LastName,
				"display_name": user.DisplayName,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) ActiveProgram(ctx context.Context) (*models.LoyaltyProgram, error) {
	var program models.LoyaltyProgram
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at desc").
		First(&program).Error; err != nil {
		return nil, translate(err)
	}
	return &program, nil
}

func (s *GormStore) ActivateProgram(ctx context.Context, program *models.LoyaltyProgram) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.LoyaltyProgram{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		program.IsActive = true
		return translate(tx.Create(program).Error)
	})
}

func (s *GormStore) MutateAccount(ctx context.Context, userID uuid.UUID, fn AccountMutator) (*models.LoyaltyAccount, error) {
	var result *models.LoyaltyAccount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acct, err := lockAccount(tx, userID)
		if err != nil {
			return err
		}

		loaded := len(acct.Transactions)
		before := make(map[uuid.UUID]models.Referral, len(acct.Referrals))
		for _, ref := range acct.Referrals {
			before[ref.ID] = ref
		}

		changed, err := fn(acct)
		if err != nil {
			return err
		}
		if changed {
			if err := saveAccount(tx, acct, loaded, before); err != nil {
				return err
			}
		}
		result = acct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockAccount selects the account row FOR UPDATE, inserting it first when the
// user has none yet. A concurrent first insert is absorbed by ON CONFLICT.
func lockAccount(tx *gorm.DB, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	var acct models.LoyaltyAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh := newAccount(userID)
		fresh.LastActivity = time.Now()
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
			return nil, fmt.Errorf("create loyalty account: %w", err)
		}
		acct = models.LoyaltyAccount{}
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&acct).Error
	}
	if err != nil {
		return nil, fmt.Errorf("lock loyalty account: %w", err)
	}

	if err := tx.Where("account_id = ?", acct.ID).
		Order("created_at asc").
		Find(&acct.Transactions).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("account_id = ?", acct.ID).
		Order("created_at asc").
		Find(&acct.Referrals).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

func saveAccount(tx *gorm.DB, acct *models.LoyaltyAccount, loaded int, before map[uuid.UUID]models.Referral) error {
	if err := tx.Model(&models.LoyaltyAccount{}).
		Where("id = ?", acct.ID).
		Updates(map[string]any{
			"total_points":      acct.TotalPoints,
			"available_points":  acct.AvailablePoints,
			"lifetime_earned":   acct.LifetimeEarned,
			"lifetime_redeemed": acct.LifetimeRedeemed,
			"current_tier":      acct.CurrentTier,
			"last_activity":     acct.LastActivity,
		}).Error; err != nil {
		return err
	}

	appended, err := appendedTransactions(acct, loaded)
	if err != nil {
		return err
	}
	if len(appended) > 0 {
		if err := tx.Create(&appended).Error; err != nil {
			return fmt.Errorf("append ledger entries: %w", err)
		}
	}

	for i := range acct.Referrals {
		ref := &acct.Referrals[i]
		prev, ok := before[ref.ID]
		if !ok {
			ref.AccountID = acct.ID
			if err := tx.Create(ref).Error; err != nil {
				return translate(err)
			}
			continue
		}
		if referralUnchanged(prev, *ref) {
			continue
		}
		if err := tx.Model(&models.Referral{}).
			Where("id = ?", ref.ID).
			Updates(map[string]any{
				"status":           ref.Status,
				"referred_user_id": ref.ReferredUserID,
				"points_awarded":   ref.PointsAwarded,
				"completed_at":     ref.CompletedAt,
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// appendedTransactions returns the entries added after the first loaded ones,
// bound to the account. The ledger only grows, so a shorter log is an error.
func appendedTransactions(acct *models.LoyaltyAccount, loaded int) ([]models.LoyaltyTransaction, error) {
	if len(acct.Transactions) < loaded {
		return nil, fmt.Errorf("ledger shrank from %d to %d entries", loaded, len(acct.Transactions))
	}
	appended := acct.Transactions[loaded:]
	for i := range appended {
		appended[i].AccountID = acct.ID
	}
	return appended, nil
}

func referralUnchanged(a, b models.Referral) bool {
	return a.Status == b.Status && a.PointsAwarded == b.PointsAwarded &&
		(a.CompletedAt == nil) == (b.CompletedAt == nil) &&
		(a.ReferredUserID == nil) == (b.ReferredUserID == nil)
}

func (s *GormStore) FindReferralOwner(ctx context.Context, code string) (uuid.UUID, error) {
	var owner struct {
		UserID uuid.UUID
	}
	err := s.db.WithContext(ctx).
		Model(&models.Referral{}).
		Select("loyalty_accounts.user_id").
		Joins("JOIN loyalty_accounts ON loyalty_accounts.id = referrals.account_id").
		Where("referrals.referral_code = ?", code).
		Take(&owner).Error
	if err != nil {
		return uuid.Nil, translate(err)
	}
	return owner.UserID, nil
}

func (s *GormStore) ListTransactions(ctx context.Context, userID uuid.UUID, page Page) ([]models.LoyaltyTransaction, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Joins("JOIN loyalty_accounts ON loyalty_accounts.id = loyalty_transactions.account_id").
		Where("loyalty_accounts.user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.LoyaltyTransaction
	if err := query.Select("loyalty_transactions.*").
		Order("loyalty_transactions.created_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *GormStore) LoyaltyStats(ctx context.Context, topN, recentN int) (*LoyaltyStats, error) {
	db := s.db.WithContext(ctx)
	var stats LoyaltyStats

	if err := db.Model(&models.LoyaltyAccount{}).Count(&stats.TotalAccounts).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.LoyaltyAccount{}).
		Where("available_points > 0").
		Count(&stats.ActiveAccounts).Error; err != nil {
		return nil, err
	}

	var sums struct {
		Available int64
		Earned    int64
	}
	if err := db.Model(&models.LoyaltyAccount{}).
		Select("COALESCE(SUM(available_points), 0) AS available, COALESCE(SUM(lifetime_earned), 0) AS earned").
		Scan(&sums).Error; err != nil {
		return nil, err
	}
	stats.TotalAvailablePoints = sums.Available
	stats.TotalLifetimeEarned = sums.Earned

	if err := db.Order("total_points desc").
		Limit(topN).
		Find(&stats.TopEarners).Error; err != nil {
		return nil, err
	}
	if err := db.Order("created_at desc").
		Limit(recentN).
		Find(&stats.RecentTransactions).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return translate(s.db.WithContext(ctx).Create(order).Error)
}

func (s *GormStore) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (s *GormStore) ListOrders(ctx context.Context, filter OrderFilter, page Page) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != uuid.Nil {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("placed_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *GormStore) UpdateOrder(ctx context.Context, id uuid.UUID, fn OrderMutator) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := fn(&order); err != nil {
			return err
		}
		return tx.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Select("Status", "Timeline").
			Updates(models.Order{Status: order.Status, Timeline: order.Timeline}).Error
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("order_id = ?", order.ID).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *GormStore) CreateReview(ctx context.Context, review *models.Review) error {
	return translate(s.db.WithContext(ctx).Create(review).Error)
}

func (s *GormStore) ListReviews(ctx context.Context, productID uuid.UUID, page Page) ([]models.Review, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Review{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []models.Review
	if err := query.Order("created_at desc").
		Limit(page.Limit).Offset(page.Offset).
		Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}
