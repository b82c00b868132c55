package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/benmarket/internal/models"
)

// table keeps rows of one kind in insertion order.
type table[T any] struct {
	items map[uuid.UUID]T
	order []uuid.UUID
}

func newTable[T any]() *table[T] {
	return &table[T]{items: make(map[uuid.UUID]T)}
}

// set stores item under id. An existing id keeps its position.
func (t *table[T]) set(id uuid.UUID, item T) {
	if _, exists := t.items[id]; !exists {
		t.order = append(t.order, id)
	}
	t.items[id] = item
}

func (t *table[T]) get(id uuid.UUID) (T, bool) {
	item, ok := t.items[id]
	return item, ok
}

// filter returns matching items, newest first.
func (t *table[T]) filter(predicate func(item T) bool) []T {
	var result []T
	for i := len(t.order) - 1; i >= 0; i-- {
		item := t.items[t.order[i]]
		if predicate == nil || predicate(item) {
			result = append(result, item)
		}
	}
	return result
}

// paginate slices a newest-first result set.
func paginate[T any](items []T, page Page) ([]T, int64) {
	total := int64(len(items))
	if page.Offset < 0 || page.Offset >= len(items) {
		return []T{}, total
	}
	end := len(items)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	return items[page.Offset:end], total
}

// MemoryStore implements Store in process memory. One mutex serialises every
// call, which gives MutateAccount the same exclusivity a row lock gives
// GormStore.
type MemoryStore struct {
	mu        sync.Mutex
	users     *table[models.User]
	phones    map[string]uuid.UUID
	programs  *table[models.LoyaltyProgram]
	accounts  map[uuid.UUID]*models.LoyaltyAccount
	referrals map[string]uuid.UUID
	orders    *table[models.Order]
	reviews   *table[models.Review]
	now       func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     newTable[models.User](),
		phones:    make(map[string]uuid.UUID),
		programs:  newTable[models.LoyaltyProgram](),
		accounts:  make(map[uuid.UUID]*models.LoyaltyAccount),
		referrals: make(map[string]uuid.UUID),
		orders:    newTable[models.Order](),
		reviews:   newTable[models.Review](),
		now:       time.Now,
	}
}

func (s *MemoryStore) stamp(base *models.BaseModel) {
	now := s.now()
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.phones[user.Phone]; exists {
		return fmt.Errorf("%w: phone", ErrConflict)
	}
	s.stamp(&user.BaseModel)
	s.users.set(user.ID, *user)
	s.phones[user.Phone] = user.ID
	return nil
}

func (s *MemoryStore) FindUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (s *MemoryStore) FindUserByPhone(_ context.Context, phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.phones[phone]
	if !ok {
		return nil, ErrNotFound
	}
	user := s.users.items[id]
	return &user, nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, id uuid.UUID, fn func(user *models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	phone := user.Phone
	if err := fn(&user); err != nil {
		return nil, err
	}
	user.Phone = phone
	user.UpdatedAt = s.now()
	s.users.set(id, user)
	return &user, nil
}

func (s *MemoryStore) ActiveProgram(_ context.Context) (*models.LoyaltyProgram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.programs.filter(func(p models.LoyaltyProgram) bool { return p.IsActive })
	if len(active) == 0 {
		return nil, ErrNotFound
	}
	program := active[0]
	program.Tiers = append([]models.Tier(nil), program.Tiers...)
	return &program, nil
}

func (s *MemoryStore) ActivateProgram(_ context.Context, program *models.LoyaltyProgram) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.programs.order {
		p := s.programs.items[id]
		if p.IsActive {
			p.IsActive = false
			s.programs.items[id] = p
		}
	}
	program.IsActive = true
	s.stamp(&program.BaseModel)
	stored := *program
	stored.Tiers = append([]models.Tier(nil), program.Tiers...)
	s.programs.set(stored.ID, stored)
	return nil
}

func (s *MemoryStore) MutateAccount(_ context.Context, userID uuid.UUID, fn AccountMutator) (*models.LoyaltyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.accounts[userID]
	if !exists {
		fresh := newAccount(userID)
		fresh.LastActivity = s.now()
		s.stamp(&fresh.BaseModel)
		current = &fresh
	}

	working := cloneAccount(current)
	changed, err := fn(working)
	if err != nil {
		return nil, err
	}
	if !changed {
		s.accounts[userID] = current
		return cloneAccount(current), nil
	}

	known := make(map[uuid.UUID]struct{}, len(current.Referrals))
	for _, ref := range current.Referrals {
		known[ref.ID] = struct{}{}
	}
	for _, ref := range working.Referrals {
		if _, ok := known[ref.ID]; ok {
			continue
		}
		if _, taken := s.referrals[ref.ReferralCode]; taken {
			return nil, fmt.Errorf("%w: referral code", ErrConflict)
		}
	}
	for i := range working.Referrals {
		working.Referrals[i].AccountID = working.ID
		s.referrals[working.Referrals[i].ReferralCode] = userID
	}
	for i := range working.Transactions {
		working.Transactions[i].AccountID = working.ID
	}
	working.UpdatedAt = s.now()

	s.accounts[userID] = working
	return cloneAccount(working), nil
}

func (s *MemoryStore) FindReferralOwner(_ context.Context, code string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.referrals[code]
	if !ok {
		return uuid.Nil, ErrNotFound
	}
	return userID, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID uuid.UUID, page Page) ([]models.LoyaltyTransaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[userID]
	if !ok {
		return []models.LoyaltyTransaction{}, 0, nil
	}
	entries := make([]models.LoyaltyTransaction, 0, len(acct.Transactions))
	for i := len(acct.Transactions) - 1; i >= 0; i-- {
		entries = append(entries, acct.Transactions[i])
	}
	window, total := paginate(entries, page)
	return window, total, nil
}

func (s *MemoryStore) LoyaltyStats(_ context.Context, topN, recentN int) (*LoyaltyStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := LoyaltyStats{
		TopEarners:         []models.LoyaltyAccount{},
		RecentTransactions: []models.LoyaltyTransaction{},
	}
	var entries []models.LoyaltyTransaction
	for _, acct := range s.accounts {
		stats.TotalAccounts++
		stats.TotalAvailablePoints += acct.AvailablePoints
		stats.TotalLifetimeEarned += acct.LifetimeEarned
		if acct.AvailablePoints > 0 {
			stats.ActiveAccounts++
		}
		summary := *acct
		summary.Transactions = nil
		summary.Referrals = nil
		stats.TopEarners = append(stats.TopEarners, summary)
		entries = append(entries, acct.Transactions...)
	}

	sort.SliceStable(stats.TopEarners, func(i, j int) bool {
		return stats.TopEarners[i].TotalPoints > stats.TopEarners[j].TotalPoints
	})
	if len(stats.TopEarners) > topN {
		stats.TopEarners = stats.TopEarners[:topN]
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if len(entries) > recentN {
		entries = entries[:recentN]
	}
	stats.RecentTransactions = append(stats.RecentTransactions, entries...)
	return &stats, nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orders.items {
		if existing.OrderNumber == order.OrderNumber {
			return fmt.Errorf("%w: order number", ErrConflict)
		}
	}
	s.stamp(&order.BaseModel)
	for i := range order.Items {
		s.stamp(&order.Items[i].BaseModel)
		order.Items[i].OrderID = order.ID
	}
	s.orders.set(order.ID, cloneOrder(*order))
	return nil
}

func (s *MemoryStore) FindOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	found := cloneOrder(order)
	return &found, nil
}

func (s *MemoryStore) ListOrders(_ context.Context, filter OrderFilter, page Page) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := s.orders.filter(func(o models.Order) bool {
		if filter.UserID != uuid.Nil && o.UserID != filter.UserID {
			return false
		}
		return filter.Status == "" || o.Status == filter.Status
	})
	window, total := paginate(matched, page)
	orders := make([]models.Order, len(window))
	for i, o := range window {
		orders[i] = cloneOrder(o)
	}
	return orders, total, nil
}

func (s *MemoryStore) UpdateOrder(_ context.Context, id uuid.UUID, fn OrderMutator) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	working := cloneOrder(stored)
	if err := fn(&working); err != nil {
		return nil, err
	}
	working.UpdatedAt = s.now()
	s.orders.set(id, cloneOrder(working))
	return &working, nil
}

func (s *MemoryStore) CreateReview(_ context.Context, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stamp(&review.BaseModel)
	s.reviews.set(review.ID, *review)
	return nil
}

func (s *MemoryStore) ListReviews(_ context.Context, productID uuid.UUID, page Page) ([]models.Review, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := s.reviews.filter(func(r models.Review) bool { return r.ProductID == productID })
	window, total := paginate(matched, page)
	return append([]models.Review{}, window...), total, nil
}

func cloneAccount(acct *models.LoyaltyAccount) *models.LoyaltyAccount {
	clone := *acct
	clone.Transactions = append([]models.LoyaltyTransaction(nil), acct.Transactions...)
	clone.Referrals = append([]models.Referral(nil), acct.Referrals...)
	return &clone
}

func cloneOrder(order models.Order) models.Order {
	order.Items = append([]models.OrderItem(nil), order.Items...)
	order.Timeline = append([]models.OrderStatusStep(nil), order.Timeline...)
	return order
}
