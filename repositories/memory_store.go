package repositories

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/shopspring/decimal"
)

// MemoryStore - хранилище в памяти с той же семантикой единицы работы, что и Postgres:
// записи копятся в транзакции и применяются при фиксации, блокировки держатся до её конца.
type MemoryStore struct {
	mu          sync.RWMutex
	matches     map[int64]*models.Match
	slots       map[int64][]*models.Slot
	accounts    map[int64]*models.Account
	entries     []*models.LedgerEntry
	nextMatchID int64

	locks *keyedLocker
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches:  make(map[int64]*models.Match),
		slots:    make(map[int64][]*models.Slot),
		accounts: make(map[int64]*models.Account),
		locks:    newKeyedLocker(),
		now:      time.Now,
	}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	tx := &memoryTx{
		store:    s,
		held:     make(map[string]bool),
		matches:  make(map[int64]*models.Match),
		slots:    make(map[int64][]*models.Slot),
		accounts: make(map[int64]*models.Account),
	}
	defer func() {
		if p := recover(); p != nil {
			tx.release()
			panic(p)
		}
		if err == nil {
			tx.commit()
		}
		tx.release()
	}()
	return fn(ctx, tx)
}

func (s *MemoryStore) GetMatch(_ context.Context, matchID int64) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (s *MemoryStore) ListMatches(_ context.Context, filter models.MatchFilter) ([]*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Match, 0)
	for id, m := range s.matches {
		if len(filter.States) > 0 && !containsState(filter.States, m.State) {
			continue
		}
		if filter.UserID != nil && !occupies(s.slots[id], *filter.UserID) {
			continue
		}
		result = append(result, m.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *MemoryStore) ListSlots(_ context.Context, matchID int64) ([]*models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlots(s.slots[matchID]), nil
}

func (s *MemoryStore) CountMatchesByState(_ context.Context) (map[models.MatchState]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.MatchState]int)
	for _, m := range s.matches {
		counts[m.State]++
	}
	return counts, nil
}

func (s *MemoryStore) HeldInEscrow(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for id, m := range s.matches {
		if m.State.Terminal() {
			continue
		}
		for _, slot := range s.slots[id] {
			if slot.Paid {
				total = total.Add(m.Stake)
			}
		}
	}
	return total, nil
}

func (s *MemoryStore) GetAccount(_ context.Context, userID int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	c := *acc
	return &c, nil
}

func (s *MemoryStore) ListEntriesByUser(_ context.Context, userID int64, limit int) ([]*models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*models.LedgerEntry, 0)
	for i := len(s.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if s.entries[i].UserID == userID {
			e := *s.entries[i]
			result = append(result, &e)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListEntriesByMatch(_ context.Context, matchID int64) ([]*models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*models.LedgerEntry, 0)
	for _, entry := range s.entries {
		if entry.MatchID != nil && *entry.MatchID == matchID {
			e := *entry
			result = append(result, &e)
		}
	}
	return result, nil
}

type memoryTx struct {
	store    *MemoryStore
	held     map[string]bool
	order    []string
	matches  map[int64]*models.Match
	slots    map[int64][]*models.Slot
	accounts map[int64]*models.Account
	entries  []*models.LedgerEntry
	done     bool
}

func (t *memoryTx) lock(ctx context.Context, key string) error {
	if t.done {
		return ErrTxAlreadyFinished
	}
	if t.held[key] {
		return nil
	}
	if err := t.store.locks.Lock(ctx, key); err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	t.held[key] = true
	t.order = append(t.order, key)
	return nil
}

func (t *memoryTx) release() {
	t.done = true
	for i := len(t.order) - 1; i >= 0; i-- {
		t.store.locks.Unlock(t.order[i])
	}
	t.order = nil
}

func (t *memoryTx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range t.matches {
		s.matches[id] = m
	}
	for id, slots := range t.slots {
		s.slots[id] = slots
	}
	for id, acc := range t.accounts {
		s.accounts[id] = acc
	}
	s.entries = append(s.entries, t.entries...)
}

func (t *memoryTx) match(matchID int64) (*models.Match, bool) {
	if m, ok := t.matches[matchID]; ok {
		return m, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	m, ok := t.store.matches[matchID]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

func (t *memoryTx) LockMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	if err := t.lock(ctx, "match:"+strconv.FormatInt(matchID, 10)); err != nil {
		return nil, err
	}
	m, ok := t.match(matchID)
	if !ok {
		return nil, ErrMatchNotFound
	}
	return m.Clone(), nil
}

func (t *memoryTx) CreateMatch(_ context.Context, match *models.Match) error {
	s := t.store
	s.mu.Lock()
	s.nextMatchID++
	match.ID = s.nextMatchID
	s.mu.Unlock()

	now := s.now()
	match.CreatedAt = now
	match.UpdatedAt = now
	t.matches[match.ID] = match.Clone()
	return nil
}

func (t *memoryTx) UpdateMatch(_ context.Context, match *models.Match) error {
	if _, ok := t.match(match.ID); !ok {
		return ErrMatchNotFound
	}
	match.UpdatedAt = t.store.now()
	t.matches[match.ID] = match.Clone()
	return nil
}

func (t *memoryTx) slotList(matchID int64) []*models.Slot {
	if slots, ok := t.slots[matchID]; ok {
		return slots
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return cloneSlots(t.store.slots[matchID])
}

func (t *memoryTx) CreateSlots(_ context.Context, slots []*models.Slot) error {
	for _, s := range slots {
		existing := t.slotList(s.MatchID)
		for _, e := range existing {
			if e.Side == s.Side && e.Index == s.Index {
				return ErrSlotConflict
			}
		}
		t.slots[s.MatchID] = append(existing, s.Clone())
	}
	return nil
}

func (t *memoryTx) ListSlots(_ context.Context, matchID int64) ([]*models.Slot, error) {
	return cloneSlots(t.slotList(matchID)), nil
}

func (t *memoryTx) UpdateSlot(_ context.Context, slot *models.Slot) error {
	slots := t.slotList(slot.MatchID)
	for i, s := range slots {
		if s.Side == slot.Side && s.Index == slot.Index {
			slots[i] = slot.Clone()
			t.slots[slot.MatchID] = slots
			return nil
		}
	}
	return ErrSlotNotFound
}

func (t *memoryTx) ActiveMatchIDForUser(_ context.Context, userID int64) (int64, bool, error) {
	ids := make(map[int64]struct{})
	t.store.mu.RLock()
	for id := range t.store.matches {
		ids[id] = struct{}{}
	}
	t.store.mu.RUnlock()
	for id := range t.matches {
		ids[id] = struct{}{}
	}

	for id := range ids {
		m, ok := t.match(id)
		if !ok || m.State.Terminal() {
			continue
		}
		if occupies(t.slotList(id), userID) {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (t *memoryTx) account(userID int64) (*models.Account, bool) {
	if acc, ok := t.accounts[userID]; ok {
		return acc, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	acc, ok := t.store.accounts[userID]
	if !ok {
		return nil, false
	}
	c := *acc
	return &c, true
}

func (t *memoryTx) LockAccount(ctx context.Context, userID int64) (*models.Account, error) {
	if err := t.lock(ctx, "account:"+strconv.FormatInt(userID, 10)); err != nil {
		return nil, err
	}
	acc, ok := t.account(userID)
	if !ok {
		return nil, ErrAccountNotFound
	}
	c := *acc
	return &c, nil
}

func (t *memoryTx) CreateAccount(ctx context.Context, userID int64) (*models.Account, error) {
	if err := t.lock(ctx, "account:"+strconv.FormatInt(userID, 10)); err != nil {
		return nil, err
	}
	if _, ok := t.account(userID); ok {
		return nil, ErrAccountExists
	}
	now := t.store.now()
	acc := &models.Account{UserID: userID, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	t.accounts[userID] = acc
	c := *acc
	return &c, nil
}

func (t *memoryTx) SetBalance(_ context.Context, userID int64, balance decimal.Decimal) error {
	acc, ok := t.account(userID)
	if !ok {
		return ErrAccountNotFound
	}
	if balance.IsNegative() {
		return ErrNegativeBalance
	}
	acc.Balance = balance
	acc.UpdatedAt = t.store.now()
	t.accounts[userID] = acc
	return nil
}

func (t *memoryTx) AppendEntry(_ context.Context, entry *models.LedgerEntry) error {
	entry.CreatedAt = t.store.now()
	e := *entry
	t.entries = append(t.entries, &e)
	return nil
}

func cloneSlots(slots []*models.Slot) []*models.Slot {
	result := make([]*models.Slot, len(slots))
	for i, s := range slots {
		result[i] = s.Clone()
	}
	return result
}

func containsState(states []models.MatchState, st models.MatchState) bool {
	for _, s := range states {
		if s == st {
			return true
		}
	}
	return false
}

func occupies(slots []*models.Slot, userID int64) bool {
	for _, s := range slots {
		if s.OccupantID != nil && *s.OccupantID == userID {
			return true
		}
	}
	return false
}
