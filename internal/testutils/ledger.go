package testutils

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KotFed0t/portfolio_tracker/data/repository"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/shopspring/decimal"
)

type txKey struct{}

type symbolRow struct {
	ID     int64
	Symbol string
	Name   string
}

type ledgerState struct {
	users        []model.User
	symbols      []symbolRow
	transactions []model.Transaction
}

func (s ledgerState) clone() ledgerState {
	return ledgerState{
		users:        append([]model.User(nil), s.users...),
		symbols:      append([]symbolRow(nil), s.symbols...),
		transactions: append([]model.Transaction(nil), s.transactions...),
	}
}

// LedgerStore is an in-memory Ledger Store. Transactions are serialized and rolled back on error.
// FailOn makes the named method return the given error once.
type LedgerStore struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	state  ledgerState
	clock  time.Time
	FailOn map[string]error
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		clock:  time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		FailOn: make(map[string]error),
	}
}

func (l *LedgerStore) fail(method string) error {
	if err, ok := l.FailOn[method]; ok {
		delete(l.FailOn, method)
		return err
	}
	return nil
}

func (l *LedgerStore) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return tFunc(ctx)
	}

	l.txMu.Lock()
	defer l.txMu.Unlock()

	l.mu.Lock()
	snapshot := l.state.clone()
	l.mu.Unlock()

	err := tFunc(context.WithValue(ctx, txKey{}, true))
	if err != nil {
		l.mu.Lock()
		l.state = snapshot
		l.mu.Unlock()
	}
	return err
}

func (l *LedgerStore) InsertUser(ctx context.Context, username, hash string, cash decimal.Decimal) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.fail("InsertUser"); err != nil {
		return 0, err
	}
	for _, u := range l.state.users {
		if u.Username == username {
			return 0, repository.ErrAlreadyExists
		}
	}
	id := int64(len(l.state.users) + 1)
	l.state.users = append(l.state.users, model.User{ID: id, Username: username, Hash: hash, Cash: cash})
	return id, nil
}

func (l *LedgerStore) FindUserByUsername(ctx context.Context, username string) (model.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, u := range l.state.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (l *LedgerStore) FindUserByID(ctx context.Context, userID int64) (model.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.fail("FindUserByID"); err != nil {
		return model.User{}, err
	}
	return l.userLocked(userID)
}

func (l *LedgerStore) userLocked(userID int64) (model.User, error) {
	if userID < 1 || int(userID) > len(l.state.users) {
		return model.User{}, repository.ErrNotFound
	}
	return l.state.users[userID-1], nil
}

func (l *LedgerStore) LockUser(ctx context.Context, userID int64) (model.User, error) {
	return l.FindUserByID(ctx, userID)
}

func (l *LedgerStore) LockUserShared(ctx context.Context, userID int64) (model.User, error) {
	return l.FindUserByID(ctx, userID)
}

func (l *LedgerStore) UpdateCash(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.fail("UpdateCash"); err != nil {
		return decimal.Zero, err
	}
	u, err := l.userLocked(userID)
	if err != nil {
		return decimal.Zero, repository.ErrNotUpdated
	}
	cash := u.Cash.Add(delta)
	if cash.IsNegative() {
		return decimal.Zero, repository.ErrNotUpdated
	}
	l.state.users[userID-1].Cash = cash
	return cash, nil
}

func (l *LedgerStore) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.userLocked(userID); err != nil {
		return err
	}
	l.state.users[userID-1].Hash = hash
	return nil
}

func (l *LedgerStore) FindOrCreateSymbol(ctx context.Context, ticker, name string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.fail("FindOrCreateSymbol"); err != nil {
		return 0, err
	}
	for _, s := range l.state.symbols {
		if s.Symbol == ticker {
			return s.ID, nil
		}
	}
	id := int64(len(l.state.symbols) + 1)
	l.state.symbols = append(l.state.symbols, symbolRow{ID: id, Symbol: ticker, Name: name})
	return id, nil
}

func (l *LedgerStore) AppendTransaction(ctx context.Context, userID, symbolID int64, price decimal.Decimal, shares int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.fail("AppendTransaction"); err != nil {
		return 0, err
	}
	symbol := l.state.symbols[symbolID-1]
	l.clock = l.clock.Add(time.Second)
	id := int64(len(l.state.transactions) + 1)
	l.state.transactions = append(l.state.transactions, model.Transaction{
		ID:       id,
		UserID:   userID,
		SymbolID: symbolID,
		Symbol:   symbol.Symbol,
		Name:     symbol.Name,
		Shares:   shares,
		Price:    price,
		Time:     l.clock,
	})
	return id, nil
}

func (l *LedgerStore) TransactionsForUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.fail("TransactionsForUser"); err != nil {
		return nil, err
	}
	res := make([]model.Transaction, 0)
	for _, t := range l.state.transactions {
		if t.UserID == userID {
			res = append(res, t)
		}
	}
	return res, nil
}

func (l *LedgerStore) holdingsLocked(userID int64) map[int64]*model.Holding {
	holdings := make(map[int64]*model.Holding)
	for _, t := range l.state.transactions {
		if t.UserID != userID {
			continue
		}
		h, ok := holdings[t.SymbolID]
		if !ok {
			h = &model.Holding{SymbolID: t.SymbolID, Symbol: t.Symbol, Name: t.Name}
			holdings[t.SymbolID] = h
		}
		h.Shares += t.Shares
	}
	return holdings
}

func (l *LedgerStore) OpenPositionsForUser(ctx context.Context, userID int64) ([]model.Holding, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.fail("OpenPositionsForUser"); err != nil {
		return nil, err
	}
	res := make([]model.Holding, 0)
	for _, h := range l.holdingsLocked(userID) {
		if h.Shares > 0 {
			res = append(res, *h)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Symbol < res[j].Symbol })
	return res, nil
}

func (l *LedgerStore) HoldingForUser(ctx context.Context, userID int64, ticker string) (model.Holding, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, h := range l.holdingsLocked(userID) {
		if h.Symbol == ticker {
			return *h, nil
		}
	}
	return model.Holding{}, repository.ErrNotFound
}

// Cash returns the stored cash of userID, for assertions.
func (l *LedgerStore) Cash(userID int64) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, _ := l.userLocked(userID)
	return u.Cash
}

// TransactionCount returns the number of rows in the log, for assertions.
func (l *LedgerStore) TransactionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.state.transactions)
}

// SymbolCount returns the number of rows in the symbol dictionary, for assertions.
func (l *LedgerStore) SymbolCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.state.symbols)
}
