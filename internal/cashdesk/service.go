// Package cashdesk orchestrates one cash movement end to end: session
// check, per-account locking, reconciliation, history posting and event
// publication.
package cashdesk

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jortegab/cash-denomination-ledger/internal/auth"
	"github.com/jortegab/cash-denomination-ledger/internal/interfaces"
	"github.com/jortegab/cash-denomination-ledger/internal/ledger"
	"github.com/jortegab/cash-denomination-ledger/internal/models"
	"github.com/jortegab/cash-denomination-ledger/internal/models/events"
	"github.com/jortegab/cash-denomination-ledger/internal/reconcile"
	"github.com/jortegab/cash-denomination-ledger/internal/valuation"
)

// TopicMovementRecorded is the event topic for completed movements.
const TopicMovementRecorded = "movement_recorded"

var (
	ErrNotAuthenticated = errors.New("session is not authenticated")
	ErrUnknownAccount   = errors.New("unknown account")
)

// Receipt summarizes a registered movement for the caller.
type Receipt struct {
	EntryID          string              `json:"entry_id"`
	FinalAmount      decimal.Decimal     `json:"final_amount"`
	SignedAmount     decimal.Decimal     `json:"signed_amount"`
	ChangeDue        *decimal.Decimal    `json:"change_due,omitempty"`
	ResultingBalance decimal.Decimal     `json:"resulting_balance"`
	StockDelta       decimal.Decimal     `json:"stock_delta"`
	StockUpdated     bool                `json:"stock_updated"`
	Warnings         []reconcile.Warning `json:"warnings,omitempty"`
}

// AccountBalance is one account's derived total.
type AccountBalance struct {
	Account models.AccountID `json:"account"`
	Total   decimal.Decimal  `json:"total"`
}

// Service wires the engine, the poster and the publisher behind a single
// entry point. Movements on the same account are serialized through a
// per-account mutex; the backing store itself has no row versioning.
type Service struct {
	store     interfaces.Store
	engine    *reconcile.Engine
	poster    *ledger.Poster
	publisher interfaces.EventPublisher // may be nil
	log       *zap.Logger

	// collections maps each account to its inventory collection name.
	collections map[models.AccountID]string

	muMap map[models.AccountID]*sync.Mutex
	mapMu sync.Mutex
}

func NewService(store interfaces.Store, engine *reconcile.Engine, poster *ledger.Poster,
	publisher interfaces.EventPublisher, collections map[models.AccountID]string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:       store,
		engine:      engine,
		poster:      poster,
		publisher:   publisher,
		log:         log,
		collections: collections,
		muMap:       make(map[models.AccountID]*sync.Mutex),
	}
}

func (s *Service) accountLock(account models.AccountID) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	if _, exists := s.muMap[account]; !exists {
		s.muMap[account] = &sync.Mutex{}
	}
	return s.muMap[account]
}

// Register reconciles and posts one movement. The session must be
// authenticated; nothing in the core consults ambient login state.
//
// When the history post fails after the stock was already mutated, Register
// returns the receipt together with the error: Receipt.StockUpdated tells
// the caller whether manual reconciliation is needed.
func (s *Service) Register(ctx context.Context, sess auth.Session, tx models.Transaction) (*Receipt, error) {
	if !sess.Authenticated {
		return nil, ErrNotAuthenticated
	}
	collection, ok := s.collections[tx.Account]
	if !ok {
		return nil, ErrUnknownAccount
	}
	if !tx.Kind.Valid() {
		return nil, errors.New("unknown movement kind " + string(tx.Kind))
	}

	lock := s.accountLock(tx.Account)
	lock.Lock()
	defer lock.Unlock()

	res, err := s.engine.Reconcile(ctx, collection, tx)
	if err != nil {
		return nil, err
	}

	entry := models.LedgerEntry{
		ID:               uuid.New().String(),
		Account:          tx.Account,
		Date:             time.Now(),
		SignedAmount:     res.SignedAmount,
		ChangeDue:        res.ChangeDue,
		ResultingBalance: res.ResultingBalance,
		Note:             tx.Note,
	}
	if tx.Kind == models.Expense && tx.Tendered.IsPositive() {
		tendered := tx.Tendered
		entry.Tendered = &tendered
	}

	receipt := &Receipt{
		EntryID:          entry.ID,
		FinalAmount:      res.FinalAmount,
		SignedAmount:     res.SignedAmount,
		ChangeDue:        res.ChangeDue,
		ResultingBalance: res.ResultingBalance,
		StockDelta:       res.StockDelta,
		StockUpdated:     res.StockUpdated,
		Warnings:         res.Warnings,
	}

	if err := s.poster.Post(ctx, entry); err != nil {
		// Stock may already be mutated; the receipt says so.
		return receipt, err
	}

	s.publish(entry)
	return receipt, nil
}

func (s *Service) publish(entry models.LedgerEntry) {
	if s.publisher == nil {
		return
	}
	event := events.MovementRecorded{
		EntryID:          entry.ID,
		Account:          string(entry.Account),
		SignedAmount:     entry.SignedAmount,
		ResultingBalance: entry.ResultingBalance,
		Note:             entry.Note,
		OccurredAt:       entry.Date,
	}
	if err := s.publisher.Publish(TopicMovementRecorded, event); err != nil {
		// Publishing is best effort and never fails the movement.
		s.log.Warn("failed to publish movement event",
			zap.String("entry_id", entry.ID), zap.Error(err))
	}
}

// Balances returns every account's derived total, in stable account order.
func (s *Service) Balances(ctx context.Context) ([]AccountBalance, error) {
	out := make([]AccountBalance, 0, len(s.collections))
	for _, account := range []models.AccountID{models.AccountWallet, models.AccountSavings} {
		collection, ok := s.collections[account]
		if !ok {
			continue
		}
		table, err := s.store.ReadAll(ctx, collection)
		if err != nil {
			return nil, err
		}
		total := valuation.AccountTotal(valuation.InventoryFromTable(table))
		out = append(out, AccountBalance{Account: account, Total: total})
	}
	return out, nil
}

// Inventory returns the denomination records of one account, ordered by
// descending face value for display. Row identity stays the stable store
// position regardless of this ordering.
func (s *Service) Inventory(ctx context.Context, account models.AccountID) ([]models.DenominationRecord, error) {
	collection, ok := s.collections[account]
	if !ok {
		return nil, ErrUnknownAccount
	}
	table, err := s.store.ReadAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	records := valuation.InventoryFromTable(table)

	shown := make([]models.DenominationRecord, 0, len(records))
	for _, rec := range records {
		if rec.Skip {
			continue
		}
		shown = append(shown, rec)
	}
	sort.SliceStable(shown, func(i, j int) bool {
		return shown[i].FaceValue.GreaterThan(shown[j].FaceValue)
	})
	return shown, nil
}

// History returns the raw history table, rows in append order.
func (s *Service) History(ctx context.Context) (interfaces.Table, error) {
	names, err := s.store.ListCollections(ctx)
	if err != nil {
		return interfaces.Table{}, err
	}
	target, ok := ledger.ResolveTarget(names, s.poster.HistoryCollection())
	if !ok {
		return interfaces.Table{}, &ledger.HistoryTargetMissingError{
			Want:      s.poster.HistoryCollection(),
			Available: names,
		}
	}
	return s.store.ReadAll(ctx, target)
}
