// Package cart implements the per-session shopping cart. In-memory state
// is the source of truth for an active session; session storage is a
// write-through durability mirror hydrated on first access.
package cart

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"storefront-service/internal/models"
	"storefront-service/internal/sessionstore"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// StorageKey is the session-storage key holding the serialized cart.
const StorageKey = "easy-provision-cart"

// Service manages cart state for all active sessions. Storage failures are
// logged and degrade to empty-cart / no-op; they never reach the caller.
type Service struct {
	storage sessionstore.Store
	logger  *zap.Logger

	mu    sync.Mutex
	carts map[string]*models.CartState
}

// NewService creates a cart service backed by the given session storage.
func NewService(storage sessionstore.Store) *Service {
	return &Service{
		storage: storage,
		logger:  util.GetLogger(),
		carts:   make(map[string]*models.CartState),
	}
}

// Get returns a copy of the session's cart, hydrating from storage on the
// first access of the session.
func (s *Service) Get(ctx context.Context, sessionID string) models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state(ctx, sessionID))
}

// AddItem puts a product snapshot into the cart. Adding a product already
// present increments its quantity instead of duplicating the line; new
// lines start at quantity 1 and append in insertion order.
func (s *Service) AddItem(ctx context.Context, sessionID string, item models.CartItem) models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state(ctx, sessionID)
	for i := range state.Items {
		if state.Items[i].ProductID.Equal(item.ProductID) {
			state.Items[i].Quantity++
			s.persist(ctx, sessionID, state)
			util.CartMutationsTotal.WithLabelValues("add").Inc()
			return copyState(state)
		}
	}

	item.Quantity = 1
	state.Items = append(state.Items, item)
	s.persist(ctx, sessionID, state)
	util.CartMutationsTotal.WithLabelValues("add").Inc()
	return copyState(state)
}

// RemoveItem deletes the line for a product. No-op when absent.
func (s *Service) RemoveItem(ctx context.Context, sessionID string, productID models.BigInt) models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.removeLocked(ctx, sessionID, productID)
	util.CartMutationsTotal.WithLabelValues("remove").Inc()
	return copyState(state)
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes
// the line; an absent product is a no-op.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID string, productID models.BigInt, quantity int) models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		state := s.removeLocked(ctx, sessionID, productID)
		util.CartMutationsTotal.WithLabelValues("update").Inc()
		return copyState(state)
	}

	state := s.state(ctx, sessionID)
	for i := range state.Items {
		if state.Items[i].ProductID.Equal(productID) {
			state.Items[i].Quantity = quantity
			s.persist(ctx, sessionID, state)
			break
		}
	}
	util.CartMutationsTotal.WithLabelValues("update").Inc()
	return copyState(state)
}

// Clear empties the cart and erases the persisted copy.
func (s *Service) Clear(ctx context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[sessionID] = &models.CartState{Items: []models.CartItem{}}
	if err := s.storage.Delete(ctx, sessionID, StorageKey); err != nil {
		s.logger.Error("Failed to clear stored cart",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
	util.CartMutationsTotal.WithLabelValues("clear").Inc()
}

// TotalItems returns the sum of quantities across all lines.
func (s *Service) TotalItems(ctx context.Context, sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, item := range s.state(ctx, sessionID).Items {
		total += item.Quantity
	}
	return total
}

// Subtotal returns the exact sum of price*quantity across all lines.
// Arithmetic is arbitrary-precision so currency values never round.
func (s *Service) Subtotal(ctx context.Context, sessionID string) models.BigInt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return subtotal(s.state(ctx, sessionID))
}

// SubtotalOf computes the subtotal of an already-fetched cart state.
func SubtotalOf(state models.CartState) models.BigInt {
	return subtotal(&state)
}

func subtotal(state *models.CartState) models.BigInt {
	total := new(big.Int)
	for i := range state.Items {
		line := new(big.Int).Mul(&state.Items[i].Price.Int, big.NewInt(int64(state.Items[i].Quantity)))
		total.Add(total, line)
	}
	var out models.BigInt
	out.Set(total)
	return out
}

func (s *Service) removeLocked(ctx context.Context, sessionID string, productID models.BigInt) *models.CartState {
	state := s.state(ctx, sessionID)
	filtered := state.Items[:0]
	for _, item := range state.Items {
		if !item.ProductID.Equal(productID) {
			filtered = append(filtered, item)
		}
	}
	if len(filtered) != len(state.Items) {
		state.Items = filtered
		s.persist(ctx, sessionID, state)
	}
	return state
}

// state returns the session's live cart, hydrating it from storage the
// first time the session is seen. Caller must hold s.mu.
func (s *Service) state(ctx context.Context, sessionID string) *models.CartState {
	if state, ok := s.carts[sessionID]; ok {
		return state
	}

	state := &models.CartState{Items: []models.CartItem{}}
	data, err := s.storage.Get(ctx, sessionID, StorageKey)
	if err != nil {
		s.logger.Error("Failed to load stored cart",
			zap.String("session_id", sessionID),
			zap.Error(err))
	} else if data != nil {
		var stored models.CartState
		if err := json.Unmarshal(data, &stored); err != nil {
			s.logger.Error("Discarding malformed stored cart",
				zap.String("session_id", sessionID),
				zap.Error(err))
		} else {
			if stored.Items == nil {
				stored.Items = []models.CartItem{}
			}
			state = &stored
		}
	}

	s.carts[sessionID] = state
	return state
}

func (s *Service) persist(ctx context.Context, sessionID string, state *models.CartState) {
	data, err := json.Marshal(state)
	if err != nil {
		s.logger.Error("Failed to encode cart",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, sessionID, StorageKey, data); err != nil {
		s.logger.Error("Failed to save cart",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

func copyState(state *models.CartState) models.CartState {
	items := make([]models.CartItem, len(state.Items))
	copy(items, state.Items)
	return models.CartState{Items: items}
}
