// Package checkout orchestrates order submission: input validation, the
// single backend call, the confirmation snapshot hand-off, and the
// post-success cleanup.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/cart"
	"storefront-service/internal/models"
	"storefront-service/internal/sessionstore"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SnapshotKey is the session-storage key holding the one-shot confirmation
// snapshot.
const SnapshotKey = "lastOrder"

var (
	// ErrEmptyCart signals that checkout was entered with nothing to order.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrValidation signals a missing required field. No request is sent.
	ErrValidation = errors.New("name and shipping address are required")
	// ErrSubmitInFlight signals a duplicate submission while one is
	// already outstanding for the session.
	ErrSubmitInFlight = errors.New("order submission already in progress")
)

// Backend is the slice of the remote client the checkout flow needs.
type Backend interface {
	PlaceOrder(ctx context.Context, productID, quantity models.BigInt, customerName, shippingAddress string) (*models.Order, error)
	InvalidateProducts(ctx context.Context) error
}

// Publisher emits order events. May be nil when the broker is disabled.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}

// SubmitRequest carries the checkout form fields. Phone, email and note are
// optional; the backend order schema has no columns for them, so they ride
// along inside the customer-name field (see encodeCustomerDetails).
type SubmitRequest struct {
	CustomerName    string `json:"customerName"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	ShippingAddress string `json:"shippingAddress"`
	Note            string `json:"note"`
}

// Service is the checkout flow controller. Each session moves through
// Idle -> Submitting -> Idle per attempt; concurrent submissions for the
// same session are refused.
type Service struct {
	cart      *cart.Service
	backend   Backend
	storage   sessionstore.Store
	publisher Publisher
	logger    *zap.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewService creates a checkout service. publisher may be nil.
func NewService(cartSvc *cart.Service, backend Backend, storage sessionstore.Store, publisher Publisher) *Service {
	return &Service{
		cart:      cartSvc,
		backend:   backend,
		storage:   storage,
		publisher: publisher,
		logger:    util.GetLogger(),
		inFlight:  make(map[string]bool),
	}
}

// Submit validates the form, places the order and hands the confirmation
// snapshot off through session storage. Only the first cart line is
// submitted to the backend; the snapshot still records the whole cart.
func (s *Service) Submit(ctx context.Context, sessionID string, req SubmitRequest) (*models.ConfirmationSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "checkout.Submit")
	defer span.End()

	name := strings.TrimSpace(req.CustomerName)
	address := strings.TrimSpace(req.ShippingAddress)
	if name == "" || address == "" {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, ErrValidation
	}

	state := s.cart.Get(ctx, sessionID)
	if len(state.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if err := s.begin(sessionID); err != nil {
		return nil, err
	}
	defer s.finish(sessionID)

	first := state.Items[0]
	var quantity models.BigInt
	quantity.SetInt64(int64(first.Quantity))

	details := encodeCustomerDetails(name, req.Phone, req.Email, req.Note)

	order, err := s.backend.PlaceOrder(ctx, first.ProductID, quantity, details, address)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("backend").Inc()
		s.logger.Warn("Order placement failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, fmt.Errorf("place order: %w", err)
	}

	snapshot := &models.ConfirmationSnapshot{
		ID:              order.ID,
		Items:           state.Items,
		Total:           cart.SubtotalOf(state),
		CustomerName:    name,
		ShippingAddress: address,
		Timestamp:       time.Now().UnixMilli(),
	}
	s.storeSnapshot(ctx, sessionID, snapshot)

	s.cart.Clear(ctx, sessionID)

	if err := s.backend.InvalidateProducts(ctx); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.Error(err))
	}

	s.publishOrderPlaced(ctx, sessionID, order, snapshot)

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.String("session_id", sessionID),
		zap.String("order_id", order.ID.String()))

	return snapshot, nil
}

// Consume reads and deletes the confirmation snapshot for a session. It
// returns (nil, nil) when no snapshot is stored, which the caller treats as
// a navigation-guard redirect. The cart is cleared again on consumption,
// mirroring the confirmation screen's behavior.
func (s *Service) Consume(ctx context.Context, sessionID string) (*models.ConfirmationSnapshot, error) {
	data, err := s.storage.Get(ctx, sessionID, SnapshotKey)
	if err != nil {
		s.logger.Error("Failed to read confirmation snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, nil
	}
	if data == nil {
		return nil, nil
	}

	if err := s.storage.Delete(ctx, sessionID, SnapshotKey); err != nil {
		s.logger.Error("Failed to delete confirmation snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	var snapshot models.ConfirmationSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.Error("Discarding malformed confirmation snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, nil
	}

	s.cart.Clear(ctx, sessionID)
	return &snapshot, nil
}

func (s *Service) begin(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight[sessionID] {
		return ErrSubmitInFlight
	}
	s.inFlight[sessionID] = true
	return nil
}

func (s *Service) finish(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}

func (s *Service) storeSnapshot(ctx context.Context, sessionID string, snapshot *models.ConfirmationSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error("Failed to encode confirmation snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, sessionID, SnapshotKey, data); err != nil {
		s.logger.Error("Failed to save confirmation snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

func (s *Service) publishOrderPlaced(ctx context.Context, sessionID string, order *models.Order, snapshot *models.ConfirmationSnapshot) {
	if s.publisher == nil {
		return
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		SessionID:   sessionID,
		ProductID:   order.ProductID,
		Quantity:    order.Quantity,
		TotalAmount: snapshot.Total,
		ItemCount:   len(snapshot.Items),
	}

	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

// encodeCustomerDetails packs the optional contact fields into the order's
// single customer-name field, e.g. "Jane | +1 555 | jane@x.io | Note: ring
// twice". The backend schema has nowhere else to put them.
func encodeCustomerDetails(name, phone, email, note string) string {
	var b strings.Builder
	b.WriteString(name)
	if phone != "" {
		b.WriteString(" | ")
		b.WriteString(phone)
	}
	if email != "" {
		b.WriteString(" | ")
		b.WriteString(email)
	}
	if note != "" {
		b.WriteString(" | Note: ")
		b.WriteString(note)
	}
	return b.String()
}
