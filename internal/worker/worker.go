package worker

import (
	"context"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// Catalog is the slice of the backend client the worker needs to refresh
// the product cache.
type Catalog interface {
	InvalidateProducts(ctx context.Context) error
	GetAllProducts(ctx context.Context) ([]models.Product, error)
}

// CatalogWorker consumes OrderPlaced events and re-warms the product cache.
// Every accepted order changes stock on the backend, so the cached list is
// dropped and refetched.
type CatalogWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	catalog      Catalog
	logger       *zap.Logger
}

// NewCatalogWorker creates a new catalog worker
func NewCatalogWorker(consumer *broker.Consumer, catalog Catalog) *CatalogWorker {
	w := &CatalogWorker{
		consumer: consumer,
		catalog:  catalog,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *CatalogWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting catalog worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CatalogWorker) Stop() error {
	w.logger.Info("Stopping catalog worker")
	return w.consumer.Close()
}

func (w *CatalogWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	w.logger.Info("Refreshing catalog cache after order",
		zap.String("order_id", event.OrderID.String()))

	if err := w.catalog.InvalidateProducts(ctx); err != nil {
		return err
	}

	// GetAllProducts repopulates the cache on a miss.
	if _, err := w.catalog.GetAllProducts(ctx); err != nil {
		return err
	}

	util.CatalogRefreshesTotal.Inc()
	return nil
}
