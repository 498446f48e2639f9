package api

import (
	"github.com/cpduel/cpduel/internal/arena"
	"github.com/cpduel/cpduel/internal/catalog"
	"github.com/cpduel/cpduel/internal/config"
	"github.com/cpduel/cpduel/internal/judge"
	"github.com/cpduel/cpduel/internal/pubsub"
	"gorm.io/gorm"
)

// Handler holds all dependencies for the API handlers.
type Handler struct {
	cfg     *config.Config
	db      *gorm.DB
	arena   *arena.Manager
	broker  *pubsub.Broker
	catalog *catalog.Service
	judge   *judge.Client
}

func NewHandler(
	cfg *config.Config,
	db *gorm.DB,
	mgr *arena.Manager,
	broker *pubsub.Broker,
	client *judge.Client,
) *Handler {
	return &Handler{
		cfg:     cfg,
		db:      db,
		arena:   mgr,
		broker:  broker,
		catalog: catalog.NewService(client),
		judge:   client,
	}
}
