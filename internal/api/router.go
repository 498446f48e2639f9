package api

import (
	"github.com/cpduel/cpduel/internal/arena"
	"github.com/cpduel/cpduel/internal/config"
	"github.com/cpduel/cpduel/internal/judge"
	"github.com/cpduel/cpduel/internal/pubsub"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// NewRouter creates and configures the Gin engine.
func NewRouter(
	cfg *config.Config,
	db *gorm.DB,
	mgr *arena.Manager,
	broker *pubsub.Broker,
	client *judge.Client) *gin.Engine {

	r := gin.Default()
	r.Use(CORSMiddleware(cfg.CORS))

	h := NewHandler(cfg, db, mgr, broker, client)

	v1 := r.Group("/api/v1")
	{
		// Matches
		matches := v1.Group("/matches")
		{
			matches.POST("", h.createMatch)
			matches.POST("/join", h.joinMatch)
			matches.GET("/:id", h.getMatch)
			matches.GET("/:id/results", h.getMatchResults)

			creator := matches.Group("/:id")
			creator.Use(CreatorAuthMiddleware(cfg.Auth.JWT.Secret))
			{
				creator.POST("/abandon", h.abandonMatch)
			}
		}

		// Websocket live feed
		v1.GET("/ws/matches/:id/feed", h.handleMatchFeed)

		// Problem catalog, queried while setting a match up
		v1.GET("/catalog/tags", h.getCatalogTags)
		v1.GET("/catalog/problems", h.getCatalogProblems)

		// Handle validation against the judge
		v1.POST("/handles/validate", h.validateHandles)
	}

	return r
}
