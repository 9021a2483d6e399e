// Package di provides dependency injection type definitions.
package di

import (
	"github.com/aristath/nasdaq-universe/internal/clientdata"
	"github.com/aristath/nasdaq-universe/internal/database"
	"github.com/aristath/nasdaq-universe/internal/discovery"
	"github.com/aristath/nasdaq-universe/internal/domain"
	"github.com/aristath/nasdaq-universe/internal/history"
	"github.com/aristath/nasdaq-universe/internal/publish"
	"github.com/aristath/nasdaq-universe/internal/scheduler"
	"github.com/aristath/nasdaq-universe/internal/universe"
)

// Container holds all dependencies for the application.
// The database and everything built on it are nil when storage is disabled.
type Container struct {
	// Database
	DB *database.DB

	// Repositories
	ClientDataRepo *clientdata.Repository
	RunRepo        *history.Repository

	// Services
	Source     domain.TickerSource
	Provider   domain.MarketCapProvider
	Store      *universe.Store
	Publisher  *publish.S3Publisher // nil when publishing is not configured
	Discoverer *discovery.Discoverer
}

// Close releases the database
func (c *Container) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// JobInstances holds the scheduled jobs
type JobInstances struct {
	DiscoverUniverse *scheduler.DiscoverUniverseJob

	// Maintenance, nil when storage is disabled
	ClientDataCleanup *clientdata.CleanupJob
	CheckDatabase     *scheduler.CheckDatabaseJob
	WALCheckpoints    *scheduler.CheckWALCheckpointsJob
}
