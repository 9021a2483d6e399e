package di

import (
	"github.com/aristath/nasdaq-universe/internal/clientdata"
	"github.com/aristath/nasdaq-universe/internal/history"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the repositories on top of the database
func InitializeRepositories(container *Container, log zerolog.Logger) {
	if container.DB == nil {
		return
	}

	container.ClientDataRepo = clientdata.NewRepository(container.DB.Conn())
	container.RunRepo = history.NewRepository(container.DB.Conn(), log)
}
