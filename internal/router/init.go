package router

import (
	"github.com/dmarkov/user-microservice/config"
	userapp "github.com/dmarkov/user-microservice/internal/application"
	"github.com/dmarkov/user-microservice/internal/container"
	pginfra "github.com/dmarkov/user-microservice/internal/infrastructure/postgres"
	handlers "github.com/dmarkov/user-microservice/internal/interface/http"
	"github.com/dmarkov/user-microservice/internal/router/modules"
)

// BuildUserService composes the service strategy selected by the profile.
// The two strategies are mutually exclusive: the event-driven one records
// outbox events, the sync one calls the email service directly.
func BuildUserService() userapp.UserService {
	cfg := container.GetConfig()
	userRepo := pginfra.NewUserRepository(container.GetPGPool())

	if cfg.Profile == config.ProfileSync {
		return userapp.NewSyncService(
			userRepo,
			container.GetTxScope(),
			container.GetNotifier(),
			container.GetLogger(),
		)
	}

	outboxRepo := pginfra.NewOutboxRepository(container.GetPGPool())
	return userapp.NewService(
		userRepo,
		outboxRepo,
		container.GetTxScope(),
		container.GetRedis(),
		cfg.UserCacheTTL,
		container.GetES(),
		cfg.ESUsersIndex,
		container.GetLogger(),
	)
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	svc := BuildUserService()

	// Search is only served by the event-driven strategy.
	searcher, _ := svc.(handlers.UserSearcher)

	handler := handlers.NewUserHandler(svc, searcher, container.GetLogger())
	r.Add(modules.New(handler))
}
