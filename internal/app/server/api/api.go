//GET    /health                 # Проверка (публичный)
//POST   /register               # Регистрация (публичный)
//POST   /login                  # Логин (публичный)
//POST   /logout                 # Завершение сессии (auth)
//GET    /products               # Каталог, updated_since (auth)
//POST   /products               # Создать товар (auth)
//DELETE /products/{id}          # Удалить товар (auth)
//POST   /products/{id}/price    # Цены (auth)
//POST   /stock/add              # Поступление партии (auth)
//POST   /sales                  # Продажа (auth)
//GET    /ws                     # Канал событий остатков (auth)

package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	catalogAPI "stockkeeper/internal/app/server/api/http/catalog"
	healthAPI "stockkeeper/internal/app/server/api/http/health"
	"stockkeeper/internal/app/server/api/http/middleware"
	"stockkeeper/internal/app/server/api/http/middleware/auth"
	"stockkeeper/internal/app/server/api/http/middleware/logger"
	userAPI "stockkeeper/internal/app/server/api/http/user"
	"stockkeeper/internal/domain/catalog"
	"stockkeeper/internal/domain/session"
	"stockkeeper/internal/domain/user"
	"stockkeeper/internal/infrastructure/storage/postgres"
)

// Deps - зависимости, общие для всех обработчиков.
type Deps struct {
	Storage  *postgres.Storage
	Sessions session.Servicer
	Hub      interface {
		http.Handler
		catalog.Publisher
	}
}

type Handlers struct {
	Health  *healthAPI.Handler
	User    *userAPI.Handler
	Catalog *catalogAPI.Handler
}

// New создает *chi.Mux со всеми операциями API и каналом /ws.
func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Stockkeeper API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	authMW := auth.New(deps.Sessions, log)
	h := handlers(deps, authMW, log)
	h.Health.SetupRoutes(API)
	h.User.SetupRoutes(API)
	h.Catalog.SetupRoutes(API)

	mux.With(authMW.HTTP).Handle("/ws", deps.Hub)

	return mux
}

func handlers(deps Deps, authMW *auth.Auth, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(deps.Storage, log, middlewares.GetAllAndClear())

	userRepo := postgres.NewUserRepository(deps.Storage, log)
	userService := user.NewService(userRepo, nil, log)
	middlewares.Add(loggerMW.Middleware())
	public := middlewares.GetAllAndClear()
	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	userHandler := userAPI.NewHandler(userService, deps.Sessions, log, public, middlewares.GetAllAndClear())

	catalogRepo := postgres.NewCatalogRepository(deps.Storage, log)
	catalogService := catalog.NewService(catalogRepo, deps.Hub, log)
	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	catalogHandler := catalogAPI.NewHandler(catalogService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:  healthHandler,
		User:    userHandler,
		Catalog: catalogHandler,
	}
}
