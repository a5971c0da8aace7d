package http

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/fieldmap-service/internal/config"
	"github.com/fieldmap-service/internal/delivery/http/handler"
	"github.com/fieldmap-service/internal/delivery/http/middleware"
	"github.com/fieldmap-service/internal/pkg/errors"
	"github.com/fieldmap-service/internal/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"
)

// maxBodySize - предел тела запроса для выгрузок сабмитов
const maxBodySize = 64 << 20

// Server - HTTP сервер на основе Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	healthHandler  *handler.HealthHandler
	convertHandler *handler.ConvertHandler
	tileHandler    *handler.TileHandler
	basemapHandler *handler.BasemapHandler
}

// NewServer - создание нового HTTP сервера. basemapHandler == nil, если Redis выключен:
// маршруты /basemaps тогда не регистрируются.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthHandler *handler.HealthHandler,
	convertHandler *handler.ConvertHandler,
	tileHandler *handler.TileHandler,
	basemapHandler *handler.BasemapHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Fieldmap Service",
		BodyLimit:    maxBodySize,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:            app,
		config:         cfg,
		logger:         logger,
		healthHandler:  healthHandler,
		convertHandler: convertHandler,
		tileHandler:    tileHandler,
		basemapHandler: basemapHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS(s.config.Server.CORSOrigins))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	api := s.app.Group("/api/v1")

	api.Get("/health", s.healthHandler.Health)

	// Conversion
	api.Post("/convert", s.convertHandler.Convert)

	// Tiles
	api.Get("/tiles/plan", s.tileHandler.Plan)

	// Basemap jobs
	if s.basemapHandler != nil {
		api.Post("/basemaps", s.basemapHandler.Create)
		api.Get("/basemaps/:id", s.basemapHandler.Get)
	}
}

// App отдает fiber приложение (для тестов через app.Test)
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - ошибки, не обработанные хендлерами (404 маршрута, лимит тела, паники)
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if stderrors.As(err, &fe) {
			appErr := errors.New("HTTP_ERROR", fe.Message, fe.Code)
			if fe.Code == fiber.StatusNotFound {
				appErr = errors.Newf(errors.ErrNotFound, "%s", fe.Message)
			}
			return utils.SendError(c, appErr)
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return utils.SendError(c, err)
	}
}
