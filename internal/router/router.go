package router

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/handlers"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/middleware"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/internal/repositories"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/pkg/config"
	"github.com/Bijoy-Prasad-Modi/Twitter-Clone/pkg/media"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, cfg *config.Config) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.Logger())
	e.Use(eMiddleware.CORSWithConfig(eMiddleware.CORSConfig{
		AllowOrigins: []string{
			"https://twitter-app-client-live.vercel.app",
			"http://localhost:5173",
		},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowCredentials: true,
	}))
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.IsDevelopment())
	log.Println("Global middleware configured.")
}

// NewHTTPErrorHandler translates handler errors into the fixed {"error": ...}
// response shape. Internal detail is logged; it is only returned to the
// caller in development mode.
func NewHTTPErrorHandler(isDevelopment bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Internal Server Error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			}
		}

		if code == http.StatusInternalServerError {
			log.Printf("Server Error: %v", err)
			if isDevelopment {
				message = fmt.Sprintf("Internal Server Error: %v", err)
			} else {
				message = "Internal Server Error"
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, echo.Map{"error": message})
	}
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, mgClient *mongo.Client, mediaStore media.Uploader, cfg *config.Config) {
	db := mgClient.Database(cfg.MongoDatabase)

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewMongoUserRepository(db)
	postRepo := repositories.NewMongoPostRepository(db)
	notificationRepo := repositories.NewMongoNotificationRepository(db)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/auth")
	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret, !cfg.IsDevelopment())
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))

	userHandler := handlers.NewUserHandler(userRepo, notificationRepo, mediaStore)
	userHandler.RegisterUserRoutes(api)
	log.Println("User routes configured.")

	postHandler := handlers.NewPostHandler(postRepo, userRepo, notificationRepo, mediaStore)
	postHandler.RegisterPostRoutes(api)
	log.Println("Post routes configured.")

	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	log.Println("All routes configured.")
}
