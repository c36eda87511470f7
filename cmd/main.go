package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/huriachi/collectiv/internal/api"
	"github.com/huriachi/collectiv/internal/config"
	"github.com/huriachi/collectiv/internal/repository"
	"github.com/huriachi/collectiv/internal/service"
	"github.com/huriachi/collectiv/migrations"
)

func connectDB(dsn string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				log.Printf("Connected to DB")
				return db, nil
			}
		}
		log.Printf("Retry %d: Failed to connect to DB: %v", i+1, err)
		time.Sleep(3 * time.Second)
	}
	return nil, err
}

func main() {
	db, err := connectDB(config.DatabaseDSN())
	if err != nil {
		panic(err)
	}

	if err := migrations.AutoMigrateUsers(3, db); err != nil {
		log.Fatalf("Failed to migrate users table: %v", err)
	}

	ctx := context.Background()
	count, err := migrations.CountUsers(ctx, db)
	if err != nil {
		log.Fatalf("Failed to count users: %v", err)
	}
	if count == 0 {
		if err := migrations.SeedUsers(ctx, db); err != nil {
			log.Fatalf("Failed to seed users table: %v", err)
		}
	}

	rdb := config.NewRedisClient()
	kafkaWriter := config.NewKafkaWriter("user-topic")

	userRepo := repository.NewMySQLUserRepository(db)
	userService := service.NewUserService(userRepo, kafkaWriter, rdb)
	userHandler := api.NewUserHandler(userService, config.ResetToken())

	renderer, err := api.NewTemplateRenderer()
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	e := echo.New()
	e.Renderer = renderer

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(20),
				Burst:     40,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.Request().RemoteAddr, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusNotFound {
			_ = c.Render(404, "404.html", nil)
			return
		}
		_ = c.String(500, "Something broke on our side... 500")
	}

	userHandler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(config.ListenAddr()))
}
