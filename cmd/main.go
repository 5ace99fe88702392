package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"product-api/internal/api"
	"product-api/internal/config"
	"product-api/internal/images"
	"product-api/internal/repository"
	"product-api/internal/service"
	"product-api/migrations"
)

func connectDB(dsn, dbname string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				log.Printf("✅ Connected to DB %s", dbname)
				return db, nil
			}
		}
		log.Printf("❌ Retry %d: Failed to connect to DB %s: %v", i+1, dbname, err)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB %s after retries: %v", dbname, err)
}

func main() {
	cfg := config.LoadConfig()

	db, err := connectDB(cfg.DSN(), cfg.DBName)
	if err != nil {
		panic(err)
	}

	if err := migrations.AutoMigrateProducts(3, db); err != nil {
		log.Fatalf("Failed to migrate products table: %v", err)
	}
	if err := migrations.AutoMigrateColors(3, db); err != nil {
		log.Fatalf("Failed to migrate colors table: %v", err)
	}
	if err := migrations.AutoMigrateProductColors(3, db); err != nil {
		log.Fatalf("Failed to migrate product_colors table: %v", err)
	}
	if err := migrations.SeedColors(db); err != nil {
		log.Fatalf("Failed to seed colors: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
	}

	kafkaWriter := config.NewKafkaWriter(cfg.KafkaTopic)

	imageStore, err := images.NewStore(cfg.ImageDir)
	if err != nil {
		log.Fatalf("Failed to create image store: %v", err)
	}

	// Initialize catalog service
	productRepo := repository.NewProductRepository(db)
	productService := service.NewProductService(productRepo, imageStore, rdb, kafkaWriter)
	productHandler := api.NewProductHandler(productService)

	// Initialize echo
	e := echo.New()

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(10),
				Burst:     30,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	// Routes
	api.RegisterRoutes(e, productHandler)
	e.Static("/images", imageStore.Dir())

	e.GET("/api/products/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status":  "ok",
			"service": "product-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
