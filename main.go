package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/gateway"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/payments"
)

func main() {
	config.Load()
	cfg := config.AppEnv

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(cfg.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("⚠️ product index warning: %v", err)
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("⚠️ user index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("⚠️ order index warning: %v", err)
	}

	orderRepo := database.NewOrderRepository(db)
	productRepo := database.NewProductRepository(db)

	var tx payments.Transactor
	if cfg.MongoTransactions {
		tx = database.NewMongoTransactor(client)
	} else {
		log.Println("[MAIN] [WARN] MONGO_TRANSACTIONS=false: payments finalize without a transaction")
	}

	var verifier gateway.Verifier
	if cfg.WebhookTestMode() {
		verifier = gateway.NewUnverifiedParser()
	} else {
		if cfg.StripeWebhookSecret == "" {
			log.Println("[MAIN] [WARN] STRIPE_WEBHOOK_SECRET is empty: every webhook delivery will be rejected")
		}
		verifier = gateway.NewSignatureVerifier(cfg.StripeWebhookSecret)
	}

	var publisher payments.Publisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.OrderEventsExchange)
		if err != nil {
			log.Printf("[MAIN] [WARN] order events disabled: %v", err)
		} else {
			defer amqpPublisher.Close()
			publisher = amqpPublisher
		}
	}

	reconciler := payments.NewReconciler(
		payments.NewFinalizer(orderRepo, productRepo, tx),
		payments.NewFailureRecorder(orderRepo),
		publisher,
	)
	checkoutSessions := gateway.NewCheckoutSessions(gateway.CheckoutConfig{
		SecretKey:   cfg.StripeSecretKey,
		Currency:    cfg.Currency,
		FrontendURL: cfg.FrontendURL,
	})
	uploads := handlers.NewUploadStorage(cfg.UploadDir)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(middleware.Metrics())

	// Stripe signs the exact bytes it sent; nothing may read the body first.
	r.POST("/api/stripe/webhook", handlers.StripeWebhook(verifier, reconciler))
	r.POST("/api/stripe/create-checkout-session", handlers.CreateCheckoutSession(orderRepo, productRepo, checkoutSessions, cfg.Currency))

	r.GET("/health", handlers.Health(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/uploads", cfg.UploadDir)

	protect := middleware.Protect(db, cfg.JWTSecret)
	admin := middleware.AdminOnly()

	users := r.Group("/api/users")
	{
		users.POST("", handlers.Register(db, cfg.JWTSecret, cfg.AccessTokenTTL))
		users.POST("/login", handlers.Login(db, cfg.JWTSecret, cfg.AccessTokenTTL))
		users.GET("/profile", protect, handlers.GetUserProfile())
		users.PUT("/profile", protect, handlers.UpdateUserProfile(db))
		users.GET("/wishlist", protect, handlers.GetWishlist(db))
		users.POST("/wishlist", protect, handlers.AddToWishlist(db))
		users.DELETE("/wishlist/:productId", protect, handlers.RemoveFromWishlist(db))

		users.GET("", protect, admin, handlers.GetUsers(db))
		users.GET("/:id", protect, admin, handlers.GetUserByID(db))
		users.PUT("/:id", protect, admin, handlers.UpdateUserByAdmin(db))
		users.DELETE("/:id", protect, admin, handlers.DeleteUserByAdmin(db))
	}

	products := r.Group("/api/products")
	{
		products.GET("", handlers.GetProducts(db))
		products.GET("/top", handlers.GetTopProducts(db))
		products.GET("/categories", handlers.GetCategories(db))
		products.GET("/:id", handlers.GetProductByID(db))
		products.POST("/:id/reviews", protect, handlers.CreateProductReview(db))

		products.POST("", protect, admin, handlers.CreateProduct(db, uploads))
		products.PUT("/:id", protect, admin, handlers.UpdateProduct(db, uploads))
		products.DELETE("/:id", protect, admin, handlers.DeleteProduct(db, uploads))
	}

	orders := r.Group("/api/orders")
	orders.Use(protect)
	{
		orders.POST("", handlers.CreateOrder(db, cfg.Currency))
		orders.GET("/myorders", handlers.GetMyOrders(db))
		orders.GET("/:id", handlers.GetOrderByID(db))
		orders.GET("", admin, handlers.GetOrders(db))
		orders.PUT("/:id/deliver", admin, handlers.UpdateOrderToDelivered(db))
	}

	r.POST("/api/uploads", protect, admin, handlers.UploadImage(uploads))

	log.Printf("[MAIN] [INFO] listening on :%s (env=%s)", cfg.Port, cfg.Environment)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
