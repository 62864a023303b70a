package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"telecomstore/internal/config"
	"telecomstore/internal/database"
	"telecomstore/internal/gateway"
	"telecomstore/internal/handlers"
	"telecomstore/internal/keylock"
	"telecomstore/internal/logger"
	"telecomstore/internal/middleware"
	"telecomstore/internal/notify"
	"telecomstore/internal/services"
	"telecomstore/internal/store"
)

func main() {
	config.Load()
	env := config.AppEnv
	logger.Setup(env.LogLevel, env.LogPretty)

	if err := env.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	client, err := database.Connect(env.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	db := client.Database(env.DBName)
	log.Info().Str("db", db.Name()).Msg("mongo connected")

	if err := database.EnsureIndexes(db); err != nil {
		log.Warn().Err(err).Msg("index bootstrap incomplete")
	}

	catalog := store.NewCatalog(db)
	users := store.NewUsers(db)
	checkouts := store.NewCheckouts(db)
	payments := store.NewPayments(db)

	var sender notify.Sender = notify.LogSender{Logger: log.Logger, Sandbox: env.SMSSandbox}
	if env.SMSGatewayURL != "" {
		sender = notify.NewHTTPSender(env.SMSGatewayURL)
	} else if !env.SMSSandbox {
		log.Warn().Msg("SMS_GATEWAY_URL not set, verification codes are not delivered")
	}

	var gw gateway.Gateway = gateway.Sandbox{RedirectBase: env.PaymentRedirectBase}
	if env.PaymentGatewayURL != "" {
		gw = gateway.NewHTTPClient(env.PaymentGatewayURL, env.PaymentGatewayKey)
	} else {
		log.Warn().Msg("PAYMENT_GATEWAY_URL not set, using sandbox gateway")
	}
	if env.PaymentWebhookSecret == "" {
		log.Warn().Msg("PAYMENT_WEBHOOK_SECRET not set, webhook signatures are not checked")
	}

	// Cart, checkout and payment share one lock table so per-order and
	// per-cart sections exclude each other across services.
	locks := keylock.New()

	otp := services.NewOTPService(store.NewOTPChallenges(db), sender, env.OTPTTL, env.OTPMaxAttempts)
	authSvc := services.NewAuthService(users, store.NewRefreshTokens(db), otp, env.JWTSecret, env.AccessTokenTTL, env.RefreshTokenTTL)
	profileSvc := services.NewProfileService(users, locks)
	cartSvc := services.NewCartService(store.NewCarts(db), catalog, locks)
	checkoutSvc := services.NewCheckoutService(checkouts, catalog, users, cartSvc, locks)
	paymentSvc := services.NewPaymentService(checkouts, payments, users, gw, locks, env.Currency)
	cardSvc := services.NewCardService(store.NewCards(db), users, otp, services.NewMockAllocator(env.MSISDNPrefix), locks)

	uploads := handlers.Uploads{Root: env.UploadDir}

	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestLogger())
	r.Use(cors.New(corsConfig(env.CORSOrigins)))

	r.GET("/health", handlers.Health(client))

	r.GET("/products", handlers.GetProducts(catalog))
	r.GET("/products/:id", handlers.GetProduct(catalog))
	r.GET("/plans", handlers.GetPlans(catalog))
	r.GET("/plans/:id", handlers.GetPlan(catalog))
	r.GET("/addons", handlers.GetAddons(catalog))
	r.GET("/addons/:id", handlers.GetAddon(catalog))

	r.POST("/auth/register", handlers.Register(authSvc))
	r.POST("/auth/login", handlers.Login(authSvc))
	r.POST("/auth/refresh", handlers.Refresh(authSvc))
	r.POST("/auth/logout", handlers.Logout(authSvc))
	r.POST("/auth/otp/request", handlers.RequestLoginOTP(authSvc))
	r.POST("/auth/otp/verify", handlers.VerifyLoginOTP(authSvc))
	r.GET("/auth/me", middleware.UserAuth(env.JWTSecret), handlers.GetMe(authSvc))

	r.POST("/payments/webhook", middleware.GatewaySignature(env.PaymentWebhookSecret), handlers.PaymentWebhook(paymentSvc))
	r.GET("/payments/redirect", handlers.PaymentRedirect(payments))

	userAuth := middleware.UserAuth(env.JWTSecret)
	adminAuth := middleware.AdminAuth(env.JWTSecret)

	user := r.Group("/user")
	user.Use(userAuth)
	{
		user.GET("/addresses", handlers.GetAddresses(profileSvc))
		user.POST("/addresses", handlers.CreateAddress(profileSvc))
		user.PUT("/addresses/:id", handlers.UpdateAddress(profileSvc))
		user.DELETE("/addresses/:id", handlers.DeleteAddress(profileSvc))
		user.POST("/kyc", handlers.SubmitKYC(profileSvc, uploads))
	}

	cart := r.Group("/cart")
	cart.Use(userAuth)
	{
		cart.GET("", handlers.GetCart(cartSvc))
		cart.POST("", handlers.AddCartItem(cartSvc))
		cart.DELETE("", handlers.ClearCart(cartSvc))
		cart.PUT("/:itemId", handlers.UpdateCartItem(cartSvc))
		cart.DELETE("/:itemId", handlers.RemoveCartItem(cartSvc))
	}

	checkout := r.Group("/checkout")
	checkout.Use(userAuth)
	{
		checkout.POST("", handlers.CreateOrder(checkoutSvc))
		checkout.GET("", handlers.GetMyOrders(checkoutSvc))
		checkout.GET("/:id", handlers.GetOrder(checkoutSvc))
		checkout.POST("/:id/emi-payment", handlers.AddEmiPayment(checkoutSvc))
		checkout.POST("/:id/pay", handlers.StartPayment(paymentSvc))
		checkout.PATCH("/:id/payment-status", adminAuth, handlers.UpdatePaymentStatus(checkoutSvc))
		checkout.PATCH("/:id/order-status", adminAuth, handlers.UpdateOrderStatus(checkoutSvc))
	}

	cards := r.Group("/cards")
	cards.Use(userAuth)
	{
		cards.POST("/checkout-complete", handlers.CardCheckoutComplete(cardSvc))
		cards.POST("/request-otp", handlers.CardRequestOTP(cardSvc))
		cards.POST("/activate", handlers.CardActivate(cardSvc))
		cards.GET("/mine", handlers.MyCards(cardSvc))
	}

	admin := r.Group("/admin/api")
	admin.Use(adminAuth)
	{
		admin.GET("/checkouts", handlers.AdminListOrders(checkoutSvc))
		admin.DELETE("/checkouts/:id", handlers.DeleteOrder(checkoutSvc))
		admin.POST("/cards", handlers.ProvisionCards(cardSvc))
	}

	srv := &http.Server{
		Addr:              ":" + env.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.SignatureHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
