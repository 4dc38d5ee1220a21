package main

import (
	"context"
	"log/slog"
	"os"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	"app/internal/infra/notifier"
	infraRepo "app/internal/infra/repository"
	"app/internal/infra/stripe"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/joho/godotenv"
)

// stripe.Clientをusecaseの型に変換するアダプタ。
type stripeGateway struct {
	client *stripe.Client
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, orderID int64, amount int64) (usecase.CheckoutSession, error) {
	sess, err := g.client.CreateCheckoutSession(ctx, orderID, amount)
	if err != nil {
		return usecase.CheckoutSession{}, err
	}
	return usecase.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *stripeGateway) CreatePaymentIntent(ctx context.Context, orderID int64, amount int64) (usecase.PaymentIntent, error) {
	pi, err := g.client.CreatePaymentIntent(ctx, orderID, amount)
	if err != nil {
		return usecase.PaymentIntent{}, err
	}
	return usecase.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: pi.Status}, nil
}

func (g *stripeGateway) RetrievePaymentIntent(ctx context.Context, intentID string) (usecase.PaymentIntent, error) {
	pi, err := g.client.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		return usecase.PaymentIntent{}, err
	}
	return usecase.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: pi.Status}, nil
}

func main() {
	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	gormDB, err := db.Connect()
	if err != nil {
		slog.Error("db connect failed", "error", err)
		os.Exit(1)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Payment{},
		&model.PopularProduct{},
		&model.ReconciliationAlert{},
		&model.AuditLog{},
	); err != nil {
		slog.Error("migrate failed", "error", err)
		os.Exit(1)
	}

	//Repository（GORM実装）生成
	txManager := infraRepo.NewTxManagerGorm(gormDB)
	userRepo := infraRepo.NewUserRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	popularRepo := infraRepo.NewPopularProductGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	alertRepo := infraRepo.NewAlertGormRepository(gormDB)

	//決済ゲートウェイ
	gateway := &stripeGateway{client: stripe.NewClient(cfg.StripeSecretKey, cfg.FrontendURL)}

	//通知（ブローカー未設定なら無効）
	var notify usecase.Notifier = notifier.NopNotifier{}
	if len(cfg.KafkaBrokers) > 0 {
		kn := notifier.NewKafkaNotifier(cfg.KafkaBrokers)
		defer kn.Close()
		notify = kn
	}

	//Usecase生成
	productUC := usecase.NewProductUsecase(productRepo, popularRepo, cfg.PopularityThreshold)
	cartUC := usecase.NewCartUsecase(txManager)
	orderUC := usecase.NewOrderUsecase(txManager)
	checkoutUC := usecase.NewCheckoutUsecase(txManager, orderUC, gateway)
	paymentUC := usecase.NewPaymentUsecase(txManager, gateway, alertRepo, notify, cfg.PopularityThreshold)
	deliveryUC := usecase.NewDeliveryUsecase(txManager, auditRepo, notify)

	//Handler生成
	h := server.Handlers{
		Product:    handler.NewProductHandler(productUC),
		Cart:       handler.NewCartHandler(cartUC),
		Order:      handler.NewOrderHandler(orderUC),
		Payment:    handler.NewPaymentHandler(checkoutUC, paymentUC, cfg.StripeWebhookSecret),
		AdminOrder: handler.NewAdminOrderHandler(deliveryUC),
	}

	e := server.New(cfg, h, userRepo)

	slog.Info("server starting", "port", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
