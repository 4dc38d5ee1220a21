package server

import (
	"net/http"

	"app/internal/config"
	"app/internal/handler"
	appmw "app/internal/middleware"
	"app/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Handlers struct {
	Product    *handler.ProductHandler
	Cart       *handler.CartHandler
	Order      *handler.OrderHandler
	Payment    *handler.PaymentHandler
	AdminOrder *handler.AdminOrderHandler
}

// Newはルーティング済みのechoインスタンスを返す。起動はmain側。
func New(cfg config.Config, h Handlers, users repository.UserRepository) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	//公開API（認証不要）
	e.GET("/products", h.Product.List)
	e.GET("/products/popular", h.Product.Popular)
	e.GET("/products/:id", h.Product.Detail)

	//Webhookは署名検証のみ（JWTは付かない）
	e.POST("/webhooks/stripe", h.Payment.Webhook)

	//認証必須API
	auth := e.Group("", appmw.AuthJWT(cfg), appmw.TokenVersionGuard(users))

	auth.GET("/cart", h.Cart.Get)
	auth.POST("/cart/items", h.Cart.AddItem)
	auth.PUT("/cart/items/:id", h.Cart.UpdateItem)
	auth.DELETE("/cart/items/:id", h.Cart.DeleteItem)

	auth.POST("/orders", h.Order.Place)
	auth.GET("/orders", h.Order.ListMine)
	auth.GET("/orders/:id", h.Order.Detail)

	auth.POST("/payments/checkout-session", h.Payment.CreateCheckoutSession)
	auth.POST("/payments/orders/:orderId/intent", h.Payment.CreatePaymentIntent)
	auth.POST("/payments/confirm/:paymentIntentId", h.Payment.ConfirmPayment)

	//管理者API
	admin := auth.Group("/admin", appmw.AdminRoleGuard())
	admin.GET("/orders", h.AdminOrder.List)
	admin.POST("/orders/:id/ship", h.AdminOrder.Ship)
	admin.POST("/orders/:id/deliver", h.AdminOrder.Deliver)
	admin.POST("/orders/:id/cancel", h.AdminOrder.Cancel)

	return e
}
