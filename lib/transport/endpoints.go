package transport

import (
	"time"

	"github.com/kinterstore/qrishub.go/common"
	"github.com/kinterstore/qrishub.go/controllers"
	"github.com/kinterstore/qrishub.go/lib/middlewares"
	"github.com/kinterstore/qrishub.go/lib/security"
	"github.com/kinterstore/qrishub.go/lib/service"
	"github.com/kinterstore/qrishub.go/lib/tokens"
	"github.com/labstack/echo/v4"
)

// RegisterEndpoints wires the public, user and admin routes. secured must
// already carry the JWT and logging middlewares.
func RegisterEndpoints(svc *service.QrishubService, e *echo.Echo, secured *echo.Group, strictRateLimitMiddleware echo.MiddlewareFunc, logMw echo.MiddlewareFunc) {
	authCtrl := controllers.NewAuthController(svc)
	userCtrl := controllers.NewCreateUserController(svc)
	paymentCtrl := controllers.NewPaymentController(svc)
	uploadCtrl := controllers.NewUploadProofController(svc)
	settingsCtrl := controllers.NewSettingsController(svc)
	adminCtrl := controllers.NewAdminController(svc)
	profileCtrl := controllers.NewProfileController(svc)

	e.GET("/health", controllers.NewHealthController(svc).Health)

	e.POST("/api/login", authCtrl.Login, strictRateLimitMiddleware, logMw)
	e.POST("/api/user/refresh", authCtrl.Refresh, strictRateLimitMiddleware, logMw)
	if svc.Config.AllowAccountCreation {
		e.POST("/api/register", userCtrl.Register, strictRateLimitMiddleware, logMw)
	}
	//bootstrap operators with the static admin token
	if svc.Config.AdminToken != "" {
		e.POST("/api/admin/users", userCtrl.CreateUser, strictRateLimitMiddleware, tokens.AdminTokenMiddleware(svc.Config.AdminToken), logMw)
	}

	publicCache := CreateCacheClient(time.Minute).Middleware()
	e.GET("/api/qris-settings", settingsCtrl.GetSettings, publicCache)
	e.GET("/api/plans", settingsCtrl.Plans, publicCache)

	// the websocket authenticates with ?token= since browsers can't set headers on upgrade
	e.GET("/api/qris-payment/stream", controllers.NewTransactionStreamController(svc).StreamTransactions)

	if svc.Gateway != nil {
		e.POST("/api/tripay/callback", controllers.NewCallbackController(svc).TripayCallback,
			security.SignatureMiddleware(common.CallbackSignatureHeader, svc.Gateway.VerifyCallbackSignature), logMw)
	}

	user := secured.Group("", middlewares.Authorized(svc))
	user.POST("/api/qris-payment", paymentCtrl.CreatePayment, strictRateLimitMiddleware)
	user.GET("/api/qris-payment/:ref/check", paymentCtrl.CheckPayment)
	user.POST("/api/qris-payment/:ref/upload", uploadCtrl.Upload, strictRateLimitMiddleware)
	user.POST("/api/qris-payment/:ref/upload-base64", uploadCtrl.UploadBase64, strictRateLimitMiddleware)
	user.POST("/api/qris-payment/:ref/cancel", paymentCtrl.CancelPayment)
	user.GET("/api/qris-payment/:ref/qr", controllers.NewQRController(svc).QR)
	user.GET("/api/qris-payments", paymentCtrl.ListPayments)
	user.GET("/api/user/profile", profileCtrl.Profile)
	user.GET("/api/connection/status", profileCtrl.ConnectionStatus, middlewares.SubscriptionRequired(svc))

	admin := user.Group("", tokens.AdminRoleMiddleware)
	admin.POST("/api/qris-settings", settingsCtrl.SaveSettings)
	admin.POST("/api/subscriptions/verify", adminCtrl.Verify)
	admin.GET("/api/pending", adminCtrl.Pending)
	admin.GET("/api/admin/qris-payments", adminCtrl.ListPayments)
	admin.GET("/api/admin/qris-payments/:id", adminCtrl.GetPayment)
	admin.POST("/api/admin/plans", settingsCtrl.CreatePlan)
	admin.DELETE("/api/admin/users/:id", adminCtrl.DeleteUser)
	if svc.Config.AdminToken == "" {
		admin.POST("/api/admin/users", userCtrl.CreateUser)
	}
}
