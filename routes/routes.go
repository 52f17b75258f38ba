package routes

import (
	"github.com/gin-gonic/gin"

	"rentledger/controllers"
	"rentledger/middleware"
)

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine) {
	// Public routes (no authentication required)
	public := r.Group("/api")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", controllers.Login)
			auth.POST("/register", controllers.Register)
		}

		// Gateway webhook: authenticated by payload signature, not JWT
		public.POST("/payments/gateway/webhook", controllers.HandleGatewayWebhook)
	}

	// Protected routes (authentication required)
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("/auth/refresh", controllers.RefreshToken)

		protected.GET("/profile", controllers.GetUserProfile)
		protected.PUT("/profile", controllers.UpdateUserProfile)

		// Admin routes
		admin := protected.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			admin.PATCH("/users/:id/role", controllers.UpdateUserRole)
			admin.POST("/billing/sweep-overdue", controllers.SweepOverdueInvoices)
		}

		// Properties and units
		properties := protected.Group("/properties")
		{
			properties.POST("", middleware.ManagerAuthMiddleware(), controllers.CreateProperty)
			properties.GET("", controllers.GetProperties)
			properties.GET("/:id", controllers.GetPropertyByID)
			properties.POST("/:id/units", middleware.ManagerAuthMiddleware(), controllers.AddUnit)
			properties.GET("/:id/occupancy", middleware.ManagerAuthMiddleware(), controllers.GetPropertyOccupancy)
		}

		// Leases
		leases := protected.Group("/leases")
		{
			leases.POST("", middleware.ManagerAuthMiddleware(), controllers.CreateLease)
			leases.POST("/:id/terminate", middleware.ManagerAuthMiddleware(), controllers.TerminateLease)
			leases.POST("/:id/renew", controllers.RenewLease)
			leases.GET("/:id/ledger", controllers.GetTenantLedger)
			leases.GET("/:id/credit", controllers.GetTenantCredit)
			leases.GET("/:id/invoices", controllers.GetTenantInvoices)
		}

		// Billing
		billing := protected.Group("/invoices")
		{
			billing.POST("", middleware.ManagerAuthMiddleware(), controllers.GenerateInvoice)
		}

		// Payments
		payments := protected.Group("/payments")
		{
			payments.POST("/checkout", middleware.TenantAuthMiddleware(), controllers.GenerateRentCheckout)
			payments.POST("", middleware.ManagerAuthMiddleware(), controllers.RecordManualPayment)
			payments.GET("", controllers.GetPaymentHistory)
		}

		// Maintenance requests
		maintenance := protected.Group("/maintenance")
		{
			maintenance.POST("", controllers.CreateMaintenanceRequest)
			maintenance.POST("/:id/transition", middleware.ManagerAuthMiddleware(), controllers.TransitionMaintenanceRequest)
			maintenance.GET("", controllers.GetMaintenanceQueue)
		}
	}
}
