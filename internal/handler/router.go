package handler

import (
	"log/slog"

	"go-inventory-pos/internal/middleware"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/ratelimit"
	"go-inventory-pos/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Router mounts every HTTP route. Handlers are built by the caller.
type Router struct {
	Auth       *AuthHandler
	Products   *ProductHandler
	Categories *CategoryHandler
	Sales      *SaleHandler
	Users      *UserHandler
	Roles      *RoleHandler
	Reports    *ReportHandler

	Sessions    middleware.BearerValidator
	Permissions middleware.PermissionChecker
	// AuthLimiter throttles credential endpoints per client IP.
	AuthLimiter ratelimit.Limiter
	Hub         *ws.Hub
}

func (r *Router) Mount(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")
	need := func(code string) fiber.Handler {
		return middleware.RequirePermission(r.Permissions, code)
	}
	requireAuth := middleware.RequireAuth(r.Sessions)

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	limited := middleware.RateLimit(r.AuthLimiter, "auth")
	auth.Post("/register", limited, r.Users.Register)
	auth.Post("/login", limited, r.Auth.Login)
	auth.Post("/login/verify", limited, r.Auth.Verify)
	auth.Post("/password/forgot", limited, r.Auth.ForgotPassword)
	auth.Post("/password/reset", limited, r.Auth.ResetPassword)
	auth.Post("/username/recover", limited, r.Auth.RecoverUsername)
	auth.Get("/google/login", r.Auth.GoogleLogin)
	auth.Get("/google/callback", limited, r.Auth.GoogleCallback)

	auth.Post("/logout", requireAuth, r.Auth.Logout)
	auth.Get("/me", requireAuth, need(model.PermProfileView), r.Auth.Me)
	auth.Post("/2fa/setup", requireAuth, r.Auth.SetupTOTP)
	auth.Post("/password/change", requireAuth, r.Auth.ChangePassword)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", requireAuth)

	protected.Get("/products", need(model.PermProductView), r.Products.GetProducts)
	protected.Get("/products/:code", need(model.PermProductView), r.Products.GetProduct)
	protected.Get("/products/:code/movements", need(model.PermProductView), r.Products.GetMovements)
	protected.Post("/products", need(model.PermProductCreate), r.Products.CreateProduct)
	protected.Put("/products/:code", need(model.PermProductUpdate), r.Products.UpdateProduct)
	protected.Delete("/products/:code", need(model.PermProductDelete), r.Products.DeleteProduct)
	protected.Post("/products/:code/adjust", need(model.PermStockAdjust), r.Products.AdjustStock)

	protected.Get("/categories", need(model.PermCategoryView), r.Categories.GetCategories)
	protected.Get("/categories/:id", need(model.PermCategoryView), r.Categories.GetCategory)
	protected.Post("/categories", need(model.PermCategoryCreate), r.Categories.CreateCategory)
	protected.Put("/categories/:id", need(model.PermCategoryUpdate), r.Categories.UpdateCategory)
	protected.Delete("/categories/:id", need(model.PermCategoryDelete), r.Categories.DeleteCategory)

	protected.Post("/sales", need(model.PermSaleCreate), r.Sales.CreateSale)
	protected.Get("/sales", need(model.PermSaleView), r.Sales.GetSales)
	protected.Get("/sales/:id", need(model.PermSaleView), r.Sales.GetSale)
	protected.Post("/purchases", need(model.PermPurchaseCreate), r.Sales.CreatePurchase)
	protected.Get("/purchases", need(model.PermPurchaseView), r.Sales.GetPurchases)
	protected.Get("/purchases/:id", need(model.PermPurchaseView), r.Sales.GetPurchase)

	protected.Get("/users", need(model.PermUserManage), r.Users.GetUsers)
	protected.Get("/users/:id", need(model.PermUserManage), r.Users.GetUser)
	protected.Post("/users", need(model.PermUserManage), r.Users.CreateUser)
	protected.Put("/users/:id", need(model.PermUserManage), r.Users.UpdateUser)
	protected.Delete("/users/:id", need(model.PermUserManage), r.Users.DeleteUser)

	protected.Get("/roles", need(model.PermUserManage), r.Roles.GetRoles)
	protected.Get("/permissions", need(model.PermUserManage), r.Roles.GetPermissions)

	protected.Get("/history", need(model.PermHistoryView), r.Reports.GetHistory)
	protected.Get("/dashboard", need(model.PermReportView), r.Reports.GetDashboard)
	protected.Get("/reports/inventory", need(model.PermReportView), r.Reports.GetInventoryReport)
	protected.Get("/reports/sales", need(model.PermReportView), r.Reports.GetSalesReport)

	// WebSocket Route. Browsers cannot set headers on the upgrade, so the
	// session token travels as ?token=.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.SendStatus(fiber.StatusUpgradeRequired)
		}
		if _, _, err := r.Sessions.ValidateBearer(c.UserContext(), c.Query("token")); err != nil {
			return respondError(c, err)
		}
		return c.Next()
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		if !r.Hub.Add(c) {
			return
		}
		defer r.Hub.Remove(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				slog.Debug("ws client gone", "err", err)
				break
			}
		}
	}))
}
