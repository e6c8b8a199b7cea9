package server

import (
	"strings"

	"restoran-api/internal/admin"
	"restoran-api/internal/audit"
	"restoran-api/internal/auth"
	"restoran-api/internal/config"
	"restoran-api/internal/httpx"
	"restoran-api/internal/models"
	"restoran-api/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// New builds the fiber app with every route wired to db.
func New(cfg *config.Config, db *gorm.DB) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          httpx.ErrorHandler(cfg.Debug),
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(corsOrigins, ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
	}))

	app.Get("/healthz", healthHandler(db))

	users := store.NewUserStore(db)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	authHandler := auth.NewHandler(users, tokens, cfg.CookieSecure)
	adminHandler := admin.NewHandler(db)

	authenticate := auth.Authenticate(tokens, users)
	superadmin := auth.RequireRole(models.RoleSuperAdmin)
	staffAdmins := auth.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)

	api := app.Group("/api")

	// Public
	api.Post("/auth/register", authHandler.RegisterHandler())
	api.Post("/auth/login", authHandler.LoginHandler())
	api.Post("/auth/logout", authHandler.LogoutHandler())
	api.Get("/branches/nearby", adminHandler.NearbyBranchesHandler())

	// Any authenticated user
	api.Get("/auth/profile", authenticate, authHandler.GetProfileHandler())
	api.Put("/auth/profile", authenticate, authHandler.UpdateProfileHandler())
	api.Put("/auth/password", authenticate, authHandler.UpdatePasswordHandler())

	// Branches
	api.Post("/branches", authenticate, superadmin, adminHandler.CreateBranchHandler())
	api.Get("/branches", authenticate, superadmin, adminHandler.ListBranchesHandler())
	api.Get("/branches/:id", authenticate, staffAdmins, adminHandler.GetBranchHandler())
	api.Put("/branches/:id", authenticate, superadmin, adminHandler.UpdateBranchHandler())
	api.Delete("/branches/:id", authenticate, superadmin, adminHandler.DeleteBranchHandler())
	api.Get("/branches/:id/users", authenticate, staffAdmins, adminHandler.ListBranchUsersHandler())

	// Users
	api.Get("/users", authenticate, staffAdmins, adminHandler.ListUsersHandler())
	api.Get("/users/:id", authenticate, staffAdmins, adminHandler.GetUserHandler())
	api.Delete("/users/:id", authenticate, superadmin, adminHandler.DeleteUserHandler())
	api.Patch("/users/:id/role", authenticate, staffAdmins, adminHandler.UpdateUserRoleHandler())
	api.Patch("/users/:id/assign-branch", authenticate, staffAdmins, adminHandler.AssignBranchHandler())
	api.Patch("/users/:id/remove-branch", authenticate, staffAdmins, adminHandler.RemoveBranchHandler())
	api.Patch("/users/:id/toggle-status", authenticate, staffAdmins, adminHandler.ToggleUserStatusHandler())

	// Audit logs
	api.Get("/audit-logs", authenticate, superadmin, audit.ListAuditLogsHandler(db))

	return app
}

func healthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
		}
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	}
}
