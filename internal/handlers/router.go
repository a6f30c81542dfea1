package handlers

import (
	"github.com/gin-gonic/gin"

	"campushub/internal/auth"
	"campushub/internal/logger"
	"campushub/internal/middleware"
	"campushub/internal/models"
	"campushub/internal/store"
)

const (
	AdminPrefix  = "/admin/api"
	PublicPrefix = "/api"
)

// TenantDeps are the services of one tenant.
type TenantDeps struct {
	Sessions *auth.SessionManager
	Gate     *auth.Gate
	OTP      *auth.OTPService
	Accounts store.AccountStore
}

type Deps struct {
	Admin    TenantDeps
	Public   TenantDeps
	Colleges store.CollegeStore
	Pingers  []store.Pinger
	Log      logger.Logger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recover(d.Log), middleware.RequestLogger(d.Log))

	r.GET("/healthz", Healthz(d.Log, d.Pingers...))

	admin := r.Group(AdminPrefix)
	registerAuthRoutes(admin, d.Admin, d.Log)
	{
		anyAdmin := middleware.AuthGuard(d.Admin.Gate, d.Log, models.RoleSuperAdmin, models.RoleUniAdmin)
		superOnly := middleware.AuthGuard(d.Admin.Gate, d.Log, models.RoleSuperAdmin)

		admin.GET("/me", anyAdmin, GetMe(d.Log))
		admin.PATCH("/me", anyAdmin, UpdateMe(d.Admin.Sessions, d.Log))

		admins := admin.Group("/admins", superOnly)
		admins.GET("", ListAdmins(d.Admin.Accounts, d.Log))
		admins.POST("", CreateAdmin(d.Admin.Sessions, d.Colleges, d.Log))
		admins.POST("/:id/terminate", TerminateAdmin(d.Admin.Sessions, d.Log))
		admins.DELETE("/:id", DeleteAdmin(d.Admin.Accounts, d.Colleges, d.Log))

		colleges := admin.Group("/colleges")
		colleges.GET("", anyAdmin, ListColleges(d.Colleges, d.Log))
		colleges.GET("/:id", anyAdmin, GetCollege(d.Colleges, d.Log))
		colleges.POST("", superOnly, CreateCollege(d.Colleges, d.Log))
		colleges.DELETE("/:id", superOnly, DeleteCollege(d.Colleges, d.Admin.Accounts, d.Log))
	}

	public := r.Group(PublicPrefix)
	registerAuthRoutes(public, d.Public, d.Log)
	{
		user := middleware.AuthGuard(d.Public.Gate, d.Log, models.RoleUser)

		public.POST("/auth/register", Register(d.Public.Sessions, d.Log))
		public.GET("/me", user, GetMe(d.Log))
		public.PATCH("/me", user, UpdateMe(d.Public.Sessions, d.Log))
		public.GET("/colleges", PublicColleges(d.Colleges, d.Log))
	}

	return r
}

// registerAuthRoutes mounts the session endpoints shared by both tenants under <prefix>/auth.
func registerAuthRoutes(g *gin.RouterGroup, t TenantDeps, log logger.Logger) {
	a := g.Group("/auth")
	a.POST("/login", Login(t.Sessions, log))
	a.POST("/refresh", Refresh(t.Sessions, log))
	a.POST("/logout", Logout(t.Sessions, log))
	a.POST("/logout-all", middleware.AuthGuard(t.Gate, log), LogoutAll(t.Sessions, log))
	a.POST("/send-otp", SendOTP(t.OTP, log))
	a.POST("/verify-otp", VerifyOTP(t.OTP, t.Sessions, log))
	a.POST("/reset-password", ResetPassword(t.OTP, t.Sessions, log))
}
