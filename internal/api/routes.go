package api

import (
	"net/http"

	"github.com/mehrbod2002/equitywatch/docs"
	"github.com/mehrbod2002/equitywatch/internal/auth"
	"github.com/mehrbod2002/equitywatch/internal/config"
	"github.com/mehrbod2002/equitywatch/internal/middleware"
	"github.com/mehrbod2002/equitywatch/internal/service"
	"github.com/mehrbod2002/equitywatch/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config, issuer *auth.Issuer, authService service.AuthService, agentService service.AgentService, accountService service.AccountService, alertService service.AlertService, dashboardService service.DashboardService, logService service.LogService, wsHandler *ws.WebSocketHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
	}))
	r.Use(middleware.RequestIDMiddleware(), middleware.LoggerMiddleware())

	authHandler := NewAuthHandler(authService, logService)
	agentHandler := NewAgentHandler(agentService, logService)
	accountHandler := NewAccountHandler(accountService, logService)
	alertHandler := NewAlertHandler(alertService, logService)
	dashboardHandler := NewDashboardHandler(dashboardService)
	logHandler := NewLogHandler(logService)

	docs.SwaggerInfo.BasePath = "/api/v1"
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	loginLimiter := middleware.RateLimitMiddleware(middleware.NewIPRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst))
	requireAuth := middleware.AuthMiddleware(issuer)

	v1 := r.Group("/api/v1")
	if cfg.RequestTimeout > 0 {
		v1.Use(middleware.TimeoutMiddleware(cfg.RequestTimeout))
	}
	{
		v1.POST("/login", loginLimiter, authHandler.Login)
		v1.POST("/mobile/login", loginLimiter, authHandler.MobileLogin)

		user := v1.Group("/").Use(requireAuth)
		{
			user.POST("/mobile/logout", authHandler.MobileLogout)
			user.POST("/createAdmin", authHandler.CreateAdmin)
			user.GET("/getAllAdmins", authHandler.GetAllAdmins)
			user.PUT("/changePassword", authHandler.ChangePassword)
			user.PUT("/updateDeviceId/:id", authHandler.RegisterDevice)

			user.GET("/getCounts", dashboardHandler.GetCounts)

			user.POST("/createAgent", agentHandler.CreateAgent)
			user.PUT("/updateAgent/:id", agentHandler.UpdateAgent)
			user.PUT("/updateAgentPassword/:id", agentHandler.UpdateAgentPassword)
			user.GET("/getAgents", agentHandler.GetAgents)
			user.DELETE("/deleteAgent/:id", agentHandler.DeleteAgent)

			user.POST("/createAccount", accountHandler.CreateAccount)
			user.PUT("/updateAccount/:id", accountHandler.UpdateAccount)
			user.PUT("/updateAccountPassword/:id", accountHandler.UpdateAccountPassword)
			user.DELETE("/deleteAccount/:userId", accountHandler.DeleteAccount)
			user.GET("/getAccounts", accountHandler.GetAccounts)
			user.PUT("/toggleMobileAlerts", accountHandler.ToggleMobileAlerts)
			user.GET("/mobile-alert-accounts", accountHandler.GetMobileAlertAccounts)
			user.GET("/mobile-alarm-logs", accountHandler.GetMobileAlarmLogs)

			user.GET("/account-alert", alertHandler.GetAccountAlert)
			user.GET("/trade-account-info", alertHandler.GetTradeAccountInfo)
			user.PUT("/updateAlert/:id", alertHandler.UpdateAlert)

			user.GET("/logs", logHandler.GetLogs)
		}
	}

	r.GET("/ws", wsHandler.HandleConnection)
}
