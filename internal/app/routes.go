package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"

	"github.com/duthaho/trello-clone-sub000/internal/auth"
	"github.com/duthaho/trello-clone-sub000/internal/config"
	"github.com/duthaho/trello-clone-sub000/internal/handlers"
	"github.com/duthaho/trello-clone-sub000/internal/metrics"
)

func (a *App) setupRoutes(s services) {
	r := a.router

	health := handlers.NewHealthHandler(handlers.ServiceInfo{
		Name:    a.cfg.App.Name,
		Version: a.cfg.App.Version,
		Env:     a.cfg.App.Env,
	}, map[string]handlers.Check{
		"database": func(ctx context.Context) error { return a.db.Ping(ctx) },
		"cache":    func(ctx context.Context) error { return a.redis.Ping(ctx).Err() },
	})

	r.GET("/", rootHandler(a.cfg))
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/version", versionHandler(a.cfg))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if a.cfg.IsDevelopment() {
		r.GET("/swagger-doc.json", swaggerDocHandler())
		r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
		r.GET("/swagger/*any", ginSwagger.WrapHandler(
			swaggerFiles.Handler,
			ginSwagger.URL("/swagger-doc.json"),
			ginSwagger.DefaultModelsExpandDepth(-1),
			ginSwagger.PersistAuthorization(true),
		))
	}

	api := r.Group("/api/v1")
	registerAuthRoutes(api, handlers.NewAuthHandler(s.users))

	protected := api.Group("", auth.RequireAuth(s.tokens))
	registerUserRoutes(protected, handlers.NewUserHandler(s.users))
	registerProjectRoutes(protected, handlers.NewProjectHandler(s.projects, s.audit))
	registerTaskRoutes(protected, handlers.NewTaskHandler(s.tasks))
	registerCommentRoutes(protected, handlers.NewCommentHandler(s.comments))
	registerNotificationRoutes(protected, handlers.NewNotificationHandler(s.notifications))
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := gin.H{
			"message": "Welcome to " + cfg.App.Name + " API",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"health":  "/health",
			"ready":   "/ready",
			"metrics": "/metrics",
			"api":     "/api/v1",
		}
		if cfg.IsDevelopment() {
			info["docs"] = "/swagger/index.html"
			info["spec"] = "/swagger-doc.json"
		}
		c.JSON(http.StatusOK, info)
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal", "message": "swagger doc unavailable"}})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerAuthRoutes(api *gin.RouterGroup, h *handlers.AuthHandler) {
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.Refresh)
	api.POST("/auth/logout", h.Logout)
}

func registerUserRoutes(api *gin.RouterGroup, h *handlers.UserHandler) {
	api.GET("/users/me", h.Me)
	api.PATCH("/users/me", h.UpdateMe)
	api.POST("/users/me/password", h.ChangePassword)
}

func registerProjectRoutes(api *gin.RouterGroup, h *handlers.ProjectHandler) {
	api.GET("/projects", h.List)
	api.POST("/projects", h.Create)
	api.GET("/projects/:id", h.Get)
	api.PATCH("/projects/:id", h.Update)
	api.DELETE("/projects/:id", h.Delete)
	api.GET("/projects/:id/members", h.ListMembers)
	api.POST("/projects/:id/members", h.AddMember)
	api.PATCH("/projects/:id/members/:userID", h.ChangeRole)
	api.DELETE("/projects/:id/members/:userID", h.RemoveMember)
	api.GET("/projects/:id/audit", h.Audit)
}

func registerTaskRoutes(api *gin.RouterGroup, h *handlers.TaskHandler) {
	api.GET("/projects/:id/tasks", h.List)
	api.POST("/projects/:id/tasks", h.Create)
	api.GET("/projects/:id/tasks/search", h.Search)
	api.GET("/tasks/overdue", h.Overdue)
	api.GET("/tasks/:id", h.Get)
	api.PATCH("/tasks/:id", h.Update)
	api.DELETE("/tasks/:id", h.Delete)
	api.POST("/tasks/:id/move", h.Move)
	api.POST("/tasks/:id/assign", h.Assign)
	api.POST("/tasks/:id/complete", h.Complete)
}

func registerCommentRoutes(api *gin.RouterGroup, h *handlers.CommentHandler) {
	api.GET("/tasks/:id/comments", h.List)
	api.POST("/tasks/:id/comments", h.Add)
	api.PATCH("/comments/:id", h.Edit)
	api.DELETE("/comments/:id", h.Delete)
}

func registerNotificationRoutes(api *gin.RouterGroup, h *handlers.NotificationHandler) {
	api.GET("/notifications", h.List)
	api.GET("/notifications/unread-count", h.UnreadCount)
	api.POST("/notifications/read-all", h.MarkAllRead)
	api.POST("/notifications/:id/read", h.MarkRead)
}
