package main

import (
	"voiceagent-dashboard/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := r.Group("/v1/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", h.Me)

		customers := v1.Group("/customers")
		{
			customers.GET("", h.ListCustomers)
			customers.POST("", h.CreateCustomer)
			customers.GET("/:id", h.GetCustomer)
			customers.PUT("/:id", h.UpdateCustomer)
			customers.DELETE("/:id", h.DeleteCustomer)
		}

		notes := v1.Group("/notes")
		{
			notes.GET("", h.ListNotes)
			notes.POST("", h.CreateNote)
			notes.PATCH("/:id", h.UpdateNote)
			notes.DELETE("/:id", h.DeleteNote)
		}

		v1.POST("/sync/contacts", h.SyncContacts)

		calls := v1.Group("/calls")
		{
			calls.GET("", h.ListCalls)
			calls.GET("/:id", h.GetCall)
		}

		v1.GET("/assistants", h.ListAssistants)

		chats := v1.Group("/chats")
		{
			chats.GET("", h.ListChats)
			chats.GET("/:id", h.GetChat)
		}

		v1.GET("/analytics", h.Analytics)

		settings := v1.Group("/settings")
		{
			settings.GET("/api-keys", h.GetAPIKeys)
			settings.POST("/api-keys", h.SaveAPIKeys)
		}

		v1.POST("/summaries", h.Summarize)
	}
}
