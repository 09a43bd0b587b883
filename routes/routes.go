package routes

import (
	"dm-chat/auth"
	"dm-chat/controllers"
	"dm-chat/middleware"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Messages     *controllers.MessageController
	Users        *controllers.UserController
	WS           *controllers.WSController
	Tokens       *auth.TokenManager
	UploadRoot   string
	AllowOrigins []string
}

// Router assembles the HTTP surface: auth glue, the synchronous chat
// API, the websocket endpoint and the public upload mount.
func Router(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Static("/uploads", deps.UploadRoot)

	r.POST("/register", deps.Users.Register)
	r.POST("/login", deps.Users.Login)
	r.POST("/refresh", deps.Users.Refresh)
	r.GET("/users", middleware.Auth(deps.Tokens), deps.Users.List)

	chat := r.Group("/chat", middleware.Auth(deps.Tokens))
	{
		chat.POST("/messages", deps.Messages.Create)
		chat.PUT("/messages/:id", deps.Messages.Update)
		chat.DELETE("/messages/:id", deps.Messages.Delete)
		// :id is the other participant here; gin requires one wildcard
		// name per position.
		chat.GET("/messages/:id", deps.Messages.History)
	}

	// The websocket handshake carries its token as a query parameter,
	// so it bypasses the header middleware and validates inside.
	r.GET("/ws", deps.WS.Handle)

	return r
}
