package router

import (
	"log/slog"

	"newsboard/internal/handlers"
	"newsboard/internal/middleware"
	"newsboard/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const CookieName = "newsboard_session"

// New builds the engine with the session cookie, the API routes, the stream
// and the metrics endpoint.
func New(reg *services.Registry, secret string, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 86400 * 30, HttpOnly: true})
	r.Use(sessions.Sessions(CookieName, store))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterRoutes(r, reg, logger)
	return r
}

func RegisterRoutes(r *gin.Engine, reg *services.Registry, logger *slog.Logger) {
	authHandler := handlers.NewAuthHandler()
	storyHandler := handlers.NewStoryHandler(services.NewPreviewer(nil))
	voteHandler := handlers.NewVoteHandler()
	userHandler := handlers.NewUserHandler()
	streamHandler := handlers.NewStreamHandler(logger)

	api := r.Group("/api")
	api.Use(middleware.LoadSession(reg))
	{
		api.POST("/register", authHandler.Register) // 注册并登录
		api.POST("/login", authHandler.Login)       // 登录
		api.POST("/logout", authHandler.Logout)     // 退出登录
		api.GET("/me", userHandler.Me)              // 当前用户

		api.POST("/posts/listen", storyHandler.Listen) // 订阅帖子列表
		api.POST("/posts/stop", storyHandler.Stop)     // 取消订阅
		api.POST("/posts/sort", storyHandler.Sort)     // 切换排序
		api.GET("/posts/state", storyHandler.State)    // 当前列表状态

		api.POST("/posts/:id/listen", storyHandler.ListenPost) // 订阅单个帖子
		api.POST("/posts/:id/stop", storyHandler.StopPost)
		api.GET("/post/state", storyHandler.PostState)

		api.POST("/users/:uid/listen", userHandler.Listen) // 订阅用户主页
		api.POST("/users/:uid/stop", userHandler.Stop)
		api.GET("/profile/state", userHandler.State)

		api.POST("/overlay", storyHandler.Overlay)
		api.GET("/preview", storyHandler.Preview) // 链接预览
	}

	// 受保护路由
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/posts", storyHandler.Create)
		authorized.DELETE("/posts/:id", storyHandler.Delete)
		authorized.POST("/posts/:id/comments", storyHandler.CreateComment)
		authorized.DELETE("/comments/:id", storyHandler.DeleteComment)

		authorized.POST("/posts/:id/upvote", voteHandler.UpvotePost)
		authorized.POST("/posts/:id/downvote", voteHandler.DownvotePost)
		authorized.POST("/comments/:id/upvote", voteHandler.UpvoteComment)
		authorized.POST("/comments/:id/downvote", voteHandler.DownvoteComment)
	}

	r.GET("/ws", middleware.LoadSession(reg), streamHandler.Stream)
}
