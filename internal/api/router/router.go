package router

import (
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/newsmeme/config"
	_ "github.com/d60-Lab/newsmeme/docs"
	"github.com/d60-Lab/newsmeme/internal/api/handler"
	"github.com/d60-Lab/newsmeme/internal/api/middleware"
	"github.com/d60-Lab/newsmeme/internal/auth"
)

// Setup 注册全部路由
func Setup(cfg *config.Config, h *handler.Handler, tokens *auth.TokenManager, users middleware.Identifier) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	voteLimit := middleware.NewIPLimiter(cfg.RateLimit.VotesPerSecond, cfg.RateLimit.Burst).Middleware()

	v1 := r.Group("/api/v1", middleware.Auth(tokens, users))
	{
		account := v1.Group("/account")
		account.POST("/signup", h.Signup)
		account.POST("/login", h.Login)
		account.PUT("", h.EditAccount)
		account.DELETE("", h.DeleteAccount)
		account.POST("/password", h.ChangePassword)
		account.POST("/recover", h.RecoverPassword)
		account.POST("/reset", h.ResetPassword)

		relations := v1.Group("/relations/:user_id")
		relations.POST("/follow", h.Follow)
		relations.POST("/unfollow", h.Unfollow)
		relations.GET("/following", h.ListFollowing)
		relations.GET("/fans", h.ListFans)
		relations.GET("/friends", h.ListFriends)

		posts := v1.Group("/posts")
		posts.GET("", h.ListPosts)
		posts.POST("", h.SubmitPost)
		posts.GET("/:id", h.GetPost)
		posts.PUT("/:id", h.EditPost)
		posts.DELETE("/:id", h.DeletePost)
		posts.POST("/:id/upvote", voteLimit, h.UpvotePost)
		posts.POST("/:id/downvote", voteLimit, h.DownvotePost)
		posts.GET("/:id/comments", h.ListComments)
		posts.POST("/:id/comments", h.AddComment)
		v1.GET("/search", h.Search)

		comments := v1.Group("/comments")
		comments.PUT("/:id", h.EditComment)
		comments.DELETE("/:id", h.DeleteComment)
		comments.POST("/:id/upvote", voteLimit, h.UpvoteComment)
		comments.POST("/:id/downvote", voteLimit, h.DownvoteComment)
		comments.POST("/:id/abuse", h.ReportAbuse)

		tags := v1.Group("/tags")
		tags.GET("", h.TagCloud)
		tags.GET("/top", h.TopTags)
		tags.GET("/:slug", h.GetTag)

		// :user 在主页与评论列表中为用户名，在发消息时为用户 ID
		users := v1.Group("/users/:user")
		users.GET("", h.Profile)
		users.GET("/comments", h.UserComments)
		users.POST("/message", h.SendMessage)
	}

	public := r.Group("/api")
	{
		public.GET("/post/:id", h.PublicPost)
		public.GET("/search", h.PublicSearch)
		public.GET("/user/:username", h.PublicUserPosts)
	}

	return r
}
