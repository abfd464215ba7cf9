package router

import (
	"time"

	"broadcast/internal/handlers"
	"broadcast/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Posts    *handlers.PostHandler
	Comments *handlers.CommentHandler
	Statuses *handlers.StatusHandler
	Users    *handlers.UserHandler
	Realtime *handlers.RealtimeHandler
}

// RegisterRoutes mounts the JSON API under /api and the websocket under
// /ws. Only /api gets the request timeout.
func RegisterRoutes(r *gin.Engine, h Handlers, profiles middleware.ProfileResolver, timeout time.Duration) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	// 实时推送 (Realtime)
	r.GET("/ws", h.Realtime.Serve)            // websocket 升级
	r.GET("/ws/rooms/:room", h.Realtime.Room) // 房间连接数

	api := r.Group("/api")
	api.Use(middleware.Timeout(timeout), middleware.LoadUser(profiles))

	posts := api.Group("/posts")
	{
		posts.GET("", h.Posts.List)                 // 按地理范围获取帖子
		posts.POST("", h.Posts.Create)              // 发布帖子
		posts.GET("/:id", h.Posts.Get)              // 帖子详情
		posts.PATCH("/:id", h.Posts.Update)         // 编辑帖子内容
		posts.DELETE("/:id", h.Posts.Delete)        // 删除帖子
		posts.POST("/:id/like", h.Posts.Like)       // 点赞/取消点赞
		posts.POST("/:id/recast", h.Posts.Recast)   // 转发或引用转发
		posts.POST("/:id/retweet", h.Posts.Retweet) // 旧版转发（复制帖子）
	}

	comments := api.Group("/comments")
	{
		comments.POST("", h.Comments.Create)                            // 发表评论
		comments.GET("/:id", h.Comments.List)                           // 帖子的评论列表，id 为帖子 id
		comments.DELETE("/:id", h.Comments.Delete)                      // 删除评论
		comments.POST("/:id/like", h.Comments.Like)                     // 评论点赞
		comments.POST("/:id/reply", h.Comments.Reply)                   // 回复评论
		comments.POST("/:id/replies/:reply/like", h.Comments.LikeReply) // 回复点赞，reply 为 id 或序号
	}

	statuses := api.Group("/statuses")
	{
		statuses.GET("", h.Statuses.List)
		statuses.POST("", h.Statuses.Create)
		statuses.POST("/:id/like", h.Statuses.Like)
		statuses.DELETE("/:id", h.Statuses.Delete)
	}

	users := api.Group("/users")
	{
		users.POST("/create-user", h.Users.Create)
		users.POST("/update-location", h.Users.UpdateLocation)
		users.POST("/update-image", h.Users.UpdateImage)
		users.GET("/:clerkId", h.Users.Get)
		users.GET("/:clerkId/scope", h.Users.Scope)
	}

	api.POST("/verify", h.Users.RequestVerification) // 申请认证
	api.GET("/verify/:token", h.Users.Verify)        // 管理员确认认证
}
