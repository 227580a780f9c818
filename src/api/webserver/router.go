package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Gunhee-b/community-web-sub001/src/api/config"
	"github.com/Gunhee-b/community-web-sub001/src/api/data"
	"github.com/Gunhee-b/community-web-sub001/src/api/realtime"
	"github.com/Gunhee-b/community-web-sub001/src/api/storage"
)

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client, hub *realtime.Hub, up *storage.Uploader) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8081", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	secret := []byte(cfg.JWTSecret)
	authH := NewAuth(db, rdb, secret)
	profileH := NewProfiles(db)
	questionH := NewQuestions(db, up)
	meetingH := NewMeetings(db)
	chatH := NewChats(db, rdb, hub, up)
	voteH := NewVotes(db)
	noticeH := NewNotifications(db)

	writeLimiter := NewRateLimiter(data.GetSettingInt("write_rate_per_minute", 30), time.Minute)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/register", authH.Register)
		v1.POST("/auth/login", authH.Login)
		v1.POST("/auth/refresh", authH.Refresh)

		secured := v1.Group("")
		secured.Use(JWTMiddleware(secret))
		{
			secured.GET("/profile", profileH.Get)
			secured.PUT("/profile", profileH.Update)
			secured.GET("/profiles/:id", profileH.GetByID)

			secured.GET("/questions/today", questionH.Today)
			secured.GET("/questions/:id/answers", questionH.ListAnswers)
			secured.GET("/questions/:id/checks", questionH.ListChecks)
			secured.GET("/answers/:id/comments", questionH.ListComments)

			secured.GET("/meetings", meetingH.List)
			secured.GET("/meetings/:id", meetingH.Get)
			secured.GET("/meetings/:id/chats", chatH.List)
			secured.GET("/meetings/:id/chats/receipts", chatH.ListReceipts)
			secured.GET("/meetings/:id/chats/ws", chatH.Subscribe)
			secured.GET("/meetings/:id/typing", chatH.ListTyping)

			// Typing markers refresh on every keystroke, so they sit outside
			// the write budget: a typing burst must not starve message sends.
			secured.PUT("/meetings/:id/typing", chatH.SetTyping)
			secured.DELETE("/meetings/:id/typing", chatH.ClearTyping)

			secured.GET("/votes/summary", voteH.Summary)
			secured.GET("/notifications", noticeH.List)
			secured.POST("/notifications/:id/read", noticeH.MarkRead)

			writes := secured.Group("")
			writes.Use(RateLimitMiddleware(writeLimiter))
			{
				writes.POST("/questions/:id/answers", questionH.CreateAnswer)
				writes.POST("/questions/:id/check", questionH.Check)
				writes.POST("/answers/:id/comments", questionH.CreateComment)

				writes.POST("/meetings", meetingH.Create)
				writes.POST("/meetings/:id/join", meetingH.Join)
				writes.POST("/meetings/:id/leave", meetingH.Leave)

				writes.POST("/meetings/:id/chats", chatH.Create)
				writes.POST("/meetings/:id/chats/image", chatH.UploadImage)
				writes.POST("/meetings/:id/chats/read", chatH.MarkRead)

				writes.POST("/nominations", voteH.Nominate)
				writes.POST("/votes", voteH.Cast)
			}
		}
	}
}
