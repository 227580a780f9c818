package webserver

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Gunhee-b/community-web-sub001/src/api/config"
	"github.com/Gunhee-b/community-web-sub001/src/api/realtime"
	"github.com/Gunhee-b/community-web-sub001/src/api/storage"
)

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client, hub *realtime.Hub, up *storage.Uploader) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, db, rdb, hub, up)
	return g
}
