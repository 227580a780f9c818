package webserver

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Gunhee-b/community-web-sub001/src/api/data"
	"github.com/Gunhee-b/community-web-sub001/src/api/types"
)

type Auth struct {
	db        *gorm.DB
	rdb       *redis.Client
	jwtSecret []byte
}

func NewAuth(db *gorm.DB, rdb *redis.Client, secret []byte) Auth {
	return Auth{db: db, rdb: rdb, jwtSecret: secret}
}

func (a Auth) Register(c *gin.Context) {
	var req struct {
		Email          string `json:"email" binding:"required,email,max=256"`
		Password       string `json:"password" binding:"required,min=8,max=72"`
		Nickname       string `json:"nickname" binding:"required,min=2,max=64"`
		InvitationCode string `json:"invitationCode" binding:"required,max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	var user types.User
	err = a.db.Transaction(func(tx *gorm.DB) error {
		var code types.InvitationCode
		if err := tx.First(&code, "code = ?", req.InvitationCode).Error; err != nil {
			return errInvalidInvite
		}
		if code.UsedBy != nil {
			return errInvalidInvite
		}
		if code.ExpiresAt != nil && code.ExpiresAt.Before(time.Now()) {
			return errInvalidInvite
		}

		user = types.User{Email: req.Email, PasswordHash: string(hash)}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if err := tx.Create(&types.Profile{UserID: user.ID, Nickname: req.Nickname}).Error; err != nil {
			return err
		}

		now := time.Now()
		return tx.Model(&code).Updates(map[string]any{"used_by": user.ID, "used_at": now}).Error
	})
	if err == errInvalidInvite {
		c.JSON(http.StatusForbidden, gin.H{"err": "유효하지 않은 초대 코드입니다"})
		return
	}
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"err": err.Error()})
		return
	}

	log.Printf("auth: registered user %d (%s)", user.ID, req.Email)
	a.respondWithTokens(c, user.ID)
}

func (a Auth) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	var user types.User
	if err := a.db.First(&user, "email = ?", req.Email).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "이메일 또는 비밀번호가 올바르지 않습니다"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "이메일 또는 비밀번호가 올바르지 않습니다"})
		return
	}

	a.respondWithTokens(c, user.ID)
}

func (a Auth) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	userID, err := data.GetAndDelRefreshToken(c, a.rdb, req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "refresh token expired or not found"})
		return
	}

	a.respondWithTokens(c, userID)
}

func (a Auth) respondWithTokens(c *gin.Context, userID uint64) {
	token, err := issueJWT(userID, a.jwtSecret)
	if err != nil {
		log.Printf("auth: failed to issue JWT for %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	refresh := uuid.NewString()
	if err := data.SetRefreshToken(c, a.rdb, refresh, userID); err != nil {
		log.Printf("auth: failed to store refresh token for %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "refreshToken": refresh})
}
