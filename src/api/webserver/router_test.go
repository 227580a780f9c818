package webserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Gunhee-b/community-web-sub001/src/api/config"
	"github.com/Gunhee-b/community-web-sub001/src/api/data"
	"github.com/Gunhee-b/community-web-sub001/src/api/types"
)

// newAPIRouter builds the full route table over a seeded database. The redis
// client points nowhere; publish failures degrade to the polling path.
func newAPIRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{JWTSecret: string(testSecret)}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })

	r := gin.New()
	attachRoutes(r, cfg, db, rdb, nil, nil)
	return r
}

func seedMeetingMember(t *testing.T, db *gorm.DB, meetingID, userID uint64) {
	t.Helper()
	require.NoError(t, db.Create(&types.User{ID: userID, Email: "m@test.kr", PasswordHash: "x"}).Error)
	require.NoError(t, db.Create(&types.Profile{UserID: userID, Nickname: "민수"}).Error)
	require.NoError(t, db.Create(&types.Meeting{ID: meetingID, HostID: userID, Title: "모임", MeetAt: time.Now()}).Error)
	require.NoError(t, db.Create(&types.MeetingParticipant{MeetingID: meetingID, UserID: userID, Role: "host", JoinedAt: time.Now()}).Error)
}

func authedRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	token, err := issueJWT(1, testSecret)
	require.NoError(t, err)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// A typing burst must not eat into the write budget: keystrokes refresh the
// marker far more often than 30 times a minute.
func TestTypingBurstDoesNotStarveMessageSends(t *testing.T) {
	db := newTestDB(t)
	seedMeetingMember(t, db, 1, 1)

	require.NoError(t, db.Create(&types.Setting{Name: "write_rate_per_minute", Value: "2"}).Error)
	require.NoError(t, data.LoadSettings(db))
	t.Cleanup(func() { require.NoError(t, data.LoadSettings(newTestDB(t))) })

	r := newAPIRouter(t, db)

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, authedRequest(t, http.MethodPut, "/v1/meetings/1/typing", ""))
		require.Equal(t, http.StatusNoContent, w.Code, "keystroke %d", i)
	}

	// The budget of 2 writes is still untouched.
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/v1/meetings/1/chats", `{"message":"안녕하세요"}`))
		require.Equal(t, http.StatusCreated, w.Code, "send %d", i)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/v1/meetings/1/chats", `{"message":"셋째"}`))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

// The 2000-char bound holds for the stored text: entity escaping during
// sanitizing can only push a message over it, never under.
func TestChatMessageLengthCheckedAfterSanitize(t *testing.T) {
	db := newTestDB(t)
	seedMeetingMember(t, db, 1, 1)
	r := newAPIRouter(t, db)

	// 600 ampersands escape to 3000 chars; raw length is well under the bound.
	long := strings.Repeat("&", 600)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/v1/meetings/1/chats", `{"message":"`+long+`"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "2000자")

	ok := strings.Repeat("가", 2000)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/v1/meetings/1/chats", `{"message":"`+ok+`"}`))
	assert.Equal(t, http.StatusCreated, w.Code)

	var chat types.MeetingChat
	require.NoError(t, db.First(&chat).Error)
	assert.Equal(t, ok, chat.Message)
}
