package webserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
)

func newVotesRouter(db *gorm.DB, uid uint64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	voteH := NewVotes(db)

	r := gin.New()
	r.Use(asUser(uid))
	r.POST("/nominations", voteH.Nominate)
	r.POST("/votes", voteH.Cast)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedOpenPeriod(t *testing.T, db *gorm.DB) types.VotingPeriod {
	t.Helper()
	period := types.VotingPeriod{
		OpensAt:  time.Now().Add(-time.Hour),
		ClosesAt: time.Now().Add(time.Hour),
		Status:   "open",
	}
	require.NoError(t, db.Create(&period).Error)
	return period
}

func TestCastOutsidePeriodFailsInEnvelope(t *testing.T) {
	db := newTestDB(t)
	r := newVotesRouter(db, 1)

	// A closed period exists but nothing is open.
	require.NoError(t, db.Create(&types.VotingPeriod{
		OpensAt:  time.Now().Add(-48 * time.Hour),
		ClosesAt: time.Now().Add(-24 * time.Hour),
		Status:   "closed",
	}).Error)

	w := postJSON(t, r, "/votes", `{"nominationId":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"투표 기간이 아닙니다"}`, w.Body.String())
}

func TestNominateOutsidePeriodFailsInEnvelope(t *testing.T) {
	db := newTestDB(t)
	r := newVotesRouter(db, 1)

	w := postJSON(t, r, "/nominations", `{"answerId":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"투표 기간이 아닙니다"}`, w.Body.String())
}

func TestNominateAndCast(t *testing.T) {
	db := newTestDB(t)
	r := newVotesRouter(db, 1)

	seedOpenPeriod(t, db)
	require.NoError(t, db.Create(&types.QuestionAnswer{QuestionID: 1, AuthorID: 2, Body: "답변"}).Error)

	w := postJSON(t, r, "/nominations", `{"answerId":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)

	// Same answer cannot be nominated twice in one period.
	w = postJSON(t, r, "/nominations", `{"answerId":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "이미 추천된 답변입니다")

	w = postJSON(t, r, "/votes", `{"nominationId":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	var count int64
	db.Model(&types.Vote{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCastUnknownNomination(t *testing.T) {
	db := newTestDB(t)
	r := newVotesRouter(db, 1)
	seedOpenPeriod(t, db)

	w := postJSON(t, r, "/votes", `{"nominationId":99}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "후보를 찾을 수 없습니다")
}

func TestRecastReplacesVoteAtomically(t *testing.T) {
	db := newTestDB(t)
	r := newVotesRouter(db, 1)

	period := seedOpenPeriod(t, db)
	require.NoError(t, db.Create(&types.QuestionAnswer{QuestionID: 1, AuthorID: 2, Body: "첫번째"}).Error)
	require.NoError(t, db.Create(&types.QuestionAnswer{QuestionID: 1, AuthorID: 3, Body: "두번째"}).Error)
	nomA := types.PostNomination{PeriodID: period.ID, AnswerID: 1, NominatedBy: 2}
	nomB := types.PostNomination{PeriodID: period.ID, AnswerID: 2, NominatedBy: 3}
	require.NoError(t, db.Create(&nomA).Error)
	require.NoError(t, db.Create(&nomB).Error)

	w := postJSON(t, r, "/votes", `{"nominationId":1}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, r, "/votes", `{"nominationId":2}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	// Exactly one vote survives, pointing at the new nomination.
	var votes []types.Vote
	require.NoError(t, db.Find(&votes).Error)
	require.Len(t, votes, 1)
	assert.Equal(t, nomB.ID, votes[0].NominationID)
	assert.Equal(t, uint64(1), votes[0].VoterID)
}

func TestRecastFailureKeepsPreviousVote(t *testing.T) {
	db := newTestDB(t)
	r := newVotesRouter(db, 1)

	period := seedOpenPeriod(t, db)
	nom := types.PostNomination{PeriodID: period.ID, AnswerID: 1, NominatedBy: 2}
	require.NoError(t, db.Create(&nom).Error)

	w := postJSON(t, r, "/votes", `{"nominationId":1}`)
	assert.Equal(t, http.StatusOK, w.Code)

	// Let the delete go through but abort the re-insert; the delete must
	// roll back with it so the voter is never left without a vote.
	require.NoError(t, db.Exec(
		"CREATE TRIGGER block_vote_insert BEFORE INSERT ON votes BEGIN SELECT RAISE(ABORT, 'blocked'); END").Error)
	w = postJSON(t, r, "/votes", `{"nominationId":1}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NoError(t, db.Exec("DROP TRIGGER block_vote_insert").Error)

	var votes []types.Vote
	require.NoError(t, db.Find(&votes).Error)
	require.Len(t, votes, 1)
	assert.Equal(t, nom.ID, votes[0].NominationID)
}
