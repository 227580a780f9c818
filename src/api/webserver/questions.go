package webserver

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gunhee-b/community-web-sub001/src/api/storage"
	"github.com/Gunhee-b/community-web-sub001/src/api/types"
)

const maxAnswerImages = 2

type Questions struct {
	db        *gorm.DB
	uploader  *storage.Uploader
	sanitizer *bluemonday.Policy
}

func NewQuestions(db *gorm.DB, up *storage.Uploader) Questions {
	return Questions{db: db, uploader: up, sanitizer: newBodySanitizer()}
}

// newBodySanitizer allows only basic markdown formatting in user content.
func newBodySanitizer() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AllowElements("p", "br", "strong", "em", "code", "pre", "blockquote")
	p.AllowElements("ul", "ol", "li")
	p.AllowAttrs("href").OnElements("a")
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoFollowOnLinks(true)
	return p
}

func (q Questions) Today(c *gin.Context) {
	var question types.DailyQuestion
	if err := q.db.First(&question, "active = ?", true).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "오늘의 질문이 없습니다"})
		return
	}

	var answerCount, checkCount int64
	q.db.Model(&types.QuestionAnswer{}).Where("question_id = ?", question.ID).Count(&answerCount)
	q.db.Model(&types.QuestionCheck{}).Where("question_id = ?", question.ID).Count(&checkCount)

	c.JSON(http.StatusOK, gin.H{
		"id":          question.ID,
		"content":     question.Content,
		"scheduledOn": question.ScheduledOn,
		"answerCount": answerCount,
		"checkCount":  checkCount,
	})
}

func (q Questions) ListAnswers(c *gin.Context) {
	questionID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	type answerRow struct {
		types.QuestionAnswer
		Nickname string
	}
	var rows []answerRow
	q.db.Table("question_answers").
		Select("question_answers.*, profiles.nickname").
		Joins("LEFT JOIN profiles ON profiles.user_id = question_answers.author_id").
		Where("question_answers.question_id = ?", questionID).
		Order("question_answers.created_at asc").
		Scan(&rows)

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		imageURLs := []string{}
		if row.ImageURL1 != "" {
			imageURLs = append(imageURLs, row.ImageURL1)
		}
		if row.ImageURL2 != "" {
			imageURLs = append(imageURLs, row.ImageURL2)
		}
		out = append(out, gin.H{
			"id":        row.ID,
			"authorId":  row.AuthorID,
			"author":    row.Nickname,
			"body":      row.Body,
			"imageUrls": imageURLs,
			"createdAt": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"answers": out})
}

// CreateAnswer accepts a multipart form: "body" text plus up to two "images"
// files. Any image upload failure aborts the whole submission; there is no
// text-only fallback.
func (q Questions) CreateAnswer(c *gin.Context) {
	questionID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	var question types.DailyQuestion
	if err := q.db.First(&question, "id = ?", questionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "질문을 찾을 수 없습니다"})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	body := ""
	if v := form.Value["body"]; len(v) > 0 {
		body = q.sanitizer.Sanitize(v[0])
	}
	if !utf8.ValidString(body) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid characters in input"})
		return
	}
	if n := utf8.RuneCountInString(body); n < 1 || n > 2000 {
		c.JSON(http.StatusBadRequest, gin.H{"err": "답변은 1자 이상 2000자 이하여야 합니다"})
		return
	}

	images := form.File["images"]
	if len(images) > maxAnswerImages {
		c.JSON(http.StatusBadRequest, gin.H{"err": "이미지는 최대 2장까지 첨부할 수 있습니다"})
		return
	}

	var urls []string
	for _, fh := range images {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
			return
		}
		blob, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
			return
		}

		key := storage.AnswerImageKey(questionID, fh.Filename)
		url, err := q.uploader.Upload(c, key, fh.Header.Get("Content-Type"), blob)
		if err != nil {
			log.Printf("questions: image upload failed for question %d: %v", questionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"err": "이미지 업로드에 실패했습니다"})
			return
		}
		urls = append(urls, url)
	}

	answer := types.QuestionAnswer{
		QuestionID: questionID,
		AuthorID:   currentUser(c),
		Body:       body,
	}
	if len(urls) > 0 {
		answer.ImageURL1 = urls[0]
	}
	if len(urls) > 1 {
		answer.ImageURL2 = urls[1]
	}
	if err := q.db.Create(&answer).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": answer.ID})
}

func (q Questions) ListComments(c *gin.Context) {
	answerID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	type commentRow struct {
		types.AnswerComment
		Nickname string
	}
	var rows []commentRow
	q.db.Table("answer_comments").
		Select("answer_comments.*, profiles.nickname").
		Joins("LEFT JOIN profiles ON profiles.user_id = answer_comments.author_id").
		Where("answer_comments.answer_id = ?", answerID).
		Order("answer_comments.created_at asc").
		Scan(&rows)

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":        row.ID,
			"authorId":  row.AuthorID,
			"author":    row.Nickname,
			"body":      row.Body,
			"createdAt": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"comments": out})
}

func (q Questions) CreateComment(c *gin.Context) {
	answerID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	var req struct {
		Body string `json:"body" binding:"required,min=1,max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	var answer types.QuestionAnswer
	if err := q.db.First(&answer, "id = ?", answerID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "답변을 찾을 수 없습니다"})
		return
	}

	comment := types.AnswerComment{
		AnswerID: answerID,
		AuthorID: currentUser(c),
		Body:     q.sanitizer.Sanitize(req.Body),
	}
	if err := q.db.Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	// Comment notifications go straight to the answer's author.
	if answer.AuthorID != currentUser(c) {
		_ = q.db.Create(&types.Notification{
			UserID: answer.AuthorID,
			Type:   "comment",
			Title:  "새 댓글이 달렸습니다",
			Body:   comment.Body,
		}).Error
	}

	c.JSON(http.StatusCreated, gin.H{"id": comment.ID})
}

func (q Questions) Check(c *gin.Context) {
	questionID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	check := types.QuestionCheck{QuestionID: questionID, UserID: currentUser(c)}
	if err := q.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&check).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.Status(http.StatusCreated)
}

func (q Questions) ListChecks(c *gin.Context) {
	questionID, _ := strconv.ParseUint(c.Param("id"), 10, 64)

	var checks []types.QuestionCheck
	q.db.Where("question_id = ?", questionID).Find(&checks)

	c.JSON(http.StatusOK, gin.H{"count": len(checks), "checks": checks})
}
