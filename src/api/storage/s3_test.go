package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatImageKey(t *testing.T) {
	key := ChatImageKey(12, "Photo.JPG")
	assert.True(t, strings.HasPrefix(key, "meeting-chats/12/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	// Randomized names keep concurrent uploads of the same filename apart.
	assert.NotEqual(t, key, ChatImageKey(12, "Photo.JPG"))
}

func TestChatImageKeyNoExtension(t *testing.T) {
	key := ChatImageKey(3, "blob")
	assert.True(t, strings.HasPrefix(key, "meeting-chats/3/"))
	assert.False(t, strings.Contains(key[len("meeting-chats/3/"):], "."))
}

func TestAnswerImageKey(t *testing.T) {
	key := AnswerImageKey(7, "answer.png")
	assert.True(t, strings.HasPrefix(key, "question-answers/7/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
}
