package data

import (
	"testing"

	"github.com/Gunhee-b/community-web-sub001/src/api/types"
	"github.com/stretchr/testify/assert"
)

func TestWinnerNoVotes(t *testing.T) {
	_, ok := Winner(nil)
	assert.False(t, ok)
}

func TestWinnerMajority(t *testing.T) {
	votes := []types.Vote{
		{NominationID: 1}, {NominationID: 2}, {NominationID: 2},
		{NominationID: 3}, {NominationID: 2},
	}
	id, ok := Winner(votes)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), id)
}

func TestWinnerTieGoesToLowestID(t *testing.T) {
	votes := []types.Vote{
		{NominationID: 9}, {NominationID: 4},
		{NominationID: 9}, {NominationID: 4},
	}
	id, ok := Winner(votes)
	assert.True(t, ok)
	assert.Equal(t, uint64(4), id)
}

func TestWinnerSingleVote(t *testing.T) {
	id, ok := Winner([]types.Vote{{NominationID: 7}})
	assert.True(t, ok)
	assert.Equal(t, uint64(7), id)
}
