package service

import (
	"testing"

	"ctfcast/pkg/gzctf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerSeedSuppressesExisting(t *testing.T) {
	tracker := NewNoticeTracker()

	existing := []gzctf.Notice{
		{ID: 1, Type: "Normal", Time: 100},
		{ID: 2, Type: "FirstBlood", Time: 200},
	}

	assert.False(t, tracker.Seeded(1))
	tracker.Seed(1, existing)
	assert.True(t, tracker.Seeded(1))

	// Nothing present at seed time is announced.
	assert.Empty(t, tracker.NewNotices(1, gzctf.NoticeNormal, existing))
	assert.Empty(t, tracker.NewNotices(1, gzctf.NoticeFirstBlood, existing))
}

func TestTrackerDetectsNewNotices(t *testing.T) {
	tracker := NewNoticeTracker()
	tracker.Seed(1, []gzctf.Notice{{ID: 1, Type: "Normal", Time: 100}})

	feed := []gzctf.Notice{
		{ID: 1, Type: "Normal", Time: 100},
		{ID: 2, Type: "Normal", Time: 300},
		{ID: 3, Type: "FirstBlood", Time: 250},
	}

	fresh := tracker.NewNotices(1, gzctf.NoticeNormal, feed)
	require.Len(t, fresh, 1)
	assert.Equal(t, int64(2), fresh[0].ID)

	bloods := tracker.NewNotices(1, gzctf.NoticeFirstBlood, feed)
	require.Len(t, bloods, 1)
	assert.Equal(t, int64(3), bloods[0].ID)

	// A second look at the same feed yields nothing.
	assert.Empty(t, tracker.NewNotices(1, gzctf.NoticeNormal, feed))
}

func TestTrackerReturnsOldestFirst(t *testing.T) {
	tracker := NewNoticeTracker()
	tracker.Seed(1, nil)

	feed := []gzctf.Notice{
		{ID: 3, Type: "Normal", Time: 300},
		{ID: 1, Type: "Normal", Time: 100},
		{ID: 2, Type: "Normal", Time: 200},
	}

	fresh := tracker.NewNotices(1, gzctf.NoticeNormal, feed)
	require.Len(t, fresh, 3)
	assert.Equal(t, int64(1), fresh[0].ID)
	assert.Equal(t, int64(2), fresh[1].ID)
	assert.Equal(t, int64(3), fresh[2].ID)
}

func TestTrackerIsolatesGames(t *testing.T) {
	tracker := NewNoticeTracker()
	tracker.Seed(1, []gzctf.Notice{{ID: 1, Type: "Normal", Time: 500}})
	tracker.Seed(2, nil)

	feed := []gzctf.Notice{{ID: 1, Type: "Normal", Time: 400}}

	// Game 1's baseline is ahead of this notice, game 2 has none.
	assert.Empty(t, tracker.NewNotices(1, gzctf.NoticeNormal, feed))
	assert.Len(t, tracker.NewNotices(2, gzctf.NoticeNormal, feed), 1)
}

func TestTrackerIsolatesTypes(t *testing.T) {
	tracker := NewNoticeTracker()
	tracker.Seed(1, []gzctf.Notice{{ID: 1, Type: "Normal", Time: 500}})

	// A hint older than the normal baseline is still new for its type.
	feed := []gzctf.Notice{{ID: 2, Type: "NewHint", Time: 300}}
	assert.Len(t, tracker.NewNotices(1, gzctf.NoticeNewHint, feed), 1)
}
