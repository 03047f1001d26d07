package service

import (
	"sort"
	"sync"

	"ctfcast/pkg/gzctf"
)

type trackerKey struct {
	gameID     int64
	noticeType gzctf.NoticeType
}

// NoticeTracker remembers the newest notice timestamp seen per game and
// category, so each poll only surfaces notices that arrived since the
// previous one. State is in-memory; after a restart the first poll
// re-seeds the baseline without announcing.
type NoticeTracker struct {
	mu     sync.Mutex
	latest map[trackerKey]int64
	seeded map[int64]bool
}

func NewNoticeTracker() *NoticeTracker {
	return &NoticeTracker{
		latest: make(map[trackerKey]int64),
		seeded: make(map[int64]bool),
	}
}

// Seeded reports whether a baseline has been recorded for the game.
func (t *NoticeTracker) Seeded(gameID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seeded[gameID]
}

// Seed records the current feed state as the baseline for a game.
// Everything present at seed time is treated as already announced.
func (t *NoticeTracker) Seed(gameID int64, notices []gzctf.Notice) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, nt := range gzctf.AllNoticeTypes() {
		key := trackerKey{gameID: gameID, noticeType: nt}
		for _, n := range gzctf.FilterByType(notices, nt) {
			if n.Time > t.latest[key] {
				t.latest[key] = n.Time
			}
		}
	}
	t.seeded[gameID] = true
}

// NewNotices returns the notices of one category newer than the
// recorded baseline, oldest first, and advances the baseline past them.
func (t *NoticeTracker) NewNotices(gameID int64, noticeType gzctf.NoticeType, notices []gzctf.Notice) []gzctf.Notice {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := trackerKey{gameID: gameID, noticeType: noticeType}
	last := t.latest[key]

	var fresh []gzctf.Notice
	for _, n := range gzctf.FilterByType(notices, noticeType) {
		if n.Time > last {
			fresh = append(fresh, n)
		}
	}

	// Oldest first so announcements come out in feed order.
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Time < fresh[j].Time
	})

	for _, n := range fresh {
		if n.Time > t.latest[key] {
			t.latest[key] = n.Time
		}
	}

	return fresh
}
