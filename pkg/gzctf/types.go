package gzctf

import "strings"

// NoticeType is the category of a game notice as reported by the
// scoring platform.
type NoticeType string

const (
	NoticeNormal       NoticeType = "Normal"
	NoticeNewChallenge NoticeType = "NewChallenge"
	NoticeNewHint      NoticeType = "NewHint"
	NoticeFirstBlood   NoticeType = "FirstBlood"
	NoticeSecondBlood  NoticeType = "SecondBlood"
	NoticeThirdBlood   NoticeType = "ThirdBlood"
)

// AllNoticeTypes returns every announced notice category in a stable
// order.
func AllNoticeTypes() []NoticeType {
	return []NoticeType{
		NoticeNormal,
		NoticeNewChallenge,
		NoticeNewHint,
		NoticeFirstBlood,
		NoticeSecondBlood,
		NoticeThirdBlood,
	}
}

// Valid reports whether t is a known notice category.
func (t NoticeType) Valid() bool {
	switch t {
	case NoticeNormal, NoticeNewChallenge, NoticeNewHint,
		NoticeFirstBlood, NoticeSecondBlood, NoticeThirdBlood:
		return true
	}
	return false
}

// Notice is one entry from the game notice feed.
type Notice struct {
	ID     int64    `json:"id"`
	Type   string   `json:"type"`
	Values []string `json:"values"`
	Time   int64    `json:"time"`
}

// Content joins the notice values into the human-readable body. Blood
// notices carry [team, challenge]; announcements carry a single value.
func (n Notice) Content() string {
	switch NoticeType(n.Type) {
	case NoticeFirstBlood, NoticeSecondBlood, NoticeThirdBlood:
		if len(n.Values) >= 2 {
			return n.Values[0] + " solved " + n.Values[1]
		}
	}
	return strings.Join(n.Values, " ")
}

// FilterByType returns the notices matching the given category,
// preserving feed order.
func FilterByType(notices []Notice, t NoticeType) []Notice {
	var out []Notice
	for _, n := range notices {
		if NoticeType(n.Type) == t {
			out = append(out, n)
		}
	}
	return out
}
