package models

import "time"

// Episode is one recorded (query, response) interaction. Episodes are never
// modified after they are written.
type Episode struct {
	ID        string         `json:"episode_id"`
	Timestamp float64        `json:"timestamp"`
	Query     string         `json:"query"`
	Response  string         `json:"response"`
	Mode      string         `json:"mode"`
	Sources   []string       `json:"sources"`
	Meta      map[string]any `json:"meta"`
}

// Time returns the episode timestamp as a time.Time.
func (e Episode) Time() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// EpisodeHit is an episode returned by a memory search.
type EpisodeHit struct {
	Episode
	Score float64 `json:"score"`
}

// EpisodeRef is the short form of a memory hit attached to a chat result.
type EpisodeRef struct {
	EpisodeID string  `json:"episode_id"`
	Score     float64 `json:"score"`
	Query     string  `json:"query"`
}

// Reflection is a critic pass over recent episodes.
type Reflection struct {
	Timestamp    float64 `json:"timestamp"`
	Notes        string  `json:"notes"`
	EpisodeCount int     `json:"episode_count"`
}

// UnixSeconds converts t to fractional unix seconds.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
