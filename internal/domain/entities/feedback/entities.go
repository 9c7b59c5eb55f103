// Package feedback defines the feedback queue domain entities.
package feedback

import "time"

// QueueItem is one piece of post-hoc user reaction to a served outfit.
// Items are processed strictly FIFO by the background drain.
type QueueItem struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	OutfitID     string    `json:"outfitId"`
	ItemIDs      []string  `json:"itemIds,omitempty"`
	Rating       int       `json:"rating"` // 1..5
	Reaction     string    `json:"reaction,omitempty"`
	Comment      string    `json:"comment,omitempty"`
	VoiceNoteURL string    `json:"voiceNoteUrl,omitempty"`
	QueuedAt     time.Time `json:"queuedAt"`
}
