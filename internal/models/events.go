// Package models defines the data structures for interaction events.
package models

// WakeEvent is emitted when a wake clip is processed.
type WakeEvent struct {
	EventType  string  `json:"eventType"`
	SessionID  string  `json:"sessionId"`
	Timestamp  int64   `json:"timestamp"`
	Transcript string  `json:"transcript"`
	Matched    bool    `json:"matched"`
	Speaker    string  `json:"speaker"`
	Score      float64 `json:"score"`
	Ignored    bool    `json:"ignored,omitempty"`
}

// AnswerEvent is emitted when a verse request resolves, successfully
// or not.
type AnswerEvent struct {
	EventType  string  `json:"eventType"`
	SessionID  string  `json:"sessionId"`
	Timestamp  int64   `json:"timestamp"`
	Transcript string  `json:"transcript"`
	Speaker    string  `json:"speaker"`
	Book       string  `json:"book,omitempty"`
	Chapter    int     `json:"chapter,omitempty"`
	Verse      int     `json:"verse,omitempty"`
	VerseEnd   int     `json:"verseEnd,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Outcome    string  `json:"outcome"`
	ErrorKind  string  `json:"errorKind,omitempty"`
}
