package vapi

import "time"

// Boundary types for the voice-platform API.
//
// Rules:
// - No upstream calls outside this package; business logic sees these
//   typed records only.
// - Upstream payloads are loosely typed; optional fields are pointers or
//   zero values, validated here before they reach the aggregation engine.

// Call is one voice interaction owned by the external platform. Read-mostly;
// nothing but a cached summary is persisted locally.
type Call struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`

	// StartedAt/EndedAt are absent for calls that never connected.
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`

	AssistantID string `json:"assistantId,omitempty"`

	// Customer carries the counterpart phone number.
	Customer    *Endpoint `json:"customer,omitempty"`
	PhoneNumber *Endpoint `json:"phoneNumber,omitempty"`

	Cost          float64        `json:"cost,omitempty"`
	CostBreakdown *CostBreakdown `json:"costBreakdown,omitempty"`

	Messages []Message `json:"messages,omitempty"`

	RecordingURL string `json:"recordingUrl,omitempty"`

	// Summary is AI-generated upstream; empty when the platform produced none.
	Summary string `json:"summary,omitempty"`
}

type Endpoint struct {
	Number string `json:"number"`
}

type CostBreakdown struct {
	Transport float64 `json:"transport,omitempty"`
	STT       float64 `json:"stt,omitempty"`
	LLM       float64 `json:"llm,omitempty"`
	TTS       float64 `json:"tts,omitempty"`
	Vapi      float64 `json:"vapi,omitempty"`
	Total     float64 `json:"total,omitempty"`
}

// Message is one turn of a call transcript.
type Message struct {
	Role    string  `json:"role"`
	Message string  `json:"message"`
	Time    float64 `json:"time,omitempty"`
}

// CounterpartNumber returns the phone number of the remote party, it may be
// empty.
func (c Call) CounterpartNumber() string {
	if c.Customer != nil && c.Customer.Number != "" {
		return c.Customer.Number
	}
	if c.PhoneNumber != nil {
		return c.PhoneNumber.Number
	}
	return ""
}

// DurationSeconds returns the connected duration, or 0 when either
// timestamp is missing.
func (c Call) DurationSeconds() float64 {
	if c.StartedAt == nil || c.EndedAt == nil {
		return 0
	}
	return c.EndedAt.Sub(*c.StartedAt).Seconds()
}

// Assistant is a configured voice agent.
type Assistant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	FirstMessage string    `json:"firstMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`

	Model *AssistantModel `json:"model,omitempty"`
	Voice *AssistantVoice `json:"voice,omitempty"`
}

type AssistantModel struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type AssistantVoice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

// Chat is a text conversation with an assistant.
type Chat struct {
	ID          string        `json:"id"`
	AssistantID string        `json:"assistantId,omitempty"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt,omitempty"`
	Messages    []ChatMessage `json:"messages,omitempty"`
}

type ChatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}
