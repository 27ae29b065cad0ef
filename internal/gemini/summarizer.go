package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"voiceagent-dashboard/internal/vapi"
	"voiceagent-dashboard/pkg/db"
	"voiceagent-dashboard/pkg/logger"
)

const summaryCacheTTL = 24 * time.Hour

// Summarizer wraps the model client with a per-transcript cache. Summaries
// for identical transcripts are stable for a day, so repeat views of the
// same call do not re-bill the model.
type Summarizer struct {
	client *Client
	rdb    *redis.Client
}

func NewSummarizer(client *Client, rdb *redis.Client) *Summarizer {
	return &Summarizer{client: client, rdb: rdb}
}

// SummarizeText summarizes raw conversation text, consulting the cache
// first. Cache failures degrade to an uncached model call.
func (s *Summarizer) SummarizeText(ctx context.Context, apiKey, conversationText string) (string, error) {
	key := summaryCacheKey(conversationText)
	if s.rdb != nil {
		if cached, ok, err := db.CacheGet(ctx, s.rdb, key); err != nil {
			logger.From(ctx).Warn("summary cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	summary, err := s.client.Summarize(ctx, apiKey, conversationText)
	if err != nil {
		return "", err
	}

	if s.rdb != nil {
		if err := db.CacheSet(ctx, s.rdb, key, summary, summaryCacheTTL); err != nil {
			logger.From(ctx).Warn("summary cache write failed", "error", err)
		}
	}
	return summary, nil
}

// SummarizeCall renders a call's message log into a transcript and
// summarizes it.
func (s *Summarizer) SummarizeCall(ctx context.Context, apiKey string, call vapi.Call) (string, error) {
	return s.SummarizeText(ctx, apiKey, Transcript(call.Messages))
}

// Transcript renders a message log as speaker-labelled lines. System
// messages are omitted.
func Transcript(messages []vapi.Message) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Role == "system" || m.Message == "" {
			continue
		}
		label := "Customer"
		if m.Role == "assistant" || m.Role == "bot" {
			label = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, m.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

func summaryCacheKey(conversationText string) string {
	sum := sha256.Sum256([]byte(conversationText))
	return "summary:" + hex.EncodeToString(sum[:])
}
