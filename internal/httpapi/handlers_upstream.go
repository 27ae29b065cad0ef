package httpapi

import (
	"errors"
	"math"
	"net/http"
	"time"

	"voiceagent-dashboard/internal/analytics"
	"voiceagent-dashboard/internal/apikeys"
	"voiceagent-dashboard/internal/gemini"
	"voiceagent-dashboard/internal/vapi"
	"voiceagent-dashboard/pkg/db"
	"voiceagent-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const syncLockTTL = 10 * time.Minute

// vapiKey loads the user's private voice-platform key. A missing row or
// empty key surfaces as ErrCredentialMissing.
func (h Handlers) vapiKey(c *gin.Context, uid string) (string, error) {
	keys, err := h.Keys.GetRaw(c.Request.Context(), uid)
	if errors.Is(err, apikeys.ErrNotFound) || (err == nil && keys.VapiPrivateKey == "") {
		return "", vapi.ErrCredentialMissing
	}
	if err != nil {
		return "", err
	}
	return keys.VapiPrivateKey, nil
}

func (h Handlers) geminiKey(c *gin.Context, uid string) (string, error) {
	keys, err := h.Keys.GetRaw(c.Request.Context(), uid)
	if errors.Is(err, apikeys.ErrNotFound) || (err == nil && keys.GeminiAPIKey == "") {
		return "", gemini.ErrCredentialMissing
	}
	if err != nil {
		return "", err
	}
	return keys.GeminiAPIKey, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func timeQuery(c *gin.Context, name string) time.Time {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

/* ===================== CALLS ===================== */

func (h Handlers) ListCalls(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	key, err := h.vapiKey(c, uid)
	if err != nil {
		respondError(c, err)
		return
	}

	q := vapi.CallQuery{
		Limit:       intQuery(c, "limit", 50),
		AssistantID: c.Query("assistantId"),
		CreatedAtGT: timeQuery(c, "createdAtGt"),
		CreatedAtLT: timeQuery(c, "createdAtLt"),
		Cursor:      c.Query("cursor"),
	}
	calls, next, err := h.Vapi.ListCalls(c.Request.Context(), key, q)
	if err != nil {
		respondError(c, err)
		return
	}

	// Quick stats over this page only; the analytics endpoint covers
	// whole windows.
	totalCalls := len(calls)
	completed := 0
	var durationSum, totalCost float64
	for _, call := range calls {
		totalCost += call.Cost
		if call.Status == "completed" {
			completed++
			durationSum += call.DurationSeconds()
		}
	}
	var successRate, avgDuration float64
	if totalCalls > 0 {
		successRate = float64(completed) / float64(totalCalls) * 100
	}
	if completed > 0 {
		avgDuration = durationSum / float64(completed)
	}

	c.JSON(http.StatusOK, gin.H{
		"calls":      calls,
		"nextCursor": next,
		"analytics": gin.H{
			"totalCalls":  totalCalls,
			"successRate": round2(successRate),
			"avgDuration": round2(avgDuration),
			"cost":        round2(totalCost),
		},
	})
}

func (h Handlers) GetCall(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	key, err := h.vapiKey(c, uid)
	if err != nil {
		respondError(c, err)
		return
	}
	call, err := h.Vapi.GetCall(c.Request.Context(), key, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": call})
}

/* ===================== ASSISTANTS / CHATS ===================== */

func (h Handlers) ListAssistants(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	key, err := h.vapiKey(c, uid)
	if err != nil {
		respondError(c, err)
		return
	}
	q := vapi.AssistantQuery{
		Limit:  intQuery(c, "limit", 50),
		Cursor: c.Query("cursor"),
	}
	assistants, next, err := h.Vapi.ListAssistants(c.Request.Context(), key, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assistants": assistants, "nextCursor": next})
}

func (h Handlers) ListChats(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	key, err := h.vapiKey(c, uid)
	if err != nil {
		respondError(c, err)
		return
	}
	q := vapi.ChatQuery{
		Limit:       intQuery(c, "limit", 50),
		AssistantID: c.Query("assistantId"),
		Cursor:      c.Query("cursor"),
	}
	chats, next, err := h.Vapi.ListChats(c.Request.Context(), key, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats, "nextCursor": next})
}

func (h Handlers) GetChat(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	key, err := h.vapiKey(c, uid)
	if err != nil {
		respondError(c, err)
		return
	}
	chat, err := h.Vapi.GetChat(c.Request.Context(), key, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chat})
}

/* ===================== ANALYTICS ===================== */

func rangeDays(r string) int {
	switch r {
	case "7d":
		return 7
	case "90d":
		return 90
	default:
		return 30
	}
}

func (h Handlers) Analytics(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	key, err := h.vapiKey(c, uid)
	if err != nil {
		respondError(c, err)
		return
	}

	w := analytics.WindowDaysBack(time.Now().UTC(), rangeDays(c.Query("range")))
	q := vapi.CallQuery{
		Limit:       100,
		AssistantID: c.Query("assistantId"),
		CreatedAtGT: w.Start,
		CreatedAtLT: w.End,
	}
	calls, err := h.Vapi.ListAllCalls(c.Request.Context(), key, q)
	if err != nil {
		respondError(c, err)
		return
	}

	report := analytics.Aggregate(calls, w)
	c.JSON(http.StatusOK, gin.H{"analytics": report})
}

/* ===================== CONTACT SYNC ===================== */

// SyncContacts runs a full reconciliation of the external contact feed.
// Runs are serialized per user with a Redis TTL lock; a concurrent trigger
// gets 409.
func (h Handlers) SyncContacts(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	lockKey := db.SyncLockKey(uid)
	token := uuid.NewString()
	if err := db.AcquireSyncLock(ctx, h.Redis, lockKey, token, syncLockTTL); err != nil {
		respondError(c, err)
		return
	}
	defer func() {
		if err := db.ReleaseSyncLock(ctx, h.Redis, lockKey, token); err != nil {
			logger.From(ctx).Warn("sync lock release failed", "error", err)
		}
	}()

	res, err := h.Reconciler.Run(ctx, uid, h.Airtable)
	if err != nil {
		respondError(c, err)
		return
	}

	out := gin.H{
		"success": true,
		"summary": gin.H{
			"total":   res.Total,
			"created": res.Created,
			"updated": res.Updated,
			"skipped": res.Skipped,
		},
	}
	if len(res.SkippedRecords) > 0 {
		out["skippedRecords"] = res.SkippedRecords
	}
	c.JSON(http.StatusOK, out)
}

/* ===================== API KEYS ===================== */

func (h Handlers) GetAPIKeys(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	masked, err := h.Keys.Get(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"apiKeys": masked})
}

func (h Handlers) SaveAPIKeys(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var in apikeys.Update
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Keys.Save(c.Request.Context(), uid, in); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

/* ===================== SUMMARIES ===================== */

type summarizeRequest struct {
	CallID           string `json:"call_id"`
	ConversationText string `json:"conversation_text"`
}

// Summarize produces an LLM summary from either raw conversation text or a
// call id whose transcript is fetched from the voice platform.
func (h Handlers) Summarize(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	text := req.ConversationText
	if text == "" && req.CallID != "" {
		vapiKey, err := h.vapiKey(c, uid)
		if err != nil {
			respondError(c, err)
			return
		}
		call, err := h.Vapi.GetCall(c.Request.Context(), vapiKey, req.CallID)
		if err != nil {
			respondError(c, err)
			return
		}
		text = gemini.Transcript(call.Messages)
	}

	geminiKey, err := h.geminiKey(c, uid)
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := h.Summarizer.SummarizeText(c.Request.Context(), geminiKey, text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
