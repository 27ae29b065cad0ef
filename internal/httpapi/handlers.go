package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"voiceagent-dashboard/internal/airtable"
	"voiceagent-dashboard/internal/apikeys"
	"voiceagent-dashboard/internal/auth"
	"voiceagent-dashboard/internal/crm"
	"voiceagent-dashboard/internal/gemini"
	"voiceagent-dashboard/internal/reconcile"
	"voiceagent-dashboard/internal/vapi"
	"voiceagent-dashboard/pkg/db"
	"voiceagent-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth       *auth.Service
	CRM        *crm.Service
	Keys       *apikeys.Service
	Vapi       *vapi.Client
	Airtable   *airtable.Client
	Reconciler *reconcile.Reconciler
	Summarizer *gemini.Summarizer
	Redis      *redis.Client
}

// respondError maps service errors onto HTTP statuses. Validation failures
// carry the full details list so clients can render every violation at once.
func respondError(c *gin.Context, err error) {
	if ve, ok := crm.AsValidation(err); ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": ve.Errors})
		return
	}

	var vapiUp *vapi.UpstreamError
	var airtableUp *airtable.UpstreamError
	var geminiUp *gemini.UpstreamError
	switch {
	case errors.Is(err, crm.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, crm.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "A customer with this phone number already exists"})
	case errors.Is(err, vapi.ErrCredentialMissing):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Vapi private API key not configured"})
	case errors.Is(err, gemini.ErrCredentialMissing):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Gemini API key not configured"})
	case errors.Is(err, gemini.ErrEmptyTranscript):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Conversation text is required"})
	case errors.Is(err, airtable.ErrNotConfigured):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Airtable API token not configured"})
	case errors.Is(err, db.ErrLockHeld):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "A sync is already in progress"})
	case errors.As(err, &vapiUp), errors.As(err, &airtableUp), errors.As(err, &geminiUp):
		logger.From(c.Request.Context()).Warn("upstream call failed", "error", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upstream service error"})
	default:
		logger.From(c.Request.Context()).Error("request failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// userID pulls the authenticated user from request context. The auth
// middleware guarantees it on protected routes.
func userID(c *gin.Context) (string, bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return uid, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

/* ===================== AUTH ===================== */

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u, err := h.Auth.Register(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrEmailTaken) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": u.ID, "email": u.Email})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}
	pair, u, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          gin.H{"id": u.ID, "email": u.Email},
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	pair, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

func (h Handlers) Me(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	email, _ := auth.Email(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "email": email})
}

/* ===================== CUSTOMERS ===================== */

func (h Handlers) ListCustomers(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	f := crm.CustomerFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	page, err := h.CRM.ListCustomers(c.Request.Context(), uid, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h Handlers) GetCustomer(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	customer, err := h.CRM.GetCustomer(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

func (h Handlers) CreateCustomer(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var in crm.CustomerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	customer, err := h.CRM.CreateCustomer(c.Request.Context(), uid, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}

func (h Handlers) UpdateCustomer(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var in crm.CustomerUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	customer, err := h.CRM.UpdateCustomer(c.Request.Context(), uid, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

func (h Handlers) DeleteCustomer(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	if err := h.CRM.DeleteCustomer(c.Request.Context(), uid, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

/* ===================== NOTES ===================== */

func (h Handlers) ListNotes(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	f := crm.NoteFilter{
		CustomerID: c.Query("customer_id"),
		Search:     c.Query("search"),
		Limit:      intQuery(c, "limit", 50),
	}
	notes, err := h.CRM.ListNotes(c.Request.Context(), uid, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

func (h Handlers) CreateNote(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var in crm.NoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	note, err := h.CRM.CreateNote(c.Request.Context(), uid, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"note": note})
}

func (h Handlers) UpdateNote(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	var in crm.NoteUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	note, err := h.CRM.UpdateNote(c.Request.Context(), uid, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}

func (h Handlers) DeleteNote(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		return
	}
	if err := h.CRM.DeleteNote(c.Request.Context(), uid, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
