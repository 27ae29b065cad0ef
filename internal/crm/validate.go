package crm

import (
	"encoding/json"
	"fmt"
	"regexp"

	"voiceagent-dashboard/internal/phone"
)

// Simple local@domain.tld shape; deliverability is not our problem.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CustomerInput is the create payload. Tags stays raw so a scalar payload
// is caught by validation instead of a bind error.
type CustomerInput struct {
	PhoneNumber      string          `json:"phone_number"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	Company          string          `json:"company"`
	Status           string          `json:"status"`
	Tags             json.RawMessage `json:"tags"`
	AirtableRecordID string          `json:"airtable_record_id"`
	ExternalData     map[string]any  `json:"external_data"`
}

// CustomerUpdate is the partial update payload. Pointer fields distinguish
// "absent" from "set to empty".
type CustomerUpdate struct {
	PhoneNumber *string         `json:"phone_number"`
	Name        *string         `json:"name"`
	Email       *string         `json:"email"`
	Company     *string         `json:"company"`
	Status      *string         `json:"status"`
	Tags        json.RawMessage `json:"tags"`
}

// ValidateCustomer checks a create payload. It returns a *ValidationError
// carrying every violated rule, or nil.
func ValidateCustomer(in CustomerInput) error {
	var errs []string

	if in.PhoneNumber == "" {
		errs = append(errs, "Phone number is required")
	} else if !phone.IsValidE164(in.PhoneNumber) {
		errs = append(errs, "Phone number must be in E.164 format (e.g., +1234567890)")
	}

	errs = appendCommonCustomerErrs(errs, in.Email, in.Status, in.Tags)

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ValidateCustomerUpdate checks a partial update payload. Phone number is
// optional here; when present it must already be canonical.
func ValidateCustomerUpdate(in CustomerUpdate) error {
	var errs []string

	if in.PhoneNumber != nil && *in.PhoneNumber != "" && !phone.IsValidE164(*in.PhoneNumber) {
		errs = append(errs, "Phone number must be in E.164 format (e.g., +1234567890)")
	}

	email, status := "", ""
	if in.Email != nil {
		email = *in.Email
	}
	if in.Status != nil {
		status = *in.Status
	}
	errs = appendCommonCustomerErrs(errs, email, status, in.Tags)

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func appendCommonCustomerErrs(errs []string, email, status string, tags json.RawMessage) []string {
	if email != "" && !emailPattern.MatchString(email) {
		errs = append(errs, "Invalid email format")
	}
	if status != "" && !IsValidStatus(status) {
		errs = append(errs, fmt.Sprintf("Status must be one of: %s, %s, %s", StatusActive, StatusInactive, StatusBlocked))
	}
	if len(tags) > 0 {
		if _, err := decodeTags(tags); err != nil {
			errs = append(errs, "Tags must be an array of strings")
		}
	}
	return errs
}

func decodeTags(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// NoteInput is the create payload for notes.
type NoteInput struct {
	CustomerID string   `json:"customer_id"`
	CallID     string   `json:"call_id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Priority   string   `json:"priority"`
	Tags       []string `json:"tags"`
	IsPinned   bool     `json:"is_pinned"`
}

// NoteUpdate is the partial update payload for notes, including pin toggle.
type NoteUpdate struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	Priority *string   `json:"priority"`
	Tags     *[]string `json:"tags"`
	IsPinned *bool     `json:"is_pinned"`
}

// ValidateNote checks a note create payload. Priority defaults to medium
// when absent; there are no format constraints beyond presence.
func ValidateNote(in NoteInput) error {
	var errs []string

	if in.CustomerID == "" {
		errs = append(errs, "Customer ID is required")
	}
	if in.Title == "" {
		errs = append(errs, "Title is required")
	}
	if in.Content == "" {
		errs = append(errs, "Content is required")
	}
	if in.Priority != "" && !IsValidPriority(in.Priority) {
		errs = append(errs, fmt.Sprintf("Priority must be one of: %s, %s, %s", PriorityLow, PriorityMedium, PriorityHigh))
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
