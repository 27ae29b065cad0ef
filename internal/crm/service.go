package crm

import (
	"context"
	"errors"
	"time"

	"voiceagent-dashboard/internal/activity"
	"voiceagent-dashboard/pkg/logger"

	"github.com/google/uuid"
)

// Service implements the customer/note operations behind the CRM screens.
//
// Error contract: single-record operations propagate typed failures
// (ValidationError, ErrNotFound, ErrConflict) to the caller; nothing is
// silently swallowed. Activity recording is the one exception, it is
// best-effort by design.
type Service struct {
	repo     Repository
	activity *activity.Service
	clock    func() time.Time
}

func NewService(repo Repository, act *activity.Service) *Service {
	return &Service{repo: repo, activity: act, clock: time.Now}
}

type CustomerPage struct {
	Customers []Customer `json:"customers"`
	Total     int        `json:"total"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	HasMore   bool       `json:"has_more"`
}

func (s *Service) ListCustomers(ctx context.Context, userID string, f CustomerFilter) (CustomerPage, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	customers, total, err := s.repo.ListCustomers(ctx, userID, f)
	if err != nil {
		return CustomerPage{}, err
	}
	return CustomerPage{
		Customers: customers,
		Total:     total,
		Limit:     f.Limit,
		Offset:    f.Offset,
		HasMore:   total > f.Offset+f.Limit,
	}, nil
}

func (s *Service) GetCustomer(ctx context.Context, userID, id string) (Customer, error) {
	return s.repo.GetCustomer(ctx, userID, id)
}

func (s *Service) CreateCustomer(ctx context.Context, userID string, in CustomerInput) (Customer, error) {
	if err := ValidateCustomer(in); err != nil {
		return Customer{}, err
	}

	// Pre-check gives a clean conflict error; the unique index is the
	// actual guarantee under concurrency.
	if _, err := s.repo.FindCustomerByPhone(ctx, userID, in.PhoneNumber, ""); err == nil {
		return Customer{}, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return Customer{}, err
	}

	tags, _ := decodeTags(in.Tags) // validated above

	now := s.clock().UTC()
	c := Customer{
		ID:               uuid.NewString(),
		UserID:           userID,
		PhoneNumber:      in.PhoneNumber,
		Name:             in.Name,
		Email:            in.Email,
		Company:          in.Company,
		Tags:             tags,
		Status:           StatusActive,
		AirtableRecordID: in.AirtableRecordID,
		ExternalData:     in.ExternalData,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.Status != "" {
		c.Status = CustomerStatus(in.Status)
	}

	if err := s.repo.InsertCustomer(ctx, c); err != nil {
		return Customer{}, err
	}
	s.record(ctx, activity.EventTypeCustomerCreated, userID, c.ID, "customer created")
	return c, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, userID, id string, in CustomerUpdate) (Customer, error) {
	if err := ValidateCustomerUpdate(in); err != nil {
		return Customer{}, err
	}

	c, err := s.repo.GetCustomer(ctx, userID, id)
	if err != nil {
		return Customer{}, err
	}

	if in.PhoneNumber != nil && *in.PhoneNumber != "" && *in.PhoneNumber != c.PhoneNumber {
		if _, err := s.repo.FindCustomerByPhone(ctx, userID, *in.PhoneNumber, id); err == nil {
			return Customer{}, ErrConflict
		} else if !errors.Is(err, ErrNotFound) {
			return Customer{}, err
		}
		c.PhoneNumber = *in.PhoneNumber
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Email != nil {
		c.Email = *in.Email
	}
	if in.Company != nil {
		c.Company = *in.Company
	}
	if in.Status != nil && *in.Status != "" {
		c.Status = CustomerStatus(*in.Status)
	}
	if len(in.Tags) > 0 {
		tags, _ := decodeTags(in.Tags) // validated above
		c.Tags = tags
	}
	c.UpdatedAt = s.clock().UTC()

	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return Customer{}, err
	}
	s.record(ctx, activity.EventTypeCustomerUpdated, userID, c.ID, "customer updated")
	return c, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteCustomer(ctx, userID, id); err != nil {
		return err
	}
	s.record(ctx, activity.EventTypeCustomerDeleted, userID, id, "customer deleted")
	return nil
}

func (s *Service) ListNotes(ctx context.Context, userID string, f NoteFilter) ([]Note, error) {
	return s.repo.ListNotes(ctx, userID, f)
}

func (s *Service) CreateNote(ctx context.Context, userID string, in NoteInput) (Note, error) {
	if err := ValidateNote(in); err != nil {
		return Note{}, err
	}

	// The referenced customer must exist and belong to the same user.
	if _, err := s.repo.GetCustomer(ctx, userID, in.CustomerID); err != nil {
		return Note{}, err
	}

	priority := PriorityMedium
	if in.Priority != "" {
		priority = NotePriority(in.Priority)
	}

	now := s.clock().UTC()
	n := Note{
		ID:         uuid.NewString(),
		UserID:     userID,
		CustomerID: in.CustomerID,
		CallID:     in.CallID,
		Title:      in.Title,
		Content:    in.Content,
		Priority:   priority,
		Tags:       in.Tags,
		IsPinned:   in.IsPinned,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertNote(ctx, n); err != nil {
		return Note{}, err
	}
	s.recordNote(ctx, activity.EventTypeNoteCreated, userID, n, "note created")
	return n, nil
}

func (s *Service) UpdateNote(ctx context.Context, userID, id string, in NoteUpdate) (Note, error) {
	n, err := s.repo.GetNote(ctx, userID, id)
	if err != nil {
		return Note{}, err
	}

	if in.Title != nil {
		n.Title = *in.Title
	}
	if in.Content != nil {
		n.Content = *in.Content
	}
	if in.Priority != nil && *in.Priority != "" {
		if !IsValidPriority(*in.Priority) {
			return Note{}, &ValidationError{Errors: []string{"Priority must be one of: low, medium, high"}}
		}
		n.Priority = NotePriority(*in.Priority)
	}
	if in.Tags != nil {
		n.Tags = *in.Tags
	}
	if in.IsPinned != nil {
		n.IsPinned = *in.IsPinned
	}
	n.UpdatedAt = s.clock().UTC()

	if err := s.repo.UpdateNote(ctx, n); err != nil {
		return Note{}, err
	}
	return n, nil
}

func (s *Service) DeleteNote(ctx context.Context, userID, id string) error {
	n, err := s.repo.GetNote(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteNote(ctx, userID, id); err != nil {
		return err
	}
	s.recordNote(ctx, activity.EventTypeNoteDeleted, userID, n, "note deleted")
	return nil
}

func (s *Service) record(ctx context.Context, typ activity.EventType, userID, customerID, msg string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.LogCustomerEvent(ctx, typ, userID, customerID, msg); err != nil {
		logger.From(ctx).Warn("activity record failed", "type", string(typ), "err", err)
	}
}

func (s *Service) recordNote(ctx context.Context, typ activity.EventType, userID string, n Note, msg string) {
	if s.activity == nil {
		return
	}
	err := s.activity.Append(ctx, activity.Event{
		UserID:     userID,
		Type:       typ,
		CustomerID: n.CustomerID,
		NoteID:     n.ID,
		Message:    msg,
	})
	if err != nil {
		logger.From(ctx).Warn("activity record failed", "type", string(typ), "err", err)
	}
}
