package service

import (
	"context"
	"errors"
	"sync"
	"time"

	contactserrors "ambulance/internal/contacts/errors"
	"ambulance/internal/contacts/repository"
	"ambulance/internal/contacts/validator"
	"ambulance/pkg/config"
	dbmongo "ambulance/pkg/db/mongo"
	apperrors "ambulance/pkg/errors"
	"ambulance/pkg/model"
	"ambulance/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// ContactService manages a user's emergency contacts. Every operation is scoped to the acting user.
type ContactService interface {
	Create(ctx context.Context, actor model.Actor, contact *model.EmergencyContact) error
	List(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.EmergencyContact, int64, error)
	GetByID(ctx context.Context, actor model.Actor, id string) (*model.EmergencyContact, error)
	Update(ctx context.Context, actor model.Actor, id string, updates *model.EmergencyContactUpdate) (*model.EmergencyContact, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
}

type contactService struct {
	repo      repository.ContactRepository
	validator *validator.ContactValidator
	txManager dbmongo.TransactionManager
	cfg       *config.Config
	now       func() time.Time
}

func NewContactService(repo repository.ContactRepository, validator *validator.ContactValidator, txManager dbmongo.TransactionManager, cfg *config.Config) ContactService {
	return &contactService{
		repo:      repo,
		validator: validator,
		txManager: txManager,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func requireOwner(actor model.Actor) error {
	if actor.ID == "" || actor.Role != model.RoleUser {
		return apperrors.Forbidden("Emergency contacts are managed by their owner")
	}
	return nil
}

func (s *contactService) Create(ctx context.Context, actor model.Actor, contact *model.EmergencyContact) error {
	if err := requireOwner(actor); err != nil {
		return err
	}
	if contact == nil {
		return apperrors.InvalidInput("Emergency contact cannot be empty")
	}

	now := s.now()
	contact.ID = ""
	contact.UserID = actor.ID
	contact.CreatedAt = now
	contact.UpdatedAt = now
	s.sanitize(contact)

	if err := s.validator.Validate(contact); err != nil {
		s.cfg.Log.Warn("Emergency contact validation failed", "user_id", actor.ID, "error", err)
		return apperrors.Validation("Emergency contact validation failed", map[string]any{"error": err.Error()})
	}

	err := s.writePrimaryAware(ctx, contact, func(ctx context.Context) error {
		return s.repo.Create(ctx, contact)
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create emergency contact", "user_id", actor.ID, "error", err)
		return apperrors.Internal("Failed to create emergency contact", err)
	}

	s.cfg.Log.Info("Emergency contact created", "id", contact.ID, "user_id", actor.ID, "is_primary", contact.IsPrimary)
	return nil
}

func (s *contactService) List(ctx context.Context, actor model.Actor, limit int, offset int64) ([]*model.EmergencyContact, int64, error) {
	if err := requireOwner(actor); err != nil {
		return nil, 0, err
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		contacts          []*model.EmergencyContact
		count             int64
		errFind, errCount error
		wg                sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		contacts, errFind = s.repo.FindByUser(ctx, actor.ID, limit, offset)
	}()
	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByUser(ctx, actor.ID)
	}()
	wg.Wait()

	if err := errors.Join(errFind, errCount); err != nil {
		s.cfg.Log.Error("Failed to list emergency contacts", "user_id", actor.ID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve emergency contacts", err)
	}
	return contacts, count, nil
}

func (s *contactService) GetByID(ctx context.Context, actor model.Actor, id string) (*model.EmergencyContact, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Emergency contact ID cannot be empty")
	}

	contact, err := s.repo.FindByID(ctx, actor.ID, id)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}
	return contact, nil
}

func (s *contactService) Update(ctx context.Context, actor model.Actor, id string, updates *model.EmergencyContactUpdate) (*model.EmergencyContact, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Emergency contact ID cannot be empty")
	}
	if updates == nil {
		return nil, apperrors.InvalidInput("Emergency contact update cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, actor.ID, id)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}

	merged := mergeUpdates(existing, updates)
	merged.UpdatedAt = s.now()
	s.sanitize(merged)

	if err := s.validator.Validate(merged); err != nil {
		s.cfg.Log.Warn("Emergency contact validation failed", "id", id, "user_id", actor.ID, "error", err)
		return nil, apperrors.Validation("Emergency contact validation failed", map[string]any{"error": err.Error()})
	}

	err = s.writePrimaryAware(ctx, merged, func(ctx context.Context) error {
		return s.repo.Update(ctx, merged)
	})
	if err != nil {
		if errors.Is(err, contactserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Emergency contact", id)
		}
		s.cfg.Log.Error("Failed to update emergency contact", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update emergency contact", err)
	}

	s.cfg.Log.Info("Emergency contact updated", "id", id, "user_id", actor.ID)
	return merged, nil
}

func (s *contactService) Delete(ctx context.Context, actor model.Actor, id string) error {
	if err := requireOwner(actor); err != nil {
		return err
	}
	if id == "" {
		return apperrors.InvalidInput("Emergency contact ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, actor.ID, id); err != nil {
		return s.mapRepoError(err, id)
	}

	s.cfg.Log.Info("Emergency contact deleted", "id", id, "user_id", actor.ID)
	return nil
}

// writePrimaryAware runs write directly, or inside a transaction that first demotes the owner's
// other primary contacts when contact is primary.
func (s *contactService) writePrimaryAware(ctx context.Context, contact *model.EmergencyContact, write func(ctx context.Context) error) error {
	if !contact.IsPrimary {
		return write(ctx)
	}
	return s.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.ClearPrimary(sessCtx, contact.UserID, contact.ID); err != nil {
			return err
		}
		return write(sessCtx)
	})
}

func (s *contactService) sanitize(contact *model.EmergencyContact) {
	contact.Name = sanitizer.NormalizeName(contact.Name)
	contact.Relationship = sanitizer.NormalizeLabel(contact.Relationship)
	contact.Address = sanitizer.NormalizeAddress(contact.Address)
	if phone := sanitizer.NormalizePhone(contact.Phone); phone != "" {
		contact.Phone = phone
	}
}

func mergeUpdates(existing *model.EmergencyContact, updates *model.EmergencyContactUpdate) *model.EmergencyContact {
	merged := *existing
	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Relationship != "" {
		merged.Relationship = updates.Relationship
	}
	if updates.Phone != "" {
		merged.Phone = updates.Phone
	}
	if updates.Address != nil {
		merged.Address = *updates.Address
	}
	if updates.IsPrimary != nil {
		merged.IsPrimary = *updates.IsPrimary
	}
	return &merged
}

func (s *contactService) mapRepoError(err error, id string) error {
	switch {
	case errors.Is(err, contactserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Emergency contact", id)
	case errors.Is(err, contactserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid emergency contact ID format")
	default:
		s.cfg.Log.Error("Emergency contact repository failure", "id", id, "error", err)
		return apperrors.Internal("Failed to access emergency contact", err)
	}
}
