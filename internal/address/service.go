package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes address book operations for a customer.
type Service struct {
	tx   txRunner
	repo AddressRepository
}

// NewService builds the address service.
func NewService(tx txRunner, repo AddressRepository) (*Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &Service{tx: tx, repo: repo}, nil
}

// List returns the user's addresses, default first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get returns the user's address or a not-found error.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	row, err := s.repo.FindByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return row, nil
}

// Create adds an address to the user's book. The first address becomes the
// default regardless of the input flag; a later address flagged as default
// takes the flag over from the current holder.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input AddressInput) (*models.Address, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	row := &models.Address{
		UserID:     userID,
		Name:       strings.TrimSpace(input.Name),
		Phone:      strings.TrimSpace(input.Phone),
		Line1:      strings.TrimSpace(input.Line1),
		Line2:      input.Line2,
		City:       strings.TrimSpace(input.City),
		State:      strings.TrimSpace(input.State),
		PostalCode: strings.TrimSpace(input.PostalCode),
		IsDefault:  input.IsDefault,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		count, err := repo.CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if count == 0 {
			row.IsDefault = true
		} else if row.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		return repo.Create(ctx, row)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Update replaces the editable fields of the user's address.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, input AddressInput) (*models.Address, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var updated *models.Address
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		row, err := repo.FindByIDForUser(ctx, id, userID)
		if err != nil {
			return err
		}
		if row == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}

		if input.IsDefault && !row.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}

		row.Name = strings.TrimSpace(input.Name)
		row.Phone = strings.TrimSpace(input.Phone)
		row.Line1 = strings.TrimSpace(input.Line1)
		row.Line2 = input.Line2
		row.City = strings.TrimSpace(input.City)
		row.State = strings.TrimSpace(input.State)
		row.PostalCode = strings.TrimSpace(input.PostalCode)
		if input.IsDefault {
			row.IsDefault = true
		}

		if err := repo.Update(ctx, row); err != nil {
			return err
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the user's address.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return err
}

// SetDefault makes the address the user's default, unsetting every other
// address in the same transaction.
func (s *Service) SetDefault(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	var row *models.Address
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.FindByIDForUser(ctx, id, userID)
		if err != nil {
			return err
		}
		if found == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}

		if err := repo.ClearDefault(ctx, userID); err != nil {
			return err
		}
		if err := repo.MarkDefault(ctx, id, userID); err != nil {
			return err
		}
		found.IsDefault = true
		row = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func validateInput(input AddressInput) error {
	missing := []string{}
	for field, value := range map[string]string{
		"name":       input.Name,
		"phone":      input.Phone,
		"line1":      input.Line1,
		"city":       input.City,
		"state":      input.State,
		"postalCode": input.PostalCode,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "address is missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}
	return nil
}
