package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/pagination"
)

type stubReviewRepo struct {
	rows map[string]*models.ProductReview
}

func reviewKey(userID, productID uuid.UUID) string {
	return userID.String() + "/" + productID.String()
}

func newStubReviewRepo() *stubReviewRepo {
	return &stubReviewRepo{rows: map[string]*models.ProductReview{}}
}

func (s *stubReviewRepo) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*models.ProductReview, error) {
	row, ok := s.rows[reviewKey(userID, productID)]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (s *stubReviewRepo) Upsert(ctx context.Context, row *models.ProductReview) error {
	key := reviewKey(row.UserID, row.ProductID)
	if existing, ok := s.rows[key]; ok {
		existing.Rating = row.Rating
		existing.Comment = row.Comment
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	stored := *row
	s.rows[key] = &stored
	return nil
}

func (s *stubReviewRepo) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error) {
	out := []models.ProductReview{}
	for _, row := range s.rows {
		if row.ProductID == productID {
			out = append(out, *row)
		}
	}
	return &ReviewList{Reviews: out}, nil
}

func (s *stubReviewRepo) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	delete(s.rows, reviewKey(userID, productID))
	return nil
}

type stubProductLoader struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProductLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.products[id], nil
}

func newReviewService(t *testing.T) (*Service, *stubReviewRepo, uuid.UUID) {
	t.Helper()
	repo := newStubReviewRepo()
	productID := uuid.New()
	loader := &stubProductLoader{products: map[uuid.UUID]*models.Product{
		productID: {ID: productID, Name: "Electric Kettle", IsActive: true},
	}}
	svc, err := NewService(repo, loader)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo, productID
}

func TestPutCreatesReview(t *testing.T) {
	svc, _, productID := newReviewService(t)
	userID := uuid.New()

	comment := "boils fast, lid feels flimsy"
	row, err := svc.Put(context.Background(), userID, productID, ReviewInput{Rating: 4, Comment: &comment})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if row.Rating != 4 || row.Comment == nil || *row.Comment != comment {
		t.Fatalf("unexpected stored review: %+v", row)
	}
}

func TestPutReplacesOwnReview(t *testing.T) {
	svc, repo, productID := newReviewService(t)
	userID := uuid.New()

	if _, err := svc.Put(context.Background(), userID, productID, ReviewInput{Rating: 2}); err != nil {
		t.Fatalf("Put first: %v", err)
	}
	row, err := svc.Put(context.Background(), userID, productID, ReviewInput{Rating: 5})
	if err != nil {
		t.Fatalf("Put second: %v", err)
	}

	if row.Rating != 5 {
		t.Fatalf("expected rating replaced, got %d", row.Rating)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected one row per (user, product), got %d", len(repo.rows))
	}
}

func TestPutRejectsOutOfRangeRating(t *testing.T) {
	svc, repo, productID := newReviewService(t)

	for _, rating := range []int{0, -1, 6} {
		_, err := svc.Put(context.Background(), uuid.New(), productID, ReviewInput{Rating: rating})
		if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
			t.Fatalf("rating %d: expected validation error, got %v", rating, err)
		}
	}
	if len(repo.rows) != 0 {
		t.Fatalf("expected no rows written, got %d", len(repo.rows))
	}
}

func TestPutUnknownProduct(t *testing.T) {
	svc, _, _ := newReviewService(t)

	_, err := svc.Put(context.Background(), uuid.New(), uuid.New(), ReviewInput{Rating: 3})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPutBlankCommentDropped(t *testing.T) {
	svc, _, productID := newReviewService(t)

	blank := "   "
	row, err := svc.Put(context.Background(), uuid.New(), productID, ReviewInput{Rating: 3, Comment: &blank})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if row.Comment != nil {
		t.Fatalf("expected blank comment stored as null, got %q", *row.Comment)
	}
}
