package usecase

import (
	"context"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type ContactUsecase struct {
	repo repo.ContactMessageRepository
}

func NewContactUsecase(r repo.ContactMessageRepository) *ContactUsecase {
	return &ContactUsecase{repo: r}
}

type ContactInput struct {
	Name    string
	Email   string
	Message string
}

func (u *ContactUsecase) Submit(ctx context.Context, in ContactInput) error {
	m := model.ContactMessage{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Message: strings.TrimSpace(in.Message),
	}
	if m.Name == "" || m.Email == "" || m.Message == "" {
		return NewHTTPError(http.StatusBadRequest, "Please fill in all required fields.")
	}

	if err := u.repo.Create(ctx, m); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
