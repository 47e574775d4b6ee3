package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type ContactMessageRepository interface {
	Create(ctx context.Context, m model.ContactMessage) error
}
