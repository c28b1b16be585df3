package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/sipledger-backend/internal/domain"
	"github.com/simaogato/sipledger-backend/internal/domain/mocks"
)

func newService(repo *mocks.NotificationRepository) *NotificationService {
	service := NewNotificationService(repo, zerolog.Nop())
	service.Now = func() time.Time { return time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC) }
	return service
}

func TestNotify(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.NotificationRepository)
	service := newService(repo)

	userID, planID := uuid.New(), uuid.New()
	repo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == userID && *n.PlanID == planID && !n.Read && n.Kind == "DUE_TOMORROW"
	})).Return(nil)

	n, err := service.Notify(ctx, userID, &planID, "DUE_TOMORROW", "Installment due tomorrow")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.Equal(t, time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC), n.CreatedAt)
	repo.AssertExpectations(t)
}

func TestNotify_InvalidInput(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.NotificationRepository)
	service := newService(repo)

	_, err := service.Notify(ctx, uuid.Nil, nil, "", "hello")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = service.Notify(ctx, uuid.New(), nil, "", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNotify_StoreFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.NotificationRepository)
	service := newService(repo)

	repo.On("Create", ctx, mock.Anything).Return(assert.AnError)

	_, err := service.Notify(ctx, uuid.New(), nil, "", "hello")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestMarkRead_ForeignNotificationIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.NotificationRepository)
	service := newService(repo)

	id, owner, stranger := uuid.New(), uuid.New(), uuid.New()
	repo.On("MarkRead", ctx, id, owner).Return(nil)
	repo.On("MarkRead", ctx, id, stranger).Return(domain.NewError(domain.KindNotFound, "test", "missing"))

	assert.NoError(t, service.MarkRead(ctx, id, owner))
	assert.ErrorIs(t, service.MarkRead(ctx, id, stranger), domain.ErrNotFound)
}
