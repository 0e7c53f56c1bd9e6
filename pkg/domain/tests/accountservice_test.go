package tests

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen/pkg/domain/model"
	"canteen/pkg/domain/service"
)

func setupAccounts(t *testing.T) (service.AccountService, *mockUserRepository, *mockEventDispatcher) {
	repo := newMockUserRepository()
	dispatcher := &mockEventDispatcher{}
	accountService := service.NewAccountService(repo, dispatcher)
	return accountService, repo, dispatcher
}

func TestEnsureUser(t *testing.T) {
	accountService, repo, dispatcher := setupAccounts(t)
	identity := model.Identity{UID: "uid-1", Email: "asha@example.com", DisplayName: "Asha", PhotoURL: "https://p/asha"}

	t.Run("First sign-in creates the user", func(t *testing.T) {
		user, err := accountService.EnsureUser(context.Background(), identity)

		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "asha@example.com", user.Email)
		assert.False(t, user.IsStaff)
		assert.False(t, user.IsAdmin)

		saved, err := repo.FindByEmail(context.Background(), identity.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, saved.ID)

		require.Len(t, dispatcher.events, 1)
		event, ok := dispatcher.events[0].(model.UserSignedIn)
		require.True(t, ok)
		assert.Equal(t, user.ID, event.UserID)
	})

	t.Run("Second sign-in reuses the row", func(t *testing.T) {
		dispatcher.Reset()
		first, _ := repo.FindByEmail(context.Background(), identity.Email)

		user, err := accountService.EnsureUser(context.Background(), identity)

		require.NoError(t, err)
		assert.Equal(t, first.ID, user.ID)
		assert.Len(t, repo.store, 1, "no duplicate row for the same email")
		assert.Empty(t, dispatcher.events)
	})

	t.Run("Changed profile is refreshed", func(t *testing.T) {
		changed := identity
		changed.DisplayName = "Asha K"

		user, err := accountService.EnsureUser(context.Background(), changed)

		require.NoError(t, err)
		assert.Equal(t, "Asha K", user.DisplayName)
		saved, _ := repo.FindByEmail(context.Background(), identity.Email)
		assert.Equal(t, "Asha K", saved.DisplayName)
	})

	t.Run("Fail on missing email", func(t *testing.T) {
		_, err := accountService.EnsureUser(context.Background(), model.Identity{UID: "uid-2"})
		assert.ErrorIs(t, err, service.ErrEmailRequired)
	})
}

func TestActor(t *testing.T) {
	accountService, repo, _ := setupAccounts(t)
	staff := repo.put(&model.User{ID: uuid.New(), Email: "staff@example.com", IsStaff: true})

	actor, err := accountService.Actor(context.Background(), "staff@example.com")
	require.NoError(t, err)
	assert.Equal(t, staff.ID, actor.UserID)
	assert.True(t, actor.IsStaff)
	assert.False(t, actor.IsAdmin)

	_, err = accountService.Actor(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}
