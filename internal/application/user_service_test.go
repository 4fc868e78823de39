package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/office-planner/internal/application"
	"github.com/example/office-planner/internal/testfixtures"
)

func registerParams(username string) application.RegisterParams {
	return application.RegisterParams{
		Username:        username,
		Email:           " Person@Example.com ",
		FirstName:       "Pat",
		LastName:        "Person",
		Password:        "s3cret-pass",
		PasswordConfirm: "s3cret-pass",
	}
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	svc := testfixtures.NewServiceFactory().NewUserService(harness.Store)

	user, err := svc.Register(ctx, registerParams("pat"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "person@example.com", user.Email)
	assert.False(t, user.IsAdmin)
	assert.Empty(t, user.Groups)

	_, err = svc.Register(ctx, registerParams("PAT"))
	assert.ErrorIs(t, err, application.ErrAlreadyExists)

	bad := registerParams("has space")
	bad.PasswordConfirm = "different"
	bad.Email = "not-an-email"
	_, err = svc.Register(ctx, bad)
	var vErr *application.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	for _, field := range []string{"username", "password_confirm", "email"} {
		assert.Contains(t, vErr.FieldErrors, field)
	}

	admin, err := svc.CreateAdministrator(ctx, registerParams("root"))
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
}

func TestUserService_AdminOperations(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	factory := testfixtures.NewServiceFactory()
	svc := factory.NewUserService(harness.Store)
	groups := factory.NewGroupService(harness.Store)
	require.NoError(t, groups.EnsureDefaultGroups(ctx, ""))

	admin := testfixtures.NewUserFixture(testfixtures.WithUserAdmin(true))
	harness.SeedUser(admin)
	member := harness.SeedUser(testfixtures.NewUserFixture())

	_, err := svc.ListUsers(ctx, application.Principal{UserID: member.ID})
	assert.ErrorIs(t, err, application.ErrUnauthorized)

	users, err := svc.ListUsers(ctx, admin.Principal())
	require.NoError(t, err)
	assert.Len(t, users, 2)

	updated, err := svc.UpdateUser(ctx, application.UpdateUserParams{
		Principal: admin.Principal(),
		UserID:    member.ID,
		Email:     "member@example.com",
		Groups:    []string{"Testers", "Keepers", "Testers"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Keepers", "Testers"}, updated.Groups)

	_, err = svc.UpdateUser(ctx, application.UpdateUserParams{
		Principal: admin.Principal(),
		UserID:    member.ID,
		Groups:    []string{"Astronauts"},
	})
	var vErr *application.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "group Astronauts does not exist", vErr.FieldErrors["groups"])

	self, err := svc.GetUser(ctx, application.Principal{UserID: member.ID}, member.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Keepers", "Testers"}, self.Groups)
	_, err = svc.GetUser(ctx, application.Principal{UserID: member.ID}, admin.ID)
	assert.ErrorIs(t, err, application.ErrUnauthorized)

	err = svc.DeleteUser(ctx, admin.Principal(), admin.ID)
	require.True(t, errors.As(err, &vErr))
	require.NoError(t, svc.DeleteUser(ctx, admin.Principal(), member.ID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, admin.Principal(), member.ID), application.ErrNotFound)
}

func TestGroupService_EnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	svc := testfixtures.NewServiceFactory().NewGroupService(harness.Store)

	require.NoError(t, svc.EnsureDefaultGroups(ctx, "Facilities"))
	require.NoError(t, svc.EnsureDefaultGroups(ctx, "Facilities"))

	groups, err := svc.ListGroups(ctx, application.Principal{UserID: "viewer"})
	require.NoError(t, err)
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	assert.Equal(t, []string{"Developers", "Facilities", "Keepers", "Testers"}, names)
}

func TestAuthService_LoginRefreshAuthenticate(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	factory := testfixtures.NewServiceFactory()
	users := factory.NewUserService(harness.Store)
	auth := factory.NewAuthService(harness.Store)

	registered, err := users.Register(ctx, registerParams("casey"))
	require.NoError(t, err)

	_, err = auth.Login(ctx, application.LoginParams{Username: "casey", Password: "wrong-pass"})
	assert.ErrorIs(t, err, application.ErrInvalidCredentials)
	_, err = auth.Login(ctx, application.LoginParams{Username: "nobody", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, application.ErrInvalidCredentials)

	pair, err := auth.Login(ctx, application.LoginParams{Username: "Casey", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, factory.Clock.Now().Add(15*time.Minute), pair.AccessExpiresAt)

	principal, err := auth.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, principal.UserID)
	assert.False(t, principal.IsAdmin)

	_, err = auth.Authenticate(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, application.ErrInvalidToken)

	factory.Clock.Advance(time.Hour)
	_, err = auth.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, application.ErrInvalidToken)

	refreshed, err := auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, refreshed.AccessToken)
	require.NoError(t, err)

	admin := testfixtures.AdminPrincipal()
	admin.UserID = "someone-else"
	require.NoError(t, users.DeleteUser(ctx, admin, registered.ID))
	_, err = auth.Authenticate(ctx, refreshed.AccessToken)
	assert.ErrorIs(t, err, application.ErrInvalidToken)
	_, err = auth.Refresh(ctx, refreshed.RefreshToken)
	assert.ErrorIs(t, err, application.ErrInvalidToken)
}
