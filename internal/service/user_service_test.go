package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uninotes-api/internal/dto"
	"github.com/noah-isme/uninotes-api/internal/models"
	appErrors "github.com/noah-isme/uninotes-api/pkg/errors"
	"github.com/noah-isme/uninotes-api/pkg/validation"
)

func registration(email string) dto.RegisterRequest {
	return dto.RegisterRequest{
		FullName:        "Alice Liddell",
		Email:           email,
		Faculty:         "Engineering",
		Prodi:           "CS",
		Password:        "Secret1",
		ConfirmPassword: "Secret1",
	}
}

func TestUserServiceRegisterHashesPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.userSvc.Register(ctx, registration("  Carol@X.com "))
	require.NoError(t, err)
	assert.Equal(t, "carol@x.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Empty(t, user.PasswordHash)

	stored, err := f.users.FindByEmail(ctx, "carol@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Secret1")))
}

func TestUserServiceRegisterRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	_, err := f.userSvc.Register(context.Background(), registration("ALICE@x.com"))
	requireCode(t, err, appErrors.ErrConflict)
}

func TestUserServiceRegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*dto.RegisterRequest)
		field string
	}{
		{name: "short name", edit: func(r *dto.RegisterRequest) { r.FullName = "Al" }, field: "fullName"},
		{name: "bad email", edit: func(r *dto.RegisterRequest) { r.Email = "not-an-email" }, field: "email"},
		{name: "missing prodi", edit: func(r *dto.RegisterRequest) { r.Prodi = "" }, field: "prodi"},
		{name: "short password", edit: func(r *dto.RegisterRequest) { r.Password, r.ConfirmPassword = "Ab1", "Ab1" }, field: "password"},
		{name: "lowercase password", edit: func(r *dto.RegisterRequest) { r.Password, r.ConfirmPassword = "secret1", "secret1" }, field: "password"},
		{name: "confirmation mismatch", edit: func(r *dto.RegisterRequest) { r.ConfirmPassword = "Secret2" }, field: "confirmPassword"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			req := registration("dave@x.com")
			tc.edit(&req)
			_, err := f.userSvc.Register(context.Background(), req)
			requireCode(t, err, appErrors.ErrValidation)
			assert.Contains(t, appErrors.FromError(err).Fields, tc.field)
		})
	}
}

func TestUserServiceUpdateProfileRefreshesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, err := f.users.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	require.NoError(t, f.sessions.Save(ctx, *alice))

	updated, err := f.userSvc.UpdateProfile(ctx, "alice@x.com", dto.UpdateProfileRequest{FullName: "Alice L.", Faculty: "Science", Prodi: "Math"})
	require.NoError(t, err)
	assert.Equal(t, "Science", updated.Faculty)
	assert.Equal(t, models.RoleUser, updated.Role)

	session, err := f.sessions.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", session.FullName)

	// another user's edit leaves the session alone
	_, err = f.userSvc.UpdateProfile(ctx, "bob@x.com", dto.UpdateProfileRequest{FullName: "Bobby", Faculty: "Economics", Prodi: "Finance"})
	require.NoError(t, err)
	session, err = f.sessions.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", session.Email)

	_, err = f.userSvc.UpdateProfile(ctx, "ghost@x.com", dto.UpdateProfileRequest{FullName: "Ghost", Faculty: "X", Prodi: "Y"})
	requireCode(t, err, appErrors.ErrNotFound)
}

func TestUserServicePromoteDemoteScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.userSvc.Register(ctx, dto.RegisterRequest{
		FullName: "Alice Engineer", Email: "alice2@x.com", Faculty: "Engineering", Prodi: "CS",
		Password: "Secret1", ConfirmPassword: "Secret1",
	})
	require.NoError(t, err)

	promoted, err := f.userSvc.Promote(ctx, adminActor, "alice2@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
	found, err := f.users.FindByEmail(ctx, "alice2@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, found.Role)

	demoted, err := f.userSvc.Demote(ctx, adminActor, "alice2@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, demoted.Role)

	assert.Equal(t, []string{"promote_user:alice2@x.com", "demote_admin:alice2@x.com"}, f.actions(t))
}

func TestUserServiceRoleChangeGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bobAdmin := models.Actor{Email: "bob@x.com", Role: models.RoleAdmin}

	_, err := f.userSvc.Promote(ctx, aliceActor, "bob@x.com")
	requireCode(t, err, appErrors.ErrForbidden)

	_, err = f.userSvc.Demote(ctx, adminActor, "admin@uninotes.com")
	requireCode(t, err, appErrors.ErrForbidden)

	super, err := f.userSvc.Demote(ctx, bobAdmin, "admin@uninotes.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, super.Role)

	again, err := f.userSvc.Promote(ctx, adminActor, "admin@uninotes.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, again.Role)

	_, err = f.userSvc.Promote(ctx, adminActor, "ghost@x.com")
	requireCode(t, err, appErrors.ErrNotFound)

	assert.Empty(t, f.actions(t))
}

func TestUserServiceLogFailureDoesNotFailPromotion(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.users, f.sessions, failingLog{}, nil, validation.New(), zap.NewNop())

	user, err := svc.Promote(context.Background(), adminActor, "bob@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestUserServiceListHidesHashes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.userSvc.Register(ctx, registration("erin@x.com"))
	require.NoError(t, err)

	users, err := f.userSvc.List(ctx, models.UserFilter{Search: "ERIN"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Empty(t, users[0].PasswordHash)

	admins, err := f.userSvc.List(ctx, models.UserFilter{Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "admin@uninotes.com", admins[0].Email)
}
