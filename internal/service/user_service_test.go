package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/huriachi/collectiv/internal/entity"
	"github.com/huriachi/collectiv/internal/repository"
)

// --- helpers ---

type fakeUserRepo struct {
	users  map[int]*entity.User
	nextID int

	lastUpdatePassword *string

	createErr error
	getErr    error
	deleteErr error
}

func newFakeUserRepo(seed ...*entity.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[int]*entity.User{}, nextID: 1}
	for _, u := range seed {
		copied := *u
		repo.users[u.ID] = &copied
		if u.ID >= repo.nextID {
			repo.nextID = u.ID + 1
		}
	}
	return repo
}

func (f *fakeUserRepo) GetAll(ctx context.Context) ([]*entity.User, error) {
	var users []*entity.User
	for id := 1; id < f.nextID; id++ {
		if u, ok := f.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (*entity.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user *entity.User, password string) (*entity.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	user.ID = f.nextID
	f.nextID++
	user.PasswordHash = "hashed:" + password
	copied := *user
	f.users[user.ID] = &copied
	return user, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *entity.User, password string) (*entity.User, error) {
	f.lastUpdatePassword = &password
	stored, ok := f.users[user.ID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	if password != "" {
		user.PasswordHash = "hashed:" + password
	} else {
		user.PasswordHash = stored.PasswordHash
	}
	copied := *user
	f.users[user.ID] = &copied
	return user, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id int) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) IsFieldUnique(ctx context.Context, field, value, original string) (bool, error) {
	for _, u := range f.users {
		var stored string
		switch field {
		case "email":
			stored = u.Email
		case "username":
			stored = u.Username
		}
		if stored == value {
			return value == original, nil
		}
	}
	return true, nil
}

func (f *fakeUserRepo) Reset(ctx context.Context) error {
	f.users = map[int]*entity.User{}
	f.nextID = 1
	return nil
}

func validForm() *UserForm {
	return &UserForm{
		FirstName:      "Jane",
		LastName:       "Doe",
		Email:          "jane@example.com",
		Username:       "jdoe",
		Password:       "secret",
		PasswordVerify: "secret",
	}
}

// --- tests ---

func TestCreateUser_Success(t *testing.T) {
	t.Setenv("ENV", "test")
	repo := newFakeUserRepo()
	svc := NewUserService(repo, nil, nil)

	envelope, err := svc.CreateUser(context.Background(), validForm(), "")
	require.NoError(t, err)
	require.True(t, envelope.Success)
	require.Equal(t, "The user has been created.", envelope.Message)
	require.Empty(t, envelope.Errors)

	user, err := svc.GetUser(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "Jane", user.FirstName)
	require.Equal(t, "Doe", user.Surname)
	require.Equal(t, "jane@example.com", user.Email)
	require.Equal(t, "jdoe", user.Username)
}

func TestCreateUser_MismatchedPasswords(t *testing.T) {
	t.Setenv("ENV", "test")
	repo := newFakeUserRepo()
	svc := NewUserService(repo, nil, nil)

	form := validForm()
	form.PasswordVerify = "secrets"

	envelope, err := svc.CreateUser(context.Background(), form, "")
	require.NoError(t, err)
	require.False(t, envelope.Success)
	require.Equal(t, "Please check the indicated fields for issues.", envelope.Message)
	require.Equal(t, "Your passwords do not match.", envelope.Errors["password"])
	require.Equal(t, "Your passwords do not match.", envelope.Errors["password_verify"])

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	t.Setenv("ENV", "test")
	existing := &entity.User{ID: 1, FirstName: "Ann", Surname: "Smith", Email: "a@x.com", Username: "asmith"}
	svc := NewUserService(newFakeUserRepo(existing), nil, nil)

	form := validForm()
	form.Email = "a@x.com"

	envelope, err := svc.CreateUser(context.Background(), form, "")
	require.NoError(t, err)
	require.False(t, envelope.Success)
	require.Equal(t, "This is already in use.", envelope.Errors["email"])
}

func TestCreateUser_RepoFailurePropagates(t *testing.T) {
	t.Setenv("ENV", "test")
	repo := newFakeUserRepo()
	repo.createErr = repository.ErrDuplicateField
	svc := NewUserService(repo, nil, nil)

	envelope, err := svc.CreateUser(context.Background(), validForm(), "")
	require.Nil(t, envelope)
	require.ErrorIs(t, err, repository.ErrDuplicateField)
}

func TestUpdateUser_OwnEmailExemptFromUniqueness(t *testing.T) {
	t.Setenv("ENV", "test")
	existing := &entity.User{ID: 1, FirstName: "Ann", Surname: "Smith", Email: "a@x.com", Username: "asmith", PasswordHash: "hashed:old"}
	svc := NewUserService(newFakeUserRepo(existing), nil, nil)

	form := &UserForm{FirstName: "Ann", LastName: "Smith", Email: "a@x.com", Username: "asmith"}
	envelope, err := svc.UpdateUser(context.Background(), 1, form)
	require.NoError(t, err)
	require.True(t, envelope.Success)
	require.Equal(t, "The user has been edited.", envelope.Message)
}

func TestUpdateUser_EmptyPasswordKeepsHash(t *testing.T) {
	t.Setenv("ENV", "test")
	existing := &entity.User{ID: 1, FirstName: "Ann", Surname: "Smith", Email: "a@x.com", Username: "asmith", PasswordHash: "hashed:old"}
	repo := newFakeUserRepo(existing)
	svc := NewUserService(repo, nil, nil)

	form := &UserForm{FirstName: "Ann", LastName: "Smith", Email: "a@x.com", Username: "asmith"}
	_, err := svc.UpdateUser(context.Background(), 1, form)
	require.NoError(t, err)
	require.NotNil(t, repo.lastUpdatePassword)
	require.Equal(t, "", *repo.lastUpdatePassword)
	require.Equal(t, "hashed:old", repo.users[1].PasswordHash)
}

func TestUpdateUser_NewPasswordReplacesHash(t *testing.T) {
	t.Setenv("ENV", "test")
	existing := &entity.User{ID: 1, FirstName: "Ann", Surname: "Smith", Email: "a@x.com", Username: "asmith", PasswordHash: "hashed:old"}
	repo := newFakeUserRepo(existing)
	svc := NewUserService(repo, nil, nil)

	form := &UserForm{FirstName: "Ann", LastName: "Smith", Email: "a@x.com", Username: "asmith", Password: "newsecret", PasswordVerify: "newsecret"}
	_, err := svc.UpdateUser(context.Background(), 1, form)
	require.NoError(t, err)
	require.Equal(t, "newsecret", *repo.lastUpdatePassword)
	require.Equal(t, "hashed:newsecret", repo.users[1].PasswordHash)
}

func TestUpdateUser_NotFound(t *testing.T) {
	t.Setenv("ENV", "test")
	svc := NewUserService(newFakeUserRepo(), nil, nil)

	envelope, err := svc.UpdateUser(context.Background(), 42, validForm())
	require.Nil(t, envelope)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestDeleteUser_MissingIDSucceeds(t *testing.T) {
	t.Setenv("ENV", "test")
	repo := newFakeUserRepo()
	svc := NewUserService(repo, nil, nil)

	err := svc.DeleteUser(context.Background(), 99)
	require.NoError(t, err)
	require.Empty(t, repo.users)
}

func TestDeleteUser_RemovesRecord(t *testing.T) {
	t.Setenv("ENV", "test")
	existing := &entity.User{ID: 1, FirstName: "Ann", Surname: "Smith", Email: "a@x.com", Username: "asmith"}
	repo := newFakeUserRepo(existing)
	svc := NewUserService(repo, nil, nil)

	err := svc.DeleteUser(context.Background(), 1)
	require.NoError(t, err)
	_, err = svc.GetUser(context.Background(), 1)
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestResetDatabase(t *testing.T) {
	t.Setenv("ENV", "test")
	existing := &entity.User{ID: 1, FirstName: "Ann", Surname: "Smith", Email: "a@x.com", Username: "asmith"}
	repo := newFakeUserRepo(existing)
	svc := NewUserService(repo, nil, nil)

	require.NoError(t, svc.ResetDatabase(context.Background()))
	require.Empty(t, repo.users)
}

func TestListUsers_NeverExposesHash(t *testing.T) {
	t.Setenv("ENV", "test")
	repo := newFakeUserRepo()
	svc := NewUserService(repo, nil, nil)

	_, err := svc.CreateUser(context.Background(), validForm(), "")
	require.NoError(t, err)

	users, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	// The hash travels inside the entity but the json tag keeps it out of
	// every serialized form.
	require.True(t, strings.HasPrefix(users[0].PasswordHash, "hashed:"))
}

func TestCreateUser_IdempotentKeySkippedInTests(t *testing.T) {
	t.Setenv("ENV", "test")
	svc := NewUserService(newFakeUserRepo(), nil, nil)

	envelope, err := svc.CreateUser(context.Background(), validForm(), "some-key")
	require.NoError(t, err)
	require.True(t, envelope.Success)
	require.False(t, errors.Is(err, ErrDuplicateRequest))
}
