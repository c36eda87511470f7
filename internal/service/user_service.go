package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/huriachi/collectiv/internal/entity"
	"github.com/huriachi/collectiv/internal/repository"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// ErrDuplicateRequest is returned when a create carries an idempotency key
// that has already been used.
var ErrDuplicateRequest = errors.New("request has already been processed")

const (
	checkFieldsMessage = "Please check the indicated fields for issues."
	createdMessage     = "The user has been created."
	editedMessage      = "The user has been edited."
)

// Envelope is the structured response shape handed back to the presentation
// layer for form submissions.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// UserService orchestrates validation and persistence for user records.
type UserService struct {
	userRepo    repository.UserRepository
	kafkaWriter *kafka.Writer
	rdb         *redis.Client
}

// NewUserService creates a new instance of UserService.
func NewUserService(userRepo repository.UserRepository, kafkaWriter *kafka.Writer, rdb *redis.Client) *UserService {
	return &UserService{
		userRepo:    userRepo,
		kafkaWriter: kafkaWriter,
		rdb:         rdb,
	}
}

// ListUsers retrieves all users.
func (s *UserService) ListUsers(ctx context.Context) ([]*entity.User, error) {
	users, err := s.userRepo.GetAll(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing users")
		return nil, err
	}

	return users, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, id int) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			logger.Error().Err(err).Msgf("Error getting user by ID %d", id)
		}
		return nil, err
	}

	return user, nil
}

// CreateUser validates the submitted form and persists a new user. Validation
// failures come back inside the envelope, never as an error. An optional
// idempotency key guards against double submits.
func (s *UserService) CreateUser(ctx context.Context, form *UserForm, idempotentKey string) (*Envelope, error) {
	if idempotentKey != "" {
		valid, err := s.validateIdempotentKey(ctx, idempotentKey)
		if err != nil {
			return nil, err
		}
		if !valid {
			return nil, ErrDuplicateRequest
		}
	}

	fieldErrors, err := s.formErrors(ctx, form, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Error validating user form")
		return nil, err
	}

	if len(fieldErrors) > 0 {
		return &Envelope{Success: false, Message: checkFieldsMessage, Errors: fieldErrors}, nil
	}

	user := &entity.User{
		FirstName: form.FirstName,
		Surname:   form.LastName,
		Email:     form.Email,
		Username:  form.Username,
	}

	created, err := s.userRepo.Create(ctx, user, form.Password)
	if err != nil {
		logger.Error().Err(err).Msg("Error creating user")
		return nil, err
	}

	if err := s.publishUserEvent(ctx, created, "created"); err != nil {
		return nil, err
	}

	return &Envelope{Success: true, Message: createdMessage}, nil
}

// UpdateUser validates the submitted form against the existing record and
// persists the changes. An empty password field keeps the stored hash.
func (s *UserService) UpdateUser(ctx context.Context, id int, form *UserForm) (*Envelope, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			logger.Error().Err(err).Msgf("Error getting user by ID %d", id)
		}
		return nil, err
	}

	fieldErrors, err := s.formErrors(ctx, form, user)
	if err != nil {
		logger.Error().Err(err).Msg("Error validating user form")
		return nil, err
	}

	if len(fieldErrors) > 0 {
		return &Envelope{Success: false, Message: checkFieldsMessage, Errors: fieldErrors}, nil
	}

	user.FirstName = form.FirstName
	user.Surname = form.LastName
	user.Email = form.Email
	user.Username = form.Username

	updated, err := s.userRepo.Update(ctx, user, form.Password)
	if err != nil {
		logger.Error().Err(err).Msg("Error updating user")
		return nil, err
	}

	if err := s.publishUserEvent(ctx, updated, "edited"); err != nil {
		return nil, err
	}

	return &Envelope{Success: true, Message: editedMessage}, nil
}

// DeleteUser removes a user. Deleting an id that does not exist succeeds
// quietly.
func (s *UserService) DeleteUser(ctx context.Context, id int) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		logger.Error().Err(err).Msgf("Error deleting user %d", id)
		return err
	}

	return s.publishUserEvent(ctx, &entity.User{ID: id}, "deleted")
}

// ResetDatabase wipes all users and reloads the seed dataset.
func (s *UserService) ResetDatabase(ctx context.Context) error {
	if err := s.userRepo.Reset(ctx); err != nil {
		logger.Error().Err(err).Msg("Error resetting database")
		return err
	}
	return nil
}

type userEvent struct {
	EventID string       `json:"event_id"`
	Action  string       `json:"action"`
	User    *entity.User `json:"user"`
}

func (s *UserService) publishUserEvent(ctx context.Context, user *entity.User, action string) error {
	// if env is set to test, return
	if os.Getenv("ENV") == "test" || s.kafkaWriter == nil {
		return nil
	}

	payload, err := json.Marshal(userEvent{
		EventID: uuid.NewString(),
		Action:  action,
		User:    user,
	})
	if err != nil {
		return err
	}

	// user-created-1, user-edited-1 or user-deleted-1
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("user-%s-%d", action, user.ID)),
		Value: payload,
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Error().Err(err).Msgf("Error publishing user %s event", action)
		return err
	}

	return nil
}

func (s *UserService) validateIdempotentKey(ctx context.Context, key string) (bool, error) {
	// if env is set to test, return true
	if os.Getenv("ENV") == "test" || s.rdb == nil {
		return true, nil
	}

	// check if the key exists in the redis cache
	// if it exists, the request is a replay
	redisKey := fmt.Sprintf("idempotent-key:%s", key)
	val, err := s.rdb.Get(ctx, redisKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}

	if val != "" {
		return false, nil
	}

	// if it doesn't exist, add the key to the cache with a TTL of 24 hours
	if err := s.rdb.Set(ctx, redisKey, "exists", 24*time.Hour).Err(); err != nil {
		return false, err
	}

	return true, nil
}
