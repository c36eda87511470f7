package service

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/huriachi/collectiv/internal/entity"
)

const (
	minFieldLength    = 1
	maxFieldLength    = 255
	minPasswordLength = 5
)

// UserForm carries the raw submitted form fields for a create or update.
type UserForm struct {
	FirstName      string `json:"firstname" form:"firstname"`
	LastName       string `json:"lastname" form:"lastname"`
	Email          string `json:"email" form:"email"`
	Username       string `json:"username" form:"username"`
	Password       string `json:"password" form:"password"`
	PasswordVerify string `json:"password_verify" form:"password_verify"`
}

// checkLength validates that value is within [min, max] characters and
// returns a user-facing message when it is not.
func checkLength(value string, min, max int) string {
	if len(value) < min {
		return fmt.Sprintf("This is a bit too short. Please use at least %d characters.", min)
	}
	if len(value) > max {
		return fmt.Sprintf("This is a bit too long. Please use at most %d characters.", max)
	}
	return ""
}

// checkEmailSyntax validates that value parses as an RFC address.
func checkEmailSyntax(value string) string {
	if _, err := mail.ParseAddress(value); err != nil {
		return "This is not a valid email."
	}
	return ""
}

// checkUnique validates that value is not already taken by a different
// record. The original value exempts a record's own current value on update.
func (s *UserService) checkUnique(ctx context.Context, field, value, original string) (string, error) {
	unique, err := s.userRepo.IsFieldUnique(ctx, field, value, original)
	if err != nil {
		return "", err
	}
	if !unique {
		return "This is already in use.", nil
	}
	return "", nil
}

// formErrors validates every field of the submitted form and collects one
// message per failing field. A nil current means a create; on update, current
// supplies the uniqueness exemption baselines and makes the password fields
// optional. Length and format failures win over uniqueness for the same
// field. A non-nil error means a check could not be performed at all, not
// that the form is invalid.
func (s *UserService) formErrors(ctx context.Context, form *UserForm, current *entity.User) (map[string]string, error) {
	errs := map[string]string{}

	if msg := checkLength(form.FirstName, minFieldLength, maxFieldLength); msg != "" {
		errs["firstname"] = msg
	}

	if msg := checkLength(form.LastName, minFieldLength, maxFieldLength); msg != "" {
		errs["lastname"] = msg
	}

	if msg := checkEmailSyntax(form.Email); msg != "" {
		errs["email"] = msg
	} else {
		original := ""
		if current != nil {
			original = current.Email
		}
		msg, err := s.checkUnique(ctx, "email", form.Email, original)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			errs["email"] = msg
		}
	}

	if msg := checkLength(form.Username, minFieldLength, maxFieldLength); msg != "" {
		errs["username"] = msg
	} else {
		original := ""
		if current != nil {
			original = current.Username
		}
		msg, err := s.checkUnique(ctx, "username", form.Username, original)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			errs["username"] = msg
		}
	}

	// The password is optional when editing: leaving it blank keeps the
	// stored hash.
	if current == nil || form.Password != "" {
		msg := checkLength(form.Password, minPasswordLength, maxFieldLength)
		if msg == "" && form.Password != form.PasswordVerify {
			msg = "Your passwords do not match."
		}
		if msg != "" {
			errs["password"] = msg
			errs["password_verify"] = msg
		}
	}

	return errs, nil
}
