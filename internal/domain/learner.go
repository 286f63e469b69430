package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrEmptyLearnerID      = errors.New("learner ID cannot be empty")
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 12 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrInvalidLearnerState = errors.New("invalid learner status")
)

// LearnerStatus represents the account standing of a learner.
// Only active learners are served review queues.
type LearnerStatus string

// Possible learner status values
const (
	LearnerStatusActive    LearnerStatus = "active"
	LearnerStatusSuspended LearnerStatus = "suspended"
)

// Learner represents a registered learner of the application.
// It contains essential account information and authentication details.
type Learner struct {
	ID             uuid.UUID     `json:"id"`
	Email          string        `json:"email"`
	Password       string        `json:"-"` // Plaintext password, used temporarily during registration/updates
	HashedPassword string        `json:"-"` // Never expose password hash in JSON
	Status         LearnerStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewLearner creates a new Learner with the given email and password.
// It generates a new UUID for the learner ID and sets the creation/update timestamps.
// Returns an error if validation fails.
//
// NOTE: This function only sets up the learner structure with the plaintext password.
// The caller is responsible for hashing the password before storing the learner.
func NewLearner(email, password string) (*Learner, error) {
	learner := &Learner{
		ID:        uuid.New(),
		Email:     email,
		Password:  password, // Plaintext password - must be hashed before storage
		Status:    LearnerStatusActive,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := learner.Validate(); err != nil {
		return nil, err
	}

	return learner, nil
}

// Validate checks if the Learner has valid data.
// Returns an error if any field fails validation.
func (l *Learner) Validate() error {
	if l.ID == uuid.Nil {
		return ErrEmptyLearnerID
	}

	if l.Email == "" {
		return ErrEmptyEmail
	}

	if !validateEmailFormat(l.Email) {
		return ErrInvalidEmail
	}

	switch l.Status {
	case LearnerStatusActive, LearnerStatusSuspended:
	default:
		return ErrInvalidLearnerState
	}

	// During registration/update we validate the provided plaintext password.
	// Existing learners loaded from the database carry only the hash.
	if l.Password != "" {
		if !validatePasswordLength(l.Password) {
			if len(l.Password) < 12 {
				return ErrPasswordTooShort
			}
			return ErrPasswordTooLong
		}
	} else if l.HashedPassword == "" {
		return ErrEmptyPassword
	}

	return nil
}

// IsActive reports whether the learner is eligible for review scheduling.
func (l *Learner) IsActive() bool {
	return l.Status == LearnerStatusActive
}

// validateEmailFormat performs basic validation of email format.
// Returns true if the email appears to be in a valid format.
func validateEmailFormat(email string) bool {
	atIndex := -1
	for i, char := range email {
		if char == '@' {
			atIndex = i
			break
		}
	}

	if atIndex == -1 || atIndex == 0 || atIndex == len(email)-1 {
		return false
	}

	domainPart := email[atIndex+1:]
	if len(domainPart) < 3 { // minimum would be "a.b"
		return false
	}

	dotIndex := -1
	for i, char := range domainPart {
		if char == '.' {
			dotIndex = i
			break
		}
	}

	if dotIndex == -1 || dotIndex == 0 || dotIndex == len(domainPart)-1 {
		return false
	}

	return true
}

// validatePasswordLength checks if a password meets length requirements:
// minimum 12 characters, maximum 72 characters (bcrypt's practical limit).
func validatePasswordLength(password string) bool {
	passLen := len(password)
	return passLen >= 12 && passLen <= 72
}
