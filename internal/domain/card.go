package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardLearnerIDEmpty is returned when a card's learner ID is empty or nil.
	ErrCardLearnerIDEmpty = errors.New("card learner ID cannot be empty")

	// ErrCardContentEmpty is returned when a card's content is empty.
	ErrCardContentEmpty = errors.New("card content cannot be empty")

	// ErrCardContentInvalid is returned when a card's content is not valid JSON.
	ErrCardContentInvalid = errors.New("card content must be valid JSON")

	// ErrCardPositionNegative is returned when a card's position is negative.
	ErrCardPositionNegative = errors.New("card position cannot be negative")
)

// Card represents a unit of study material assigned to a learner.
// The content is stored as a JSONB structure, allowing for flexible
// card formats and future extensibility.
//
// Position fixes the order in which unseen cards are introduced to the
// learner. New-card queues sort by it, never randomly, so learners meet
// new material in a stable curriculum sequence.
type Card struct {
	ID        uuid.UUID       `json:"id"`
	LearnerID uuid.UUID       `json:"learner_id"`
	Content   json.RawMessage `json:"content"`
	Position  int             `json:"position"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CardContent represents the structure of the content field in a Card.
// This is provided as a sample structure but cards can have flexible content
// as it's stored as a JSONB field.
type CardContent struct {
	Front    string   `json:"front"`
	Back     string   `json:"back"`
	Hint     string   `json:"hint,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// NewCard creates a new Card assigned to the given learner with the given
// content and introduction position. It generates a new UUID for the card ID
// and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewCard(learnerID uuid.UUID, content json.RawMessage, position int) (*Card, error) {
	card := &Card{
		ID:        uuid.New(),
		LearnerID: learnerID,
		Content:   content,
		Position:  position,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.LearnerID == uuid.Nil {
		return ErrCardLearnerIDEmpty
	}

	if len(c.Content) == 0 {
		return ErrCardContentEmpty
	}

	var js json.RawMessage
	if err := json.Unmarshal(c.Content, &js); err != nil {
		return ErrCardContentInvalid
	}

	if c.Position < 0 {
		return ErrCardPositionNegative
	}

	return nil
}
