package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestNewCard(t *testing.T) {
	t.Parallel() // Enable parallel execution
	// Test valid card creation
	learnerID := uuid.New()
	content := json.RawMessage(`{"front": "What is Go?", "back": "A programming language"}`)

	card, err := NewCard(learnerID, content, 3)

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if card.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if card.LearnerID != learnerID {
		t.Errorf("Expected learner ID %s, got %s", learnerID, card.LearnerID)
	}

	if card.Position != 3 {
		t.Errorf("Expected position 3, got %d", card.Position)
	}

	if string(card.Content) != string(content) {
		t.Errorf("Expected content %s, got %s", string(content), string(card.Content))
	}

	if card.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	if card.UpdatedAt.IsZero() {
		t.Error("Expected non-zero UpdatedAt time")
	}

	// Test invalid learnerID
	_, err = NewCard(uuid.Nil, content, 0)
	if err != ErrCardLearnerIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrCardLearnerIDEmpty, err)
	}

	// Test empty content
	_, err = NewCard(learnerID, nil, 0)
	if err != ErrCardContentEmpty {
		t.Errorf("Expected error %v, got %v", ErrCardContentEmpty, err)
	}

	// Test invalid JSON content
	invalidJSON := json.RawMessage(`{"front": "broken JSON`)
	_, err = NewCard(learnerID, invalidJSON, 0)
	if err != ErrCardContentInvalid {
		t.Errorf("Expected error %v, got %v", ErrCardContentInvalid, err)
	}

	// Test negative position
	_, err = NewCard(learnerID, content, -1)
	if err != ErrCardPositionNegative {
		t.Errorf("Expected error %v, got %v", ErrCardPositionNegative, err)
	}
}

func TestCardValidate(t *testing.T) {
	t.Parallel()

	validContent := json.RawMessage(`{"front": "Question", "back": "Answer"}`)

	valid := &Card{
		ID:        uuid.New(),
		LearnerID: uuid.New(),
		Content:   validContent,
		Position:  0,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid card, got error %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(c *Card)
		wantErr error
	}{
		{
			name:    "nil ID",
			mutate:  func(c *Card) { c.ID = uuid.Nil },
			wantErr: ErrCardIDEmpty,
		},
		{
			name:    "nil learner ID",
			mutate:  func(c *Card) { c.LearnerID = uuid.Nil },
			wantErr: ErrCardLearnerIDEmpty,
		},
		{
			name:    "empty content",
			mutate:  func(c *Card) { c.Content = nil },
			wantErr: ErrCardContentEmpty,
		},
		{
			name:    "invalid JSON content",
			mutate:  func(c *Card) { c.Content = json.RawMessage(`not json`) },
			wantErr: ErrCardContentInvalid,
		},
		{
			name:    "negative position",
			mutate:  func(c *Card) { c.Position = -5 },
			wantErr: ErrCardPositionNegative,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			card := &Card{
				ID:        uuid.New(),
				LearnerID: uuid.New(),
				Content:   validContent,
				Position:  1,
			}
			tt.mutate(card)
			if err := card.Validate(); err != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCardContentRoundTrip(t *testing.T) {
	t.Parallel()

	content := CardContent{
		Front: "What is the capital of France?",
		Back:  "Paris",
		Tags:  []string{"geography"},
	}

	data, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("Expected no error marshaling content, got %v", err)
	}

	card, err := NewCard(uuid.New(), data, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var decoded CardContent
	if err := json.Unmarshal(card.Content, &decoded); err != nil {
		t.Fatalf("Expected no error unmarshaling content, got %v", err)
	}

	if decoded.Front != content.Front || decoded.Back != content.Back {
		t.Errorf("Expected content %+v, got %+v", content, decoded)
	}
}
