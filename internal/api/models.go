package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/recallhq/engram-api/internal/domain"
	"github.com/recallhq/engram-api/internal/service/scheduler"
)

// Common request/response structures

// RegisterRequest defines the payload for the learner registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the learner login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// LearnerID is the unique identifier for the authenticated learner
	LearnerID uuid.UUID `json:"learner_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	// RefreshToken is the JWT refresh token to be used to obtain a new token pair
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	// AccessToken is the new JWT token used for API authorization
	AccessToken string `json:"access_token"`

	// RefreshToken is the new JWT token used to obtain future access tokens
	RefreshToken string `json:"refresh_token"`
}

// RecordReviewRequest defines the payload for recording a card review.
type RecordReviewRequest struct {
	// Rating is the review grade: 1 (again) through 4 (easy)
	Rating int `json:"rating" validate:"required,min=1,max=4"`

	// SessionID optionally groups reviews into a practice session
	SessionID *uuid.UUID `json:"session_id,omitempty"`
}

// MemoryStateResponse represents the cached memory state for a
// (learner, card) pair after a review.
type MemoryStateResponse struct {
	LearnerID      uuid.UUID  `json:"learner_id"`
	CardID         uuid.UUID  `json:"card_id"`
	Stability      float64    `json:"stability"`
	Difficulty     float64    `json:"difficulty"`
	DueAt          time.Time  `json:"due_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	RepCount       int        `json:"rep_count"`
	LapseCount     int        `json:"lapse_count"`
	Stage          string     `json:"stage"`
}

// QueueItemResponse is one entry of an assembled practice queue: the card
// content joined with its scheduling state.
type QueueItemResponse struct {
	CardID   uuid.UUID   `json:"card_id"`
	Content  interface{} `json:"content"`
	Position int         `json:"position"`
	DueAt    time.Time   `json:"due_at"`
	Stage    string      `json:"stage"`
	IsNew    bool        `json:"is_new"`
}

// QueueResponse defines the response for queue assembly endpoints.
type QueueResponse struct {
	Items []QueueItemResponse `json:"items"`
	Count int                 `json:"count"`
}

// AssignCardsRequest defines the payload for assigning new cards to the
// authenticated learner.
type AssignCardsRequest struct {
	Cards []AssignCardItem `json:"cards" validate:"required,min=1,max=500,dive"`
}

// AssignCardItem is one card to assign: its content and its introduction
// position within the learner's curriculum.
type AssignCardItem struct {
	Content  json.RawMessage `json:"content"  validate:"required"`
	Position int             `json:"position" validate:"min=0"`
}

// CardResponse represents the response data for a card.
type CardResponse struct {
	ID        uuid.UUID   `json:"id"`
	LearnerID uuid.UUID   `json:"learner_id"`
	Content   interface{} `json:"content"`
	Position  int         `json:"position"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// AssignCardsResponse defines the response for the card assignment endpoint.
type AssignCardsResponse struct {
	Cards []CardResponse `json:"cards"`
	Count int            `json:"count"`
}

// JobResponse defines the response for job submission and status endpoints.
type JobResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Type   string    `json:"type"`
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
}

// memoryStateToResponse converts a domain.CardMemoryState to its API shape.
func memoryStateToResponse(state *domain.CardMemoryState) MemoryStateResponse {
	resp := MemoryStateResponse{
		LearnerID:  state.LearnerID,
		CardID:     state.CardID,
		Stability:  state.Stability,
		Difficulty: state.Difficulty,
		DueAt:      state.DueAt,
		RepCount:   state.RepCount,
		LapseCount: state.LapseCount,
		Stage:      string(state.Stage),
	}
	if !state.LastReviewedAt.IsZero() {
		t := state.LastReviewedAt
		resp.LastReviewedAt = &t
	}
	return resp
}

// queueItemToResponse converts a scheduler.QueueItem to its API shape.
func queueItemToResponse(item *scheduler.QueueItem) QueueItemResponse {
	return QueueItemResponse{
		CardID:   item.Card.ID,
		Content:  rawContent(item.Card.Content),
		Position: item.Card.Position,
		DueAt:    item.State.DueAt,
		Stage:    string(item.State.Stage),
		IsNew:    item.IsNew,
	}
}

// queueItemsToResponse converts a queue item slice into a QueueResponse.
func queueItemsToResponse(items []*scheduler.QueueItem) QueueResponse {
	resp := QueueResponse{Items: make([]QueueItemResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, queueItemToResponse(item))
	}
	resp.Count = len(resp.Items)
	return resp
}

// cardToResponse converts a domain.Card to a CardResponse.
func cardToResponse(card *domain.Card) CardResponse {
	return CardResponse{
		ID:        card.ID,
		LearnerID: card.LearnerID,
		Content:   rawContent(card.Content),
		Position:  card.Position,
		CreatedAt: card.CreatedAt,
		UpdatedAt: card.UpdatedAt,
	}
}

// rawContent decodes stored card content for embedding in a response.
// Falls back to the raw string if the stored bytes are not valid JSON.
func rawContent(raw json.RawMessage) interface{} {
	var content interface{}
	if err := json.Unmarshal(raw, &content); err != nil {
		return string(raw)
	}
	return content
}
