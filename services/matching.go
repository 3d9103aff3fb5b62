package services

import (
	"errors"
	"time"

	"pawmatching-server/models"

	"gorm.io/gorm"
)

var (
	ErrRequestNotFound   = errors.New("petting request not found")
	ErrRequestNotPending = errors.New("petting request is no longer pending")
	ErrNotRequestTarget  = errors.New("only the dog's owner can respond to this request")
)

// AcceptResult carries the three records touched by a successful accept.
type AcceptResult struct {
	Request     *models.PettingRequest
	Match       *models.Match
	ChatSession *models.ChatSession
}

// MatchingWorkflow drives the terminal transitions of a petting request:
// pending -> accepted (creating the Match + ChatSession pair) or
// pending -> rejected. Both are one-shot and mutually exclusive.
type MatchingWorkflow struct {
	db    *gorm.DB
	clock Clock
}

func NewMatchingWorkflow(db *gorm.DB, clock Clock) *MatchingWorkflow {
	if clock == nil {
		clock = time.Now
	}
	return &MatchingWorkflow{db: db, clock: clock}
}

// Accept flips the request to accepted and creates its Match and ChatSession
// in one transaction: all four effects commit together or none do. The
// status flip is a conditional update re-checking pending inside the
// transaction, so a concurrent second accept (double tap, retry) fails the
// precondition instead of double-matching.
func (w *MatchingWorkflow) Accept(requestID uint, ownerID uint) (*AcceptResult, error) {
	var result AcceptResult

	err := w.db.Transaction(func(tx *gorm.DB) error {
		var request models.PettingRequest
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if request.OwnerID != ownerID {
			return ErrNotRequestTarget
		}

		flip := tx.Model(&models.PettingRequest{}).
			Where("id = ? AND status = ?", requestID, models.RequestStatusPending).
			Update("status", models.RequestStatusAccepted)
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			return ErrRequestNotPending
		}
		request.Status = models.RequestStatusAccepted

		match := models.Match{
			DogID:       request.DogID,
			OwnerID:     request.OwnerID,
			RequesterID: request.RequesterID,
			Status:      models.MatchStatusActive,
		}
		if err := tx.Create(&match).Error; err != nil {
			return err
		}

		expiresAt := w.clock().Add(ChatSessionLifetime)
		session := models.ChatSession{
			MatchID:     match.ID,
			DogID:       request.DogID,
			OwnerID:     request.OwnerID,
			RequesterID: request.RequesterID,
			Status:      models.ChatStatusActive,
			ExpiresAt:   &expiresAt,
		}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		if err := tx.Model(&match).Update("chat_session_id", session.ID).Error; err != nil {
			return err
		}
		match.ChatSessionID = &session.ID

		result.Request = &request
		result.Match = &match
		result.ChatSession = &session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Reject is a single status update with the same pending precondition and no
// side effects on other entities.
func (w *MatchingWorkflow) Reject(requestID uint, ownerID uint) (*models.PettingRequest, error) {
	var request models.PettingRequest
	if err := w.db.First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if request.OwnerID != ownerID {
		return nil, ErrNotRequestTarget
	}

	flip := w.db.Model(&models.PettingRequest{}).
		Where("id = ? AND status = ?", requestID, models.RequestStatusPending).
		Update("status", models.RequestStatusRejected)
	if flip.Error != nil {
		return nil, flip.Error
	}
	if flip.RowsAffected == 0 {
		return nil, ErrRequestNotPending
	}
	request.Status = models.RequestStatusRejected
	return &request, nil
}
