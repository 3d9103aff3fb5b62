package routes

import (
	"errors"
	"fmt"
	"time"

	"pawmatching-server/models"
	"pawmatching-server/services"
	"pawmatching-server/storage"
	"pawmatching-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// PettingRequestLifetime is how long a pending request stays actionable
// before the sweep expires it.
const PettingRequestLifetime = 24 * time.Hour

func CreatePettingRequest(ctx iris.Context) {
	var input CreatePettingRequestInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	var dog models.Dog
	dogExists := storage.DB.Where("id = ?", input.DogID).Find(&dog)
	if dogExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if dogExists.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Dog not found.", ctx)
		return
	}

	if dog.OwnerID == claims.ID {
		utils.CreateError(iris.StatusBadRequest, "Request Error", "You cannot request to pet your own dog.", ctx)
		return
	}

	if !dog.IsWalking {
		utils.CreateError(iris.StatusConflict, "Request Error", "This dog is not currently out walking.", ctx)
		return
	}

	// One live request per requester/dog pair
	var existing models.PettingRequest
	pendingExists := storage.DB.
		Where("requester_id = ? AND dog_id = ? AND status = ?", claims.ID, dog.ID, models.RequestStatusPending).
		Limit(1).Find(&existing)
	if pendingExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if pendingExists.RowsAffected > 0 {
		utils.CreateError(iris.StatusConflict, "Request Error", "You already have a pending request for this dog.", ctx)
		return
	}

	now := time.Now()
	request := models.PettingRequest{
		RequesterID: claims.ID,
		DogID:       dog.ID,
		OwnerID:     dog.OwnerID,
		Status:      models.RequestStatusPending,
		Message:     input.Message,
		AppliedAt:   now,
		ExpiresAt:   now.Add(PettingRequestLifetime),
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
	}

	if err := storage.DB.Create(&request).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var requester models.User
	if err := storage.DB.First(&requester, claims.ID).Error; err == nil {
		requesterName := fmt.Sprintf("%s %s", requester.FirstName, requester.LastName)
		notificationService := services.NewNotificationService()
		go notificationService.SendPettingRequestNotification(
			request.ID, dog.ID, dog.OwnerID, claims.ID, requesterName, dog.Name,
		)
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(request)
}

func GetReceivedRequests(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var requests []models.PettingRequest
	if err := storage.DB.Preload("Requester").Preload("Dog").
		Where("owner_id = ?", claims.ID).
		Order("created_at DESC").Find(&requests).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(requests)
}

func GetSentRequests(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var requests []models.PettingRequest
	if err := storage.DB.Preload("Dog").Preload("Dog.Owner").
		Where("requester_id = ?", claims.ID).
		Order("created_at DESC").Find(&requests).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(requests)
}

func AcceptPettingRequest(ctx iris.Context) {
	params := ctx.Params()
	id, err := params.GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid request ID.", ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	result, acceptErr := matching.Accept(id, claims.ID)
	if acceptErr != nil {
		handleMatchingError(acceptErr, ctx)
		return
	}

	var dog models.Dog
	if err := storage.DB.First(&dog, result.Request.DogID).Error; err == nil {
		notificationService := services.NewNotificationService()
		go notificationService.SendMatchNotification(
			result.Match.ID, result.ChatSession.ID, result.Request.RequesterID, dog.Name,
		)
	}

	ctx.JSON(iris.Map{
		"request":     result.Request,
		"match":       result.Match,
		"chatSession": result.ChatSession,
	})
}

func RejectPettingRequest(ctx iris.Context) {
	params := ctx.Params()
	id, err := params.GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid request ID.", ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	request, rejectErr := matching.Reject(id, claims.ID)
	if rejectErr != nil {
		handleMatchingError(rejectErr, ctx)
		return
	}

	ctx.JSON(request)
}

// ExpirePendingRequests rejects every pending request past its expiry. Meant
// to be hit by a scheduler; safe to call repeatedly.
func ExpirePendingRequests(ctx iris.Context) {
	result := storage.DB.Model(&models.PettingRequest{}).
		Where("status = ? AND expires_at < ?", models.RequestStatusPending, time.Now()).
		Update("status", models.RequestStatusRejected)
	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"expired": result.RowsAffected,
	})
}

func handleMatchingError(err error, ctx iris.Context) {
	switch {
	case errors.Is(err, services.ErrRequestNotFound):
		utils.CreateError(iris.StatusNotFound, "Not Found", "Petting request not found.", ctx)
	case errors.Is(err, services.ErrNotRequestTarget):
		ctx.StatusCode(iris.StatusForbidden)
	case errors.Is(err, services.ErrRequestNotPending):
		utils.CreateError(iris.StatusConflict, "Request Error", "This request has already been answered.", ctx)
	default:
		utils.CreateInternalServerError(ctx)
	}
}

type CreatePettingRequestInput struct {
	DogID     uint     `json:"dogID" validate:"required"`
	Message   string   `json:"message" validate:"max=2000"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}
