package routes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pawmatching-server/models"
	"pawmatching-server/services"
	"pawmatching-server/storage"
	"pawmatching-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func CreateDog(ctx iris.Context) {
	var input CreateDogInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	imageURL := input.ImageURL
	if imageURL != "" && !strings.Contains(imageURL, "res.cloudinary.com") {
		timestamp := time.Now().UnixNano() / int64(time.Millisecond)
		publicID := fmt.Sprintf("dogs/%d/photo_%d", claims.ID, timestamp)
		urlMap := storage.UploadBase64Image(imageURL, publicID)
		if urlMap != nil && urlMap["url"] != "" {
			imageURL = urlMap["url"]
		}
	}

	dog := models.Dog{
		OwnerID:  claims.ID,
		Name:     input.Name,
		Sex:      input.Sex,
		Age:      input.Age,
		Likes:    input.Likes,
		Notes:    input.Notes,
		ImageURL: imageURL,
	}

	if err := storage.DB.Create(&dog).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Registering a first dog makes the user an owner
	storage.DB.Model(&models.User{}).Where("id = ?", claims.ID).Update("is_owner", true)

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(dog)
}

func GetDog(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	dog := getDogByID(id, ctx)
	if dog == nil {
		return
	}

	ctx.JSON(dog)
}

func GetDogsByOwner(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	var dogs []models.Dog
	dogsExist := storage.DB.Where("owner_id = ?", id).Find(&dogs)
	if dogsExist.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(dogs)
}

func UpdateDog(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	dog := getDogByID(id, ctx)
	if dog == nil {
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if dog.OwnerID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	var input UpdateDogInput
	err := ctx.ReadJSON(&input)
	if err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	imageURL := input.ImageURL
	if imageURL != "" && !strings.Contains(imageURL, "res.cloudinary.com") {
		timestamp := time.Now().UnixNano() / int64(time.Millisecond)
		publicID := fmt.Sprintf("dogs/%d/photo_%d", claims.ID, timestamp)
		urlMap := storage.UploadBase64Image(imageURL, publicID)
		if urlMap != nil && urlMap["url"] != "" {
			imageURL = urlMap["url"]
		}
	}

	dog.Name = input.Name
	dog.Sex = input.Sex
	dog.Age = input.Age
	dog.Likes = input.Likes
	dog.Notes = input.Notes
	if imageURL != "" {
		dog.ImageURL = imageURL
	}

	storage.DB.Save(dog)

	ctx.JSON(dog)
}

func DeleteDog(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	dog := getDogByID(id, ctx)
	if dog == nil {
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)
	if dog.OwnerID != claims.ID {
		ctx.StatusCode(iris.StatusForbidden)
		return
	}

	if dog.ImageURL != "" {
		storage.DeleteImage(dog.ImageURL)
	}

	if err := storage.DB.Delete(dog).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusNoContent)
}

func StartWalking(ctx iris.Context) {
	toggleWalking(ctx, true)
}

func StopWalking(ctx iris.Context) {
	toggleWalking(ctx, false)
}

func toggleWalking(ctx iris.Context, start bool) {
	params := ctx.Params()
	id, err := params.GetUint("id")
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Bad Request", "Invalid dog ID.", ctx)
		return
	}

	var input WalkingToggleInput
	if readErr := ctx.ReadJSON(&input); readErr != nil {
		utils.HandleValidationErrors(readErr, ctx)
		return
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	var dog *models.Dog
	var toggleErr error
	if start {
		dog, toggleErr = walking.Start(ctx.Request().Context(), id, claims.ID, input.Latitude, input.Longitude)
	} else {
		dog, toggleErr = walking.Stop(ctx.Request().Context(), id, claims.ID, input.Latitude, input.Longitude)
	}

	if toggleErr != nil {
		handleWalkingError(toggleErr, ctx)
		return
	}

	ctx.JSON(iris.Map{
		"dog":                dog,
		"isWalking":          dog.IsWalking,
		"remainingSeconds":   int(walking.Remaining(dog).Seconds()),
		"lastStatusUpdateAt": dog.LastWalkingStatusUpdate,
	})
}

func GetWalkingStatus(ctx iris.Context) {
	params := ctx.Params()
	id := params.Get("id")

	dog := getDogByID(id, ctx)
	if dog == nil {
		return
	}

	ctx.JSON(iris.Map{
		"isWalking":          dog.IsWalking,
		"remainingSeconds":   int(walking.Remaining(dog).Seconds()),
		"lastStatusUpdateAt": dog.LastWalkingStatusUpdate,
	})
}

func handleWalkingError(err error, ctx iris.Context) {
	switch {
	case errors.Is(err, services.ErrDogNotFound):
		utils.CreateError(iris.StatusNotFound, "Not Found", "Dog not found.", ctx)
	case errors.Is(err, services.ErrNotDogOwner):
		ctx.StatusCode(iris.StatusForbidden)
	case errors.Is(err, services.ErrLocationUnavailable):
		utils.CreateError(iris.StatusBadRequest, "Location Error", "Current location is unavailable.", ctx)
	default:
		utils.CreateInternalServerError(ctx)
	}
}

func getDogByID(id string, ctx iris.Context) *models.Dog {
	var dog models.Dog
	dogExists := storage.DB.Preload("Owner").Where("id = ?", id).Find(&dog)

	if dogExists.Error != nil {
		utils.CreateInternalServerError(ctx)
		return nil
	}

	if dogExists.RowsAffected == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Dog not found", ctx)
		return nil
	}

	return &dog
}

type CreateDogInput struct {
	Name     string `json:"name" validate:"required,max=256"`
	Sex      string `json:"sex" validate:"required,oneof=male female"`
	Age      int    `json:"age" validate:"gte=0,lte=30"`
	Likes    string `json:"likes" validate:"max=2000"`
	Notes    string `json:"notes" validate:"max=2000"`
	ImageURL string `json:"imageURL"`
}

type UpdateDogInput struct {
	Name     string `json:"name" validate:"required,max=256"`
	Sex      string `json:"sex" validate:"required,oneof=male female"`
	Age      int    `json:"age" validate:"gte=0,lte=30"`
	Likes    string `json:"likes" validate:"max=2000"`
	Notes    string `json:"notes" validate:"max=2000"`
	ImageURL string `json:"imageURL"`
}

type WalkingToggleInput struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
}
