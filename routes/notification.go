package routes

import (
	"pawmatching-server/models"
	"pawmatching-server/storage"
	"pawmatching-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// GetNotifications: GET /api/notifications?page=...&per_page=...
// The caller's in-app feed, newest first.
func GetNotifications(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	page, _ := ctx.URLParamInt("page")
	if page <= 0 {
		page = 1
	}
	perPage, _ := ctx.URLParamInt("per_page")
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}

	var total int64
	if err := storage.DB.Model(&models.Notification{}).
		Where("user_id = ?", claims.ID).Count(&total).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var notifications []models.Notification
	if err := storage.DB.Where("user_id = ?", claims.ID).
		Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&notifications).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	utils.JSONPage(ctx, notifications, page, perPage, total)
}

func GetUnreadNotificationCount(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var count int64
	if err := storage.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", claims.ID, false).
		Count(&count).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"unread": count})
}

func MarkNotificationsRead(ctx iris.Context) {
	claims := jwt.Get(ctx).(*utils.AccessToken)

	var input MarkNotificationsReadInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	q := storage.DB.Model(&models.Notification{}).Where("user_id = ?", claims.ID)
	if len(input.IDs) > 0 {
		q = q.Where("id IN ?", input.IDs)
	}
	if err := q.Update("is_read", true).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"success": true})
}

type MarkNotificationsReadInput struct {
	// Empty means mark everything read
	IDs []uint `json:"ids"`
}
