package routes

import (
	"strconv"

	"pawmatching-server/models"
	"pawmatching-server/services"
	"pawmatching-server/storage"
	"pawmatching-server/utils"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

const defaultSearchRadiusKm = 5.0

// NearbyWalkingDogs returns every currently-walking dog within the requested
// radius of the caller, sorted by distance. The caller's own dogs are never
// part of the result. Candidate IDs come from the Redis presence mirror when
// it is reachable; the dogs table is the fallback and always the source of
// the returned records.
func NearbyWalkingDogs(ctx iris.Context) {
	lat, latErr := strconv.ParseFloat(ctx.URLParam("lat"), 64)
	lng, lngErr := strconv.ParseFloat(ctx.URLParam("lng"), 64)
	if latErr != nil || lngErr != nil {
		utils.CreateError(iris.StatusBadRequest, "Location Error", "lat and lng are required.", ctx)
		return
	}

	radiusKm := defaultSearchRadiusKm
	if v := ctx.URLParam("radius"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			radiusKm = parsed
		}
	}

	claims := jwt.Get(ctx).(*utils.AccessToken)

	dogs, err := loadWalkingDogs(ctx)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	candidates := make([]services.Candidate, 0, len(dogs))
	for i := range dogs {
		if dogs[i].OwnerID == claims.ID {
			continue
		}
		candidates = append(candidates, services.Candidate{
			Latitude:  dogs[i].Latitude,
			Longitude: dogs[i].Longitude,
			Payload:   &dogs[i],
		})
	}

	nearby := services.WithinRadius(lat, lng, candidates, radiusKm)

	results := make([]iris.Map, 0, len(nearby))
	for _, entry := range nearby {
		dog := entry.Payload.(*models.Dog)
		results = append(results, iris.Map{
			"dog":        dog,
			"distanceKm": entry.DistanceKm,
		})
	}

	ctx.JSON(iris.Map{
		"radiusKm": radiusKm,
		"results":  results,
	})
}

func loadWalkingDogs(ctx iris.Context) ([]models.Dog, error) {
	if presence != nil {
		entries, err := presence.List(ctx.Request().Context())
		if err == nil && len(entries) > 0 {
			ids := make([]uint, 0, len(entries))
			for _, entry := range entries {
				ids = append(ids, entry.DogID)
			}
			var dogs []models.Dog
			if err := storage.DB.Preload("Owner").
				Where("id IN ? AND is_walking = ?", ids, true).
				Find(&dogs).Error; err != nil {
				return nil, err
			}
			return dogs, nil
		}
	}

	var dogs []models.Dog
	if err := storage.DB.Preload("Owner").Where("is_walking = ?", true).Find(&dogs).Error; err != nil {
		return nil, err
	}
	return dogs, nil
}
