package main

import (
	"fmt"
	"log"
	"os"

	"pawmatching-server/routes"
	"pawmatching-server/storage"
	"pawmatching-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	godotenv.Load()
	storage.InitializeDB()
	storage.InitializeRedis()
	storage.InitializeCloudinary()

	routes.Initialize(storage.DB, storage.RedisPresence{})

	app := iris.New()
	app.Validator = validator.New()

	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	resetTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("EMAIL_TOKEN_SECRET")))
	resetTokenVerifier.WithDefaultBlocklist()
	resetTokenVerifierMiddleware := resetTokenVerifier.Verify(func() interface{} {
		return new(utils.ForgotPasswordToken)
	})

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}

		return tokenInput.RefreshToken
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/google", routes.GoogleLoginOrSignUp)
		user.Post("/apple", routes.AppleLoginOrSignUp)
		user.Post("/forgotpassword", routes.ForgotPassword)
		user.Post("/resetpassword", resetTokenVerifierMiddleware, routes.ResetPassword)
		user.Get("/{id}", accessTokenVerifierMiddleware, routes.GetUser)
		user.Patch("/{id}/profile", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.UpdateUserProfile)
		user.Get("/{id}/dogs/saved", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.GetUserSavedDogs)
		user.Patch("/{id}/dogs/saved", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterUserSavedDogs)
		user.Patch("/{id}/pushtoken", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterPushToken)
		user.Patch("/{id}/settings/notifications", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AllowsNotifications)
	}

	dog := app.Party("/api/dog")
	{
		dog.Post("/", accessTokenVerifierMiddleware, routes.CreateDog)
		dog.Get("/{id}", routes.GetDog)
		dog.Get("/owner/{id}", routes.GetDogsByOwner)
		dog.Patch("/{id}", accessTokenVerifierMiddleware, routes.UpdateDog)
		dog.Delete("/{id}", accessTokenVerifierMiddleware, routes.DeleteDog)
		dog.Post("/{id:uint}/walking/start", accessTokenVerifierMiddleware, routes.StartWalking)
		dog.Post("/{id:uint}/walking/stop", accessTokenVerifierMiddleware, routes.StopWalking)
		dog.Get("/{id}/walking/status", routes.GetWalkingStatus)
	}

	discovery := app.Party("/api/discovery")
	{
		discovery.Get("/nearby", accessTokenVerifierMiddleware, routes.NearbyWalkingDogs)
	}

	apply := app.Party("/api/apply")
	{
		apply.Post("/", accessTokenVerifierMiddleware, routes.CreatePettingRequest)
		apply.Get("/received", accessTokenVerifierMiddleware, routes.GetReceivedRequests)
		apply.Get("/sent", accessTokenVerifierMiddleware, routes.GetSentRequests)
		apply.Post("/{id:uint}/accept", accessTokenVerifierMiddleware, routes.AcceptPettingRequest)
		apply.Post("/{id:uint}/reject", accessTokenVerifierMiddleware, routes.RejectPettingRequest)
		apply.Post("/expire-pending", routes.ExpirePendingRequests)
	}

	chat := app.Party("/api/chat")
	{
		chat.Get("/", accessTokenVerifierMiddleware, routes.ListChatSessions)
		chat.Get("/match/{matchID:uint}", accessTokenVerifierMiddleware, routes.ResolveChatSession)
		chat.Get("/{id:uint}", accessTokenVerifierMiddleware, routes.GetChatSession)
		chat.Post("/{id:uint}/close", accessTokenVerifierMiddleware, routes.CloseChatSession)
		chat.Post("/{id:uint}/messages", accessTokenVerifierMiddleware, routes.CreateMessage)
		chat.Get("/{id:uint}/messages", accessTokenVerifierMiddleware, routes.ListMessages)
		chat.Post("/{id:uint}/messages/read", accessTokenVerifierMiddleware, routes.MarkMessagesRead)
		chat.Post("/expire-stale", routes.ExpireStaleSessions)
	}

	notifications := app.Party("/api/notifications")
	{
		notifications.Get("/", accessTokenVerifierMiddleware, routes.GetNotifications)
		notifications.Get("/unread-count", accessTokenVerifierMiddleware, routes.GetUnreadNotificationCount)
		notifications.Post("/read", accessTokenVerifierMiddleware, routes.MarkNotificationsRead)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
