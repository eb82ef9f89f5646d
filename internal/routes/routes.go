package routes

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/famguard/FamGuardBack/internal/audit"
	"github.com/famguard/FamGuardBack/internal/config"
	"github.com/famguard/FamGuardBack/internal/handlers"
	"github.com/famguard/FamGuardBack/internal/middleware"
	"github.com/famguard/FamGuardBack/internal/notify"
	"github.com/famguard/FamGuardBack/internal/repository"
	"github.com/famguard/FamGuardBack/internal/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, events notify.Publisher) {
	userRepo := repository.NewUserRepository(db)
	childRepo := repository.NewChildRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	friendshipRepo := repository.NewFriendshipRepository(db)
	timeoutRepo := repository.NewTimeoutRepository(db)

	auditLog := audit.New(os.Stdout)

	childService := services.NewChildService(db, userRepo, childRepo, auditLog)
	timeoutService := services.NewTimeoutService(timeoutRepo, childRepo, conversationRepo, auditLog, events)
	messagingService := services.NewMessagingService(
		db, conversationRepo, messageRepo, friendshipRepo, childRepo, timeoutService, auditLog, events)
	friendshipService := services.NewFriendshipService(
		db, friendshipRepo, conversationRepo, childRepo, timeoutService, auditLog, events)
	approvalService := services.NewApprovalService(
		db, messageRepo, friendshipRepo, conversationRepo, childRepo, auditLog, events)

	authHandler := handlers.NewAuthHandler(userRepo, childRepo, cfg.JWTSecret)
	childHandler := handlers.NewChildHandler(childService)
	chatHandler := handlers.NewChatHandler(messagingService)
	friendshipHandler := handlers.NewFriendshipHandler(friendshipService)
	approvalHandler := handlers.NewApprovalHandler(approvalService)
	timeoutHandler := handlers.NewTimeoutHandler(timeoutService)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	children := authProtected.Group("/children")
	children.Post("", childHandler.CreateChild)
	children.Get("", childHandler.ListChildren)
	children.Patch("/:id/settings", childHandler.UpdateSettings)

	friendships := authProtected.Group("/friendships")
	friendships.Post("", friendshipHandler.RequestFriendship)
	friendships.Get("", friendshipHandler.ListFriendships)
	friendships.Post("/:id/block", friendshipHandler.BlockFriendship)

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("", chatHandler.CreateConversation)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Post("/:id/messages", chatHandler.SendMessage)

	approvals := authProtected.Group("/approvals")
	approvals.Get("", approvalHandler.ListPending)
	approvals.Post("/:entity/:id", approvalHandler.Decide)

	timeouts := authProtected.Group("/timeouts")
	timeouts.Post("", timeoutHandler.CreateTimeout)
	timeouts.Get("", timeoutHandler.ListActiveTimeouts)
	timeouts.Delete("/:id", timeoutHandler.EndTimeout)
}
