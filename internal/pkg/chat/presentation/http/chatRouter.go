package http

import (
	"time"

	"birdconnect/internal/infrastructure/realtime"
	"birdconnect/internal/pkg/chat/application/event"
	"birdconnect/internal/pkg/chat/application/usecase"
	repository "birdconnect/internal/pkg/chat/persistence/repository/port"
	"birdconnect/internal/pkg/chat/presentation/controller"
	"birdconnect/internal/pkg/chat/presentation/middleware"
	userport "birdconnect/internal/repository/port"

	"github.com/gin-gonic/gin"
)

// Dependencies are the collaborators the chat endpoints are built from.
type Dependencies struct {
	Chats          repository.ChatRepository
	Users          userport.UserRepository
	Publisher      event.Publisher
	Sockets        *realtime.Router
	RequestTimeout time.Duration
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, deps Dependencies) {
	controller.RegisterValidators()

	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	resolveUC := usecase.NewResolveConversationUseCase(deps.Chats, deps.Users)
	sendUC := usecase.NewSendMessageUseCase(deps.Chats, deps.Publisher)
	listUC := usecase.NewListMessagesUseCase(deps.Chats)
	summariesUC := usecase.NewListConversationSummariesUseCase(deps.Chats, deps.Users)
	searchUC := usecase.NewSearchUsersUseCase(deps.Users)
	joinUC := usecase.NewJoinConversationUseCase(deps.Chats)

	resolveCtl := controller.NewResolveConversationController(resolveUC, timeout)
	sendMsgCtl := controller.NewSendMessageController(sendUC, timeout)
	listMsgCtl := controller.NewListMessagesController(listUC, deps.Users, timeout)
	summariesCtl := controller.NewListConversationSummariesController(summariesUC, timeout)
	searchCtl := controller.NewSearchUsersController(searchUC, timeout)
	socketCtl := controller.NewChatSocketController(deps.Sockets, sendUC, joinUC, timeout)

	// GET /api/v1/chat/ws -> websocket endpoint for realtime chat
	g.GET("/chat/ws", socketCtl.Handle())

	authed := g.Group("", middleware.RequireViewer())

	// POST /api/v1/chat -> resolve or create the chat with another user
	authed.POST("/chat", resolveCtl.Handle())

	// GET /api/v1/chats -> the viewer's chat list
	authed.GET("/chats", summariesCtl.Handle())

	// POST /api/v1/chat/:chatId -> send a message into a chat
	authed.POST("/chat/:chatId", sendMsgCtl.Handle())

	// GET /api/v1/chat/:chatId/messages -> fetch messages by chat id
	authed.GET("/chat/:chatId/messages", listMsgCtl.Handle())

	// GET /api/v1/users -> search people to chat with
	authed.GET("/users", searchCtl.Handle())
}
