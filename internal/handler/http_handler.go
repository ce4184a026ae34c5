package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/Vigneshd705/ChatApp/internal/ca"
	"github.com/Vigneshd705/ChatApp/internal/contract"
	"github.com/Vigneshd705/ChatApp/internal/domain"
	"github.com/Vigneshd705/ChatApp/internal/enroll"
	"github.com/Vigneshd705/ChatApp/internal/gateway"
	"github.com/Vigneshd705/ChatApp/internal/session"
	"github.com/Vigneshd705/ChatApp/internal/wallet"
	"github.com/Vigneshd705/ChatApp/pkg/log"
	"github.com/Vigneshd705/ChatApp/pkg/response"
)

// Ledger is the gateway surface the handler submits and evaluates
// operations through.
type Ledger interface {
	Submit(ctx context.Context, identity, op string, args ...string) (interface{}, error)
	Evaluate(ctx context.Context, identity, op string, args ...string) (interface{}, error)
}

// Enroller issues ledger credentials for new usernames.
type Enroller interface {
	Enroll(ctx context.Context, name string) (*wallet.Credential, error)
}

// Handler is the thin HTTP shell over the core. It holds no state and
// no logic beyond request parsing and error mapping.
type Handler struct {
	bridge   *session.Bridge
	enroller Enroller
	ledger   Ledger

	// Identity used for read-only evaluations, mirroring the original
	// design where history and listing queries run as the admin.
	readerID string

	// Collapses identical concurrent ledger queries. Not a cache: the
	// result is shared only among requests in flight together, so no
	// ledger state is ever served stale.
	sf singleflight.Group
}

// NewHandler creates an HTTP handler.
func NewHandler(bridge *session.Bridge, enroller Enroller, ledger Ledger, readerID string) *Handler {
	return &Handler{bridge: bridge, enroller: enroller, ledger: ledger, readerID: readerID}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)

		authed := api.Group("")
		authed.Use(RequireAuth(h.bridge))
		{
			authed.GET("/session", h.Session)
			authed.GET("/users", h.Users)
			authed.POST("/message", h.Message)
			authed.GET("/history/:roomId", h.History)
		}
	}
}

// Register enrolls a ledger identity for the username and stores the
// password record.
func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid register request")
		response.BadRequest(c, err.Error())
		return
	}

	available, err := h.bridge.Available(ctx, req.Username)
	if err != nil {
		l.Error().Err(err).Msg("availability check failed")
		response.InternalError(c, "failed to register user")
		return
	}
	if !available {
		response.Conflict(c, "user already exists")
		return
	}

	_, enrollErr := h.enroller.Enroll(ctx, req.Username)
	if enrollErr != nil && !errors.Is(enrollErr, enroll.ErrEnrolledNotListed) {
		switch {
		case errors.Is(enrollErr, enroll.ErrIdentityExists):
			response.Conflict(c, "identity already enrolled")
		case errors.Is(enrollErr, ca.ErrPermissionDenied), errors.Is(enrollErr, enroll.ErrAdminMissing):
			l.Error().Err(enrollErr).Msg("administrative identity rejected")
			response.Forbidden(c, "registration not permitted")
		case errors.Is(enrollErr, ca.ErrAuthorityUnreachable):
			l.Error().Err(enrollErr).Msg("issuing authority unreachable")
			response.BadGateway(c, "issuing authority unreachable")
		default:
			l.Error().Err(enrollErr).Msg("enrollment failed")
			response.InternalError(c, "failed to register user")
		}
		return
	}

	if err := h.bridge.Register(ctx, req.Username, req.Password); err != nil {
		if errors.Is(err, session.ErrUserExists) {
			response.Conflict(c, "user already exists")
			return
		}
		l.Error().Err(err).Msg("password record creation failed")
		response.InternalError(c, "failed to register user")
		return
	}

	if errors.Is(enrollErr, enroll.ErrEnrolledNotListed) {
		// Credential stored but the presence announcement failed:
		// surfaced distinctly, not as a generic error.
		response.CreatedWithWarning(c, gin.H{"username": req.Username}, "enrolled but not listed")
		return
	}
	response.Created(c, gin.H{"username": req.Username})
}

// Login verifies the password and issues a session token.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid login request")
		response.BadRequest(c, err.Error())
		return
	}

	tok, err := h.bridge.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrUserNotFound):
			response.NotFound(c, "user not found")
		case errors.Is(err, session.ErrWrongPassword):
			response.Unauthorized(c, "incorrect password")
		case errors.Is(err, session.ErrCredentialMissing):
			response.PreconditionFailed(c, "ledger credential missing")
		default:
			l.Error().Err(err).Msg("login failed")
			response.InternalError(c, "failed to login")
		}
		return
	}

	response.Success(c, domain.LoginResponse{Token: tok, Username: req.Username})
}

// Session returns the username bound to the presented token.
func (h *Handler) Session(c *gin.Context) {
	response.Success(c, gin.H{"username": c.GetString(UsernameKey)})
}

// Message submits one chat message as the token's identity.
func (h *Handler) Message(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid message request")
		response.BadRequest(c, err.Error())
		return
	}

	username := c.GetString(UsernameKey)
	result, err := h.ledger.Submit(ctx, username, "CreateMessage", req.RoomID, username, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, contract.ErrInvalidArgument):
			response.BadRequest(c, "invalid message")
		case errors.Is(err, gateway.ErrIdentityNotFound):
			// Valid session, missing credential: store drift.
			response.PreconditionFailed(c, "ledger credential missing")
		default:
			l.Error().Err(err).Str(log.FieldRoomID, req.RoomID).Msg("message submit failed")
			response.InternalError(c, "failed to send message")
		}
		return
	}

	response.Success(c, result)
}

// History returns a room's messages in ledger order.
func (h *Handler) History(c *gin.Context) {
	ctx := c.Request.Context()

	roomID := c.Param("roomId")
	result, err, _ := h.sf.Do("history:"+roomID, func() (interface{}, error) {
		return h.ledger.Evaluate(ctx, h.readerID, "GetChatHistory", roomID)
	})
	if err != nil {
		if errors.Is(err, contract.ErrInvalidArgument) {
			response.BadRequest(c, "invalid room")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("history query failed")
		response.InternalError(c, "failed to load history")
		return
	}

	response.Success(c, result)
}

// Users returns every registered username.
func (h *Handler) Users(c *gin.Context) {
	ctx := c.Request.Context()

	result, err, _ := h.sf.Do("users", func() (interface{}, error) {
		return h.ledger.Evaluate(ctx, h.readerID, "GetAllUsers")
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("user listing failed")
		response.InternalError(c, "failed to list users")
		return
	}

	response.Success(c, result)
}
