package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/tazhibayda/tours-service/internal/domain"
	"github.com/tazhibayda/tours-service/internal/helper"
	"github.com/tazhibayda/tours-service/internal/log"
	"github.com/tazhibayda/tours-service/internal/mail"
	"github.com/tazhibayda/tours-service/internal/metrics"
	"github.com/tazhibayda/tours-service/internal/query"
	"github.com/tazhibayda/tours-service/internal/queue"
	"github.com/tazhibayda/tours-service/internal/repo"
	"github.com/tazhibayda/tours-service/internal/security"
)

// UserStore is the credential store contract. Reads exclude the password
// hash unless the caller reincludes it for verification.
type UserStore interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, u *domain.User) error
	FindUserByEmail(ctx context.Context, email string, withPassword bool) (*domain.User, error)
	FindUserByID(ctx context.Context, id primitive.ObjectID, withPassword bool) (*domain.User, error)
	FindUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)
	SetResetToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	ListUsers(ctx context.Context, f *query.Features) ([]domain.User, error)
}

type TourStore interface {
	InsertTour(ctx context.Context, t *domain.Tour) error
	FindTourByID(ctx context.Context, id primitive.ObjectID) (*domain.Tour, error)
	FindTours(ctx context.Context, f *query.Features) ([]domain.Tour, error)
	UpdateTour(ctx context.Context, id primitive.ObjectID, set bson.M) (*domain.Tour, error)
	DeleteTour(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type Handler struct {
	Users           UserStore
	Tours           TourStore
	Mailer          mail.Sender
	Events          queue.Publisher
	Redis           *repo.Redis
	JWTSecret       string
	TokenTTL        time.Duration
	RateLimitPerMin int
}

func NewHandler(users UserStore, tours TourStore, mailer mail.Sender, pub queue.Publisher,
	rds *repo.Redis, jwtSecret string, tokenTTLMin, rlPerMin int) *Handler {
	return &Handler{
		Users:           users,
		Tours:           tours,
		Mailer:          mailer,
		Events:          pub,
		Redis:           rds,
		JWTSecret:       jwtSecret,
		TokenTTL:        time.Duration(tokenTTLMin) * time.Minute,
		RateLimitPerMin: rlPerMin,
	}
}

// sendToken issues a fresh access token for u and writes the success
// envelope. Used by every flow that logs the user in.
func (h *Handler) sendToken(c *gin.Context, code int, u *domain.User) {
	tok, err := security.MakeAccess(h.JWTSecret, u.ID.Hex(), h.TokenTTL)
	if err != nil {
		respondError(c, internal("could not issue token"))
		return
	}
	metrics.TokensIssued.Inc()
	c.JSON(code, gin.H{
		"status": "success",
		"token":  tok,
		"data":   gin.H{"user": u},
	})
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type signupReq struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
	Role            string `json:"role"`
}

// Signup godoc
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body signupReq true "signup"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/users/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var in signupReq
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, badRequest("name, valid email and a confirmed password of at least 8 characters are required"))
		return
	}
	role := domain.Role(in.Role)
	if in.Role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		respondError(c, badRequest("unknown role"))
		return
	}
	hash, err := security.HashPassword(in.Password)
	if err != nil {
		respondError(c, internal("could not hash password"))
		return
	}
	u := &domain.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    normalizeEmail(in.Email),
		Role:     role,
		Password: hash,
	}
	if err := h.Users.CreateUser(c.Request.Context(), u); err != nil {
		if err == repo.ErrDuplicateEmail {
			respondError(c, badRequest("email already in use"))
			return
		}
		respondError(c, err)
		return
	}

	go h.Events.Publish(context.Background(), "tours.events", "user.registered",
		queue.UserRegistered{UserID: u.ID, Email: u.Email, Name: u.Name},
		requestID(c))

	h.sendToken(c, http.StatusCreated, u)
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/users/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, badRequest("please provide email and password"))
		return
	}
	email := normalizeEmail(in.Email)
	u, err := h.Users.FindUserByEmail(c.Request.Context(), email, true)
	if err != nil {
		respondError(c, err)
		return
	}
	// unknown email and wrong password answer identically so the endpoint
	// cannot be used to enumerate accounts
	if u == nil || !security.CheckPassword(u.Password, in.Password) {
		metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
		log.L.Info("login rejected", zap.String("email", helper.Hash8(email)))
		respondError(c, unauthorized("incorrect email or password"))
		return
	}
	h.sendToken(c, http.StatusOK, u)
}

type forgotPasswordReq struct {
	Email string `json:"email" binding:"required,email"`
}

const forgotPasswordMsg = "if that email exists, a reset token has been sent"

// ForgotPassword godoc
// @Summary Request a password reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body forgotPasswordReq true "email"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/users/forgotPassword [post]
func (h *Handler) ForgotPassword(c *gin.Context) {
	var in forgotPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, badRequest("please provide a valid email"))
		return
	}
	ctx := c.Request.Context()
	u, err := h.Users.FindUserByEmail(ctx, normalizeEmail(in.Email), false)
	if err != nil {
		respondError(c, err)
		return
	}
	if u == nil {
		// same response as the known-email case: no account enumeration
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": forgotPasswordMsg})
		return
	}

	plain, hashed, err := security.NewResetToken()
	if err != nil {
		respondError(c, err)
		return
	}
	expires := time.Now().Add(security.ResetTokenTTL)
	if err := h.Users.SetResetToken(ctx, u.ID, hashed, expires); err != nil {
		respondError(c, err)
		return
	}

	resetURL := fmt.Sprintf("%s://%s/api/v1/users/resetPassword/%s", scheme(c), c.Request.Host, plain)
	body := fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and "+
		"passwordConfirm to: %s\nIf you didn't forget your password, please ignore this email.", resetURL)
	if err := h.Mailer.Send(ctx, u.Email, "Your password reset token (valid for 10 minutes)", body); err != nil {
		// undo the half-issued token before surfacing the failure
		if cerr := h.Users.ClearResetToken(ctx, u.ID); cerr != nil {
			log.L.Error("reset token cleanup failed", zap.Error(cerr))
		}
		log.L.Error("reset mail send failed", zap.Error(err), zap.String("email", helper.Hash8(u.Email)))
		respondError(c, internal("there was an error sending the email, try again later"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": forgotPasswordMsg})
}

func scheme(c *gin.Context) string {
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}

type resetPasswordReq struct {
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

// ResetPassword godoc
// @Summary Reset password with a mailed token
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "reset token"
// @Param payload body resetPasswordReq true "new password"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/users/resetPassword/{token} [patch]
func (h *Handler) ResetPassword(c *gin.Context) {
	var in resetPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, badRequest("a confirmed password of at least 8 characters is required"))
		return
	}
	ctx := c.Request.Context()
	hashed := security.HashResetToken(c.Param("token"))
	u, err := h.Users.FindUserByResetToken(ctx, hashed, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	if u == nil {
		respondError(c, badRequest("token is invalid or has expired"))
		return
	}
	newHash, err := security.HashPassword(in.Password)
	if err != nil {
		respondError(c, internal("could not hash password"))
		return
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, newHash); err != nil {
		respondError(c, err)
		return
	}

	go h.Events.Publish(context.Background(), "tours.events", "user.password_changed",
		queue.PasswordChanged{UserID: u.ID, Via: "reset"}, requestID(c))

	// log the user in right away after a successful reset
	h.sendToken(c, http.StatusOK, u)
}

type updatePasswordReq struct {
	PasswordCurrent string `json:"passwordCurrent" binding:"required"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

// UpdatePassword godoc
// @Summary Change password of the authenticated user
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body updatePasswordReq true "passwords"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/v1/users/updateMyPassword [patch]
func (h *Handler) UpdatePassword(c *gin.Context) {
	var in updatePasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, badRequest("current password and a confirmed new password of at least 8 characters are required"))
		return
	}
	ctx := c.Request.Context()
	// Protect loaded the user without the hash; fetch it for verification
	u, err := h.Users.FindUserByID(ctx, currentUser(c).ID, true)
	if err != nil || u == nil {
		respondError(c, internal("could not load user"))
		return
	}
	if !security.CheckPassword(u.Password, in.PasswordCurrent) {
		metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
		respondError(c, unauthorized("your current password is wrong"))
		return
	}
	newHash, err := security.HashPassword(in.Password)
	if err != nil {
		respondError(c, internal("could not hash password"))
		return
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, newHash); err != nil {
		respondError(c, err)
		return
	}

	go h.Events.Publish(context.Background(), "tours.events", "user.password_changed",
		queue.PasswordChanged{UserID: u.ID, Via: "update"}, requestID(c))

	h.sendToken(c, http.StatusOK, u)
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/v1/users/me [get]
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": currentUser(c)}})
}

// ListUsers godoc
// @Summary List users (admin)
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/v1/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	f := query.New(c.Request.URL.Query()).Filter().Sort().LimitFields().Paginate()
	users, err := h.Users.ListUsers(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(users),
		"data":    gin.H{"users": users},
	})
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Users.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
