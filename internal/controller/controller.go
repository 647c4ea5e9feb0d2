package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizfaber/quizserver/internal/dto"
	"github.com/quizfaber/quizserver/internal/middleware"
	"github.com/quizfaber/quizserver/internal/service"
	"github.com/rs/zerolog/log"
)

// Controller serves the quiz-taking surface: account handling, session
// tracking and result submission.
type Controller struct {
	authSvc    service.AuthService
	sessionSvc service.SessionService
	quizSvc    service.QuizService
	submission service.ResultSubmissionService
	dispatcher *service.SessionDispatcher
}

func NewController(
	authSvc service.AuthService,
	sessionSvc service.SessionService,
	quizSvc service.QuizService,
	submission service.ResultSubmissionService,
	dispatcher *service.SessionDispatcher,
) *Controller {
	return &Controller{
		authSvc:    authSvc,
		sessionSvc: sessionSvc,
		quizSvc:    quizSvc,
		submission: submission,
		dispatcher: dispatcher,
	}
}

func (ctrl *Controller) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/registration", ctrl.RegistrationHandler)
		api.POST("/login", ctrl.LoginHandler)

		authed := api.Group("")
		authed.Use(middleware.RequireAuth(ctrl.authSvc))
		{
			authed.POST("/logout", ctrl.LogoutHandler)
			authed.GET("/checklogin", ctrl.CheckLoginHandler)
			authed.GET("/checkresult", ctrl.CheckResultHandler)
			authed.GET("/quizzes", ctrl.QuizzesHandler)
			authed.POST("/results", ctrl.SubmitResultHandler)
			authed.POST("/session/update", ctrl.SessionUpdateHandler)
			authed.POST("/session/updatefirst", ctrl.SessionUpdateFirstHandler)
			authed.GET("/session/last", ctrl.LastSessionHandler)
		}
	}
}

// RegistrationHandler godoc
// @Summary Register a new examinee account
// @Tags auth
// @Accept json
// @Produce json
// @Param registration body dto.RegistrationRequest true "Account data"
// @Success 201 {object} dto.StatusResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 409 {object} dto.ErrorResponse "Identity already registered"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /registration [post]
func (ctrl *Controller) RegistrationHandler(c *gin.Context) {
	var req dto.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Failed to bind RegistrationRequest")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	if err := ctrl.authSvc.Register(req); err != nil {
		if errors.Is(err, service.ErrIdentityTaken) {
			c.JSON(http.StatusConflict, dto.ErrorResponse{Message: "identity already registered"})
			return
		}
		log.Error().Err(err).Msg("Registration failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, dto.StatusResponse{Status: "registered"})
}

// LoginHandler godoc
// @Summary Authenticate and open a session
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body dto.LoginRequest true "Login, password and the quiz page query string"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 401 {object} dto.ErrorResponse "Wrong credentials or page parameters"
// @Failure 403 {object} dto.ErrorResponse "Account disabled"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /login [post]
func (ctrl *Controller) LoginHandler(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	resp, err := ctrl.authSvc.Login(req, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrParamCheckFailed):
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "login failed"})
		case errors.Is(err, service.ErrUserDisabled):
			c.JSON(http.StatusForbidden, dto.ErrorResponse{Message: "account disabled"})
		default:
			log.Error().Err(err).Msg("Login failed")
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "login failed"})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LogoutHandler godoc
// @Summary Close the current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.StatusResponse
// @Failure 401 {object} dto.ErrorResponse "Missing token"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /logout [post]
func (ctrl *Controller) LogoutHandler(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := ctrl.authSvc.Logout(claims, c.ClientIP()); err != nil {
		log.Error().Err(err).Str("identity", claims.Identity).Msg("Logout failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "logout failed"})
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "logged out"})
}

// CheckLoginHandler godoc
// @Summary Describe the authenticated user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.LoginResponse
// @Failure 403 {object} dto.ErrorResponse "Account disabled"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /checklogin [get]
func (ctrl *Controller) CheckLoginHandler(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	resp, err := ctrl.authSvc.CheckLogin(claims)
	if err != nil {
		if errors.Is(err, service.ErrUserDisabled) {
			c.JSON(http.StatusForbidden, dto.ErrorResponse{Message: "account disabled"})
			return
		}
		log.Error().Err(err).Msg("Check login failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "check failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CheckResultHandler godoc
// @Summary Report whether the user already took a quiz
// @Description Returns NumOfRetake -1 when no prior result exists.
// @Tags results
// @Produce json
// @Security BearerAuth
// @Param quizName query string true "Quiz name"
// @Success 200 {object} dto.RetakeInfoDTO
// @Failure 400 {object} dto.ErrorResponse "Missing quiz name"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /checkresult [get]
func (ctrl *Controller) CheckResultHandler(c *gin.Context) {
	quizName := c.Query("quizName")
	if quizName == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "quizName is required"})
		return
	}
	claims := middleware.ClaimsFrom(c)
	info, err := ctrl.submission.RetakeInfo(quizName, claims.Identity)
	if err != nil {
		log.Error().Err(err).Str("quiz", quizName).Msg("Retake lookup failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// QuizzesHandler godoc
// @Summary List published quizzes
// @Tags quizzes
// @Produce json
// @Security BearerAuth
// @Param title query string false "Filter on quiz name or title"
// @Param top query int false "Page size"
// @Param page query int false "1-based page"
// @Success 200 {array} dto.QuizSummaryDTO
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /quizzes [get]
func (ctrl *Controller) QuizzesHandler(c *gin.Context) {
	var params struct {
		Title string `form:"title"`
		Top   int    `form:"top"`
		Page  int    `form:"page"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	quizzes, err := ctrl.quizSvc.ListPublished(params.Title, params.Top, params.Page)
	if err != nil {
		log.Error().Err(err).Msg("Quiz listing failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "listing failed"})
		return
	}
	c.JSON(http.StatusOK, quizzes)
}

// SubmitResultHandler godoc
// @Summary Submit a completed quiz attempt
// @Description Persists the header, question and answer graph transactionally.
// @Tags results
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param result body dto.SubmitResultRequest true "Completed attempt"
// @Success 201 {object} dto.SubmitResultResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 401 {object} dto.ErrorResponse "Unknown submitting identity"
// @Failure 403 {object} dto.ErrorResponse "Account disabled"
// @Failure 404 {object} dto.ErrorResponse "Quiz not available"
// @Failure 500 {object} dto.ErrorResponse "Submission pipeline failed"
// @Router /results [post]
func (ctrl *Controller) SubmitResultHandler(c *gin.Context) {
	var req dto.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Failed to bind SubmitResultRequest")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	claims := middleware.ClaimsFrom(c)
	resp, err := ctrl.submission.Submit(c.Request.Context(), req, claims.SessionID)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotAvailable) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "quiz not available"})
			return
		}
		if errors.Is(err, service.ErrIdentityUnknown) {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "unknown identity"})
			return
		}
		if errors.Is(err, service.ErrUserDisabled) {
			c.JSON(http.StatusForbidden, dto.ErrorResponse{Message: "account disabled"})
			return
		}
		var subErr *service.SubmissionError
		if errors.As(err, &subErr) {
			log.Error().Err(subErr.Err).Str("step", subErr.Step).Str("quiz", req.Options.Name).Msg("Submission failed")
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Message: "submission failed",
				Details: []string{"step: " + subErr.Step},
			})
			return
		}
		log.Error().Err(err).Str("quiz", req.Options.Name).Msg("Submission failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "submission failed"})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// SessionUpdateHandler godoc
// @Summary Enqueue an in-progress session update
// @Description Fire-and-forget: the update is queued for the write-back dispatcher.
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param update body dto.SessionUpdateRequest true "Partial session state"
// @Success 202 {object} dto.StatusResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Router /session/update [post]
func (ctrl *Controller) SessionUpdateHandler(c *gin.Context) {
	var req dto.SessionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	req.UserIdentity = middleware.ClaimsFrom(c).Identity
	ctrl.dispatcher.Enqueue(req)
	c.JSON(http.StatusAccepted, dto.StatusResponse{Status: "queued"})
}

// SessionUpdateFirstHandler godoc
// @Summary Overwrite the whole session blob
// @Description Synchronous, used once before the quiz starts.
// @Tags sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param update body dto.SessionUpdateFirstRequest true "Full session state, empty to clear"
// @Success 200 {object} dto.StatusResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /session/updatefirst [post]
func (ctrl *Controller) SessionUpdateFirstHandler(c *gin.Context) {
	var req dto.SessionUpdateFirstRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	if err := ctrl.sessionSvc.UpdateFirst(req); err != nil {
		log.Error().Err(err).Uint("sessionID", req.SessionID).Msg("Session overwrite failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "session update failed"})
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "updated"})
}

// LastSessionHandler godoc
// @Summary Find the newest recoverable session
// @Description 204 when nothing within the recovery window can be resumed.
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.SessionRecoveryDTO
// @Success 204 "No recoverable session"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /session/last [get]
func (ctrl *Controller) LastSessionHandler(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	var current uint
	if claims.SessionID != nil {
		current = *claims.SessionID
	}
	recovery, err := ctrl.sessionSvc.LastRecoverable(claims.UserID, current)
	if err != nil {
		log.Error().Err(err).Uint("personID", claims.UserID).Msg("Recovery lookup failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "recovery lookup failed"})
		return
	}
	if recovery == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, recovery)
}
