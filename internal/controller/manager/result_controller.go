package manager

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quizfaber/quizserver/internal/dto"
	"github.com/quizfaber/quizserver/internal/middleware"
	"github.com/quizfaber/quizserver/internal/model"
	"github.com/quizfaber/quizserver/internal/service"
	"github.com/rs/zerolog/log"
)

// ResultController serves the review surface used by teachers and
// administrators: searching, inspecting, correcting and removing stored
// results.
type ResultController struct {
	authSvc   service.AuthService
	resultSvc service.ResultService
}

func NewResultController(authSvc service.AuthService, resultSvc service.ResultService) *ResultController {
	return &ResultController{authSvc: authSvc, resultSvc: resultSvc}
}

func (ctrl *ResultController) RegisterRoutes(router *gin.Engine) {
	results := router.Group("/api/admin/results")
	results.Use(middleware.RequireAuth(ctrl.authSvc))
	{
		read := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleSupervisor, model.RoleExaminer)
		reports := middleware.RequireRole(model.RoleAdmin, model.RoleEditor, model.RoleSupervisor)
		review := middleware.RequireRole(model.RoleAdmin, model.RoleExaminer)

		results.GET("", read, ctrl.SearchHandler)
		results.GET("/:id/details", read, ctrl.DetailsHandler)
		results.GET("/:id/answers", read, ctrl.AnswersHandler)
		results.GET("/:id/report", reports, ctrl.ReportHandler)
		results.PUT("/details", review, ctrl.EditDetailsHandler)
		results.PUT("/review", review, ctrl.ReviewHandler)
		results.POST("/remove", middleware.RequireRole(model.RoleAdmin), ctrl.RemoveHandler)
		results.POST("/retrieve", middleware.RequireRole(model.RoleAdmin, model.RoleSupervisor), ctrl.RetrieveHandler)
		results.POST("/report", reports, ctrl.SaveReportHandler)
	}

	router.GET("/api/admin/logs",
		middleware.RequireAuth(ctrl.authSvc),
		middleware.RequireRole(model.RoleAdmin),
		ctrl.LogsHandler)
}

// LogsHandler godoc
// @Summary List the newest audit log entries
// @Tags admin-logs
// @Produce json
// @Security BearerAuth
// @Param top query int false "Maximum rows, defaults to 100"
// @Success 200 {array} model.WebLog
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/logs [get]
func (ctrl *ResultController) LogsHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("top"))
	entries, err := ctrl.resultSvc.AuditTrail(limit)
	if err != nil {
		log.Error().Err(err).Msg("Audit trail lookup failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "audit trail lookup failed"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func parseResultID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "invalid result ID format"})
		return 0, false
	}
	return uint(id), true
}

// SearchHandler godoc
// @Summary Search stored results
// @Description Examiner accounts see anonymized examinee identities.
// @Tags admin-results
// @Produce json
// @Security BearerAuth
// @Param title query string false "Filter on quiz name or title"
// @Param user query string false "Filter on examinee name or login"
// @Param fromDate query string false "Completed on or after (YYYY-MM-DD)"
// @Param toDate query string false "Completed on or before (YYYY-MM-DD)"
// @Param fromMark query number false "Minimum final mark"
// @Param toMark query number false "Maximum final mark"
// @Param top query int false "Maximum rows"
// @Param last query int false "Only results received in the last N minutes"
// @Param incDup query int false "Include duplicated results when nonzero"
// @Param orderby query string false "date, mark, user or quiz"
// @Success 200 {array} dto.ResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid query parameters"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/results [get]
func (ctrl *ResultController) SearchHandler(c *gin.Context) {
	var params dto.ResultSearchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	claims := middleware.ClaimsFrom(c)
	results, err := ctrl.resultSvc.Search(params, claims.Role)
	if err != nil {
		log.Error().Err(err).Msg("Result search failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "search failed"})
		return
	}
	c.JSON(http.StatusOK, results)
}

// DetailsHandler godoc
// @Summary Get the question rows and stored report of a result
// @Tags admin-results
// @Produce json
// @Security BearerAuth
// @Param id path int true "Result ID"
// @Success 200 {object} dto.ResultDetailsResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid ID format"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/results/{id}/details [get]
func (ctrl *ResultController) DetailsHandler(c *gin.Context) {
	id, ok := parseResultID(c)
	if !ok {
		return
	}
	details, err := ctrl.resultSvc.Details(id)
	if err != nil {
		log.Error().Err(err).Uint("resultID", id).Msg("Details lookup failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "details lookup failed"})
		return
	}
	c.JSON(http.StatusOK, details)
}

// AnswersHandler godoc
// @Summary Get the raw answer rows of a result
// @Tags admin-results
// @Produce json
// @Security BearerAuth
// @Param id path int true "Result ID"
// @Success 200 {array} dto.ResultAnswerItemDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid ID format"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/results/{id}/answers [get]
func (ctrl *ResultController) AnswersHandler(c *gin.Context) {
	id, ok := parseResultID(c)
	if !ok {
		return
	}
	answers, err := ctrl.resultSvc.Answers(id)
	if err != nil {
		log.Error().Err(err).Uint("resultID", id).Msg("Answers lookup failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "answers lookup failed"})
		return
	}
	c.JSON(http.StatusOK, answers)
}

// ReportHandler godoc
// @Summary Get the stored HTML report of a result
// @Tags admin-results
// @Produce json
// @Security BearerAuth
// @Param id path int true "Result ID"
// @Success 200 {object} dto.ReportDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid ID format"
// @Failure 404 {object} dto.ErrorResponse "No report stored"
// @Router /admin/results/{id}/report [get]
func (ctrl *ResultController) ReportHandler(c *gin.Context) {
	id, ok := parseResultID(c)
	if !ok {
		return
	}
	report, err := ctrl.resultSvc.Report(id)
	if err != nil {
		log.Warn().Err(err).Uint("resultID", id).Msg("Report lookup failed")
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "no report stored for this result"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// EditDetailsHandler godoc
// @Summary Update reviewed question rows
// @Tags admin-results
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param edits body dto.EditResultDetailsRequest true "Question edits, only present fields change"
// @Success 200 {object} dto.StatusResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/results/details [put]
func (ctrl *ResultController) EditDetailsHandler(c *gin.Context) {
	var req dto.EditResultDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	claims := middleware.ClaimsFrom(c)
	if err := ctrl.resultSvc.EditDetails(req, claims.Identity); err != nil {
		log.Error().Err(err).Msg("Question edit failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "edit failed"})
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "updated"})
}

// ReviewHandler godoc
// @Summary Update a result header after review
// @Tags admin-results
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param review body dto.ResultReviewUpdate true "Header review fields"
// @Success 200 {object} dto.StatusResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/results/review [put]
func (ctrl *ResultController) ReviewHandler(c *gin.Context) {
	var req dto.ResultReviewUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	claims := middleware.ClaimsFrom(c)
	if err := ctrl.resultSvc.Review(req, claims.Identity); err != nil {
		log.Error().Err(err).Uint("resultID", req.Id).Msg("Review failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "review failed"})
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "reviewed"})
}

// RemoveHandler godoc
// @Summary Remove results and their reports
// @Tags admin-results
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param removals body dto.RemoveResultsRequest true "Result IDs to remove"
// @Success 200 {object} dto.StatusResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/results/remove [post]
func (ctrl *ResultController) RemoveHandler(c *gin.Context) {
	var req dto.RemoveResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	claims := middleware.ClaimsFrom(c)
	if err := ctrl.resultSvc.Remove(req, claims.Identity); err != nil {
		log.Error().Err(err).Msg("Result removal failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "removal failed"})
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "removed"})
}

// RetrieveHandler godoc
// @Summary Re-create a result header from an archived report
// @Tags admin-results
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param archive body dto.RetrieveResultRequest true "Archived result data"
// @Success 201 {object} dto.SubmitResultResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 404 {object} dto.ErrorResponse "Quiz not available"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/results/retrieve [post]
func (ctrl *ResultController) RetrieveHandler(c *gin.Context) {
	var req dto.RetrieveResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	resp, err := ctrl.resultSvc.Retrieve(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotAvailable) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "quiz not available"})
			return
		}
		log.Error().Err(err).Str("quiz", req.QuizName).Msg("Result retrieval failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "retrieval failed"})
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// SaveReportHandler godoc
// @Summary Store or replace the HTML report of a result
// @Tags admin-results
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param report body dto.ReportRequest true "Report content"
// @Success 200 {object} dto.StatusResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/results/report [post]
func (ctrl *ResultController) SaveReportHandler(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
		return
	}
	if err := ctrl.resultSvc.SaveReport(req); err != nil {
		log.Error().Err(err).Uint("resultID", req.ID).Msg("Report save failed")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "report save failed"})
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "saved"})
}
