// internal/infra/api/server.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"shift_escalation_engine/internal/app"
	"shift_escalation_engine/internal/domain/attendance"
	"shift_escalation_engine/internal/domain/escalation"
	idb "shift_escalation_engine/internal/infra/database"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Server exposes the engine's collaborator surface: read-only escalation
// status and notification log queries, plus the clock-in hook the
// attendance collaborator calls to drive resolution.
type Server struct {
	router         *gin.Engine
	svc            app.EscalationExecutor
	assignments    *app.AssignmentService
	execRepo       escalation.ExecutionRepository
	logRepo        escalation.LogRepository
	attendanceRepo attendance.Repository
	logger         *logrus.Logger
}

func NewServer(
	svc app.EscalationExecutor,
	assignments *app.AssignmentService,
	execRepo escalation.ExecutionRepository,
	logRepo escalation.LogRepository,
	attendanceRepo attendance.Repository,
	logger *logrus.Logger,
) *Server {
	s := &Server{
		router:         gin.New(),
		svc:            svc,
		assignments:    assignments,
		execRepo:       execRepo,
		logRepo:        logRepo,
		attendanceRepo: attendanceRepo,
		logger:         logger,
	}
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.router.Group("/api/v1")
	v1.GET("/attendance/:id/escalation", s.getEscalationStatus)
	v1.POST("/attendance/:id/clock-in", s.clockIn)
	v1.POST("/attendance/:id/assign", s.notifyAssigned)
	v1.GET("/organizations/:id/notifications", s.listNotifications)
}

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

type executionView struct {
	ID              uuid.UUID  `json:"id"`
	PolicyID        uuid.UUID  `json:"policyId"`
	Status          string     `json:"status"`
	CurrentStage    int        `json:"currentStage"`
	AttemptsInStage int        `json:"attemptsInStage"`
	StartedAt       time.Time  `json:"startedAt"`
	LastAttemptAt   *time.Time `json:"lastAttemptAt,omitempty"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
}

func (s *Server) getEscalationStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attendance record id"})
		return
	}
	rec, err := s.attendanceRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		if err == idb.ErrAttendanceRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "attendance record not found"})
			return
		}
		s.logger.WithError(err).Error("Failed to load attendance record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := gin.H{
		"attendanceRecordId": rec.ID,
		"escalationStatus":   nil,
		"execution":          nil,
	}
	if rec.EscalationStatus.Valid {
		resp["escalationStatus"] = rec.EscalationStatus.String
	}

	exec, err := s.execRepo.GetByAttendanceRecord(c.Request.Context(), id)
	if err != nil && err != idb.ErrExecutionNotFound {
		s.logger.WithError(err).Error("Failed to load execution for attendance record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if exec != nil {
		view := executionView{
			ID:              exec.ID,
			PolicyID:        exec.PolicyID,
			Status:          string(exec.Status),
			CurrentStage:    exec.CurrentStage,
			AttemptsInStage: exec.AttemptsInStage,
			StartedAt:       exec.StartedAt,
		}
		if exec.LastAttemptAt.Valid {
			view.LastAttemptAt = &exec.LastAttemptAt.Time
		}
		if exec.ResolvedAt.Valid {
			view.ResolvedAt = &exec.ResolvedAt.Time
		}
		resp["execution"] = view
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) clockIn(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attendance record id"})
		return
	}
	ctx := c.Request.Context()
	if err := s.attendanceRepo.SetClockIn(ctx, id, time.Now()); err != nil {
		if err == idb.ErrAttendanceRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "attendance record not found"})
			return
		}
		s.logger.WithError(err).Error("Failed to record clock-in")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := s.svc.ResolveByClockIn(ctx, id); err != nil {
		s.logger.WithError(err).WithField("attendance_record_id", id).
			Error("Failed to resolve escalation after clock-in")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "clock-in recorded but escalation resolution failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// notifyAssigned is the shift-assignment collaborator hook. The dispatch
// is fire-and-forget: a failed notice is reported in the response body
// but never fails the assignment, so the status is 200 either way.
func (s *Server) notifyAssigned(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attendance record id"})
		return
	}
	var body struct {
		StaffID uuid.UUID `json:"staffId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "staffId is required"})
		return
	}
	if err := s.assignments.NotifyAssigned(c.Request.Context(), body.StaffID, id); err != nil {
		c.JSON(http.StatusOK, gin.H{"notified": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notified": true})
}

func (s *Server) listNotifications(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization id"})
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPageSize)))
	if err != nil || perPage < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid per_page"})
		return
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}

	entries, total, err := s.logRepo.ListByOrganization(c.Request.Context(), orgID, perPage, (page-1)*perPage)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list notification log entries")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	views := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		var executionID *uuid.UUID
		if e.ExecutionID.Valid {
			id := e.ExecutionID.UUID
			executionID = &id
		}
		views = append(views, gin.H{
			"id":          e.ID,
			"executionId": executionID,
			"channel":     e.Channel,
			"stage":       e.Stage,
			"recipient":   e.Recipient,
			"message":     e.Message,
			"status":      e.Status,
			"sentAt":      e.SentAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": views,
		"page":    page,
		"perPage": perPage,
		"total":   total,
	})
}
