// Package api exposes the meeting pipeline over HTTP.
package api

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/agents"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/media"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/services"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/store"
	"github.com/LizaGhosh/mongodb-lead-agent/pkg/logger"
)

// defaultUserID serves single-user deployments that skip onboarding.
const defaultUserID = "default_user"

// maxUploadBytes bounds a single uploaded file read into memory.
const maxUploadBytes = 25 << 20

// API provides the HTTP handlers for the meeting pipeline.
type API struct {
	orchestrator *agents.Orchestrator
	meetings     store.MeetingStore
	persons      store.PersonStore
	prefs        store.PreferenceStore
	maintenance  store.Maintenance
	ocr          *services.OCRService
	prefAnalysis *services.PreferenceAnalysisService
	dbHealth     func(ctx context.Context) error
	logger       *logger.Logger
}

// NewAPI creates the handler set. dbHealth reports database connectivity for
// the readiness endpoint.
func NewAPI(orchestrator *agents.Orchestrator, meetings store.MeetingStore,
	persons store.PersonStore, prefs store.PreferenceStore,
	maintenance store.Maintenance, ocr *services.OCRService,
	prefAnalysis *services.PreferenceAnalysisService,
	dbHealth func(ctx context.Context) error) *API {
	return &API{
		orchestrator: orchestrator,
		meetings:     meetings,
		persons:      persons,
		prefs:        prefs,
		maintenance:  maintenance,
		ocr:          ocr,
		prefAnalysis: prefAnalysis,
		dbHealth:     dbHealth,
		logger:       logger.New("api", "", ""),
	}
}

// SubmitMeetingHandler accepts a multipart meeting submission (written
// notes, optional audio recording, optional photos) and runs it through the
// pipeline synchronously.
func (a *API) SubmitMeetingHandler(c *gin.Context) {
	meetingText := c.PostForm("meeting_text")
	if meetingText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "meeting_text is required"})
		return
	}
	userID := c.PostForm("user_id")
	if userID == "" {
		userID = defaultUserID
	}

	req := agents.MeetingRequest{
		UserID:      userID,
		MeetingText: meetingText,
		Location:    c.PostForm("location"),
	}

	if header, err := c.FormFile("audio"); err == nil {
		upload, err := readUpload(header)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read audio upload"})
			return
		}
		req.Audio = upload
	}
	if form, err := c.MultipartForm(); err == nil {
		for _, header := range form.File["photos"] {
			upload, err := readUpload(header)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "could not read photo upload"})
				return
			}
			req.Photos = append(req.Photos, *upload)
		}
	}

	result, err := a.orchestrator.ProcessMeeting(c.Request.Context(), req)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "PipelineError"}).
			Error("meeting processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process meeting"})
		return
	}

	response := gin.H{"result": result}
	if person, err := a.persons.GetByID(c.Request.Context(), result.PersonID); err == nil {
		response["person"] = gin.H{
			"name":      person.Name,
			"company":   person.Company,
			"job_title": person.JobTitle,
		}
	}
	if meeting, err := a.meetings.GetByID(c.Request.Context(), result.MeetingID); err == nil {
		response["meeting_date"] = meeting.Date
		if meeting.RawData.TranscribedText != "" {
			response["transcribed_text"] = meeting.RawData.TranscribedText
		}
		photoTexts := map[string]string{}
		for _, photo := range meeting.RawData.Photos {
			if photo.ExtractedText != "" {
				photoTexts[photo.Filename] = photo.ExtractedText
			}
		}
		if len(photoTexts) > 0 {
			response["photo_texts"] = photoTexts
		}
	}
	c.JSON(http.StatusOK, response)
}

// ExtractTextHandler runs standalone OCR over one uploaded image, outside
// the pipeline. Used by the client to preview business card text.
func (a *API) ExtractTextHandler(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	upload, err := readUpload(header)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image upload"})
		return
	}
	text, err := a.ocr.ExtractText(c.Request.Context(), *upload, a.logger)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Text extraction failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"extracted_text": text})
}

// GetGroupsHandler returns the user's contacts bucketed into priority tiers.
func (a *API) GetGroupsHandler(c *gin.Context) {
	userID := c.DefaultQuery("user_id", defaultUserID)
	groups, err := a.meetings.GroupsByPriority(c.Request.Context(), userID)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "QueryError"}).
			Error("failed to load priority groups")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// onboardingRequest is the questionnaire payload from the client.
type onboardingRequest struct {
	UserID       string              `json:"user_id"`
	UseCase      string              `json:"use_case"`
	Intent       string              `json:"intent"`
	Goals        string              `json:"goals"`
	EventDetails models.EventDetails `json:"event_details"`
	Priorities   models.Priorities   `json:"priorities"`
	Comments     string              `json:"comments"`
}

// SaveOnboardingHandler stores the onboarding questionnaire. Free-form
// comments are mined for implicit preferences before saving.
func (a *API) SaveOnboardingHandler(c *gin.Context) {
	var req onboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}
	if req.UserID == "" {
		req.UserID = defaultUserID
	}

	now := time.Now().UTC()
	prefs := &models.UserPreferences{
		UserID:             req.UserID,
		UseCase:            req.UseCase,
		Intent:             req.Intent,
		Goals:              req.Goals,
		EventDetails:       req.EventDetails,
		Priorities:         req.Priorities,
		OnboardingComments: req.Comments,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	prefs.ExtractedPreferences = a.prefAnalysis.Analyze(c.Request.Context(), req.Comments,
		logger.New("api", "", req.UserID))

	if err := a.prefs.Upsert(c.Request.Context(), prefs); err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "StoreError"}).
			Error("failed to save onboarding preferences")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save preferences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":                "saved",
		"user_id":               req.UserID,
		"extracted_preferences": prefs.ExtractedPreferences,
	})
}

// GetOnboardingHandler returns the user's saved questionnaire, or 404 when
// onboarding was never completed.
func (a *API) GetOnboardingHandler(c *gin.Context) {
	userID := c.Param("user_id")
	prefs, err := a.prefs.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve preferences"})
		return
	}
	if prefs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Onboarding not completed"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// ClearDataHandler wipes the pipeline collections. Agent registrations and
// onboarding answers survive the wipe.
func (a *API) ClearDataHandler(c *gin.Context) {
	counts, err := a.maintenance.ClearData(c.Request.Context())
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "MaintenanceError"}).
			Error("data clear failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "deleted": counts})
}

// ResetOnboardingHandler deletes the user's onboarding answers.
func (a *API) ResetOnboardingHandler(c *gin.Context) {
	userID := c.Param("user_id")
	deleted, err := a.prefs.Delete(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset onboarding"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset", "deleted": deleted})
}

// HealthHandler reports process liveness.
func (a *API) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DBHealthHandler reports database connectivity.
func (a *API) DBHealthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := a.dbHealth(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readUpload copies one multipart file into memory with a size cap.
func readUpload(header *multipart.FileHeader) (*media.Upload, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, err
	}
	return &media.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
