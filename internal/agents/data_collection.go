package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/media"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/services"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/store"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/taskqueue"
	"github.com/LizaGhosh/mongodb-lead-agent/pkg/logger"
)

// DataCollectionAgent runs the first pipeline stage: it assembles the
// unified meeting text from written notes, audio transcription and photo
// OCR, stores the raw media in object storage, and creates the person and
// meeting documents every later stage writes into.
type DataCollectionAgent struct {
	*BaseAgent
	persons       store.PersonStore
	meetings      store.MeetingStore
	transcription *services.TranscriptionService
	ocr           *services.OCRService
	media         *media.Store
}

// NewDataCollectionAgent wires the stage. mediaStore may be nil when object
// storage is disabled; raw files then keep only their metadata.
func NewDataCollectionAgent(tasks taskqueue.Store, registry store.AgentStore,
	persons store.PersonStore, meetings store.MeetingStore,
	transcription *services.TranscriptionService, ocr *services.OCRService,
	mediaStore *media.Store) *DataCollectionAgent {
	return &DataCollectionAgent{
		BaseAgent: newBaseAgent("data_collection_agent",
			[]string{"data_collection", "transcription", "ocr"},
			models.AgentCapabilities{
				InputTypes:  []string{"text", "audio", "image"},
				OutputTypes: []string{"unified_text"},
			}, tasks, registry),
		persons:       persons,
		meetings:      meetings,
		transcription: transcription,
		ocr:           ocr,
		media:         mediaStore,
	}
}

// ProcessTask claims and executes a data_collection task. The audio and
// photo bytes travel outside the queue: the orchestrator hands them to this
// worker directly, and the task payload carries only the text fields.
func (a *DataCollectionAgent) ProcessTask(ctx context.Context, taskID string,
	audio *media.Upload, photos []media.Upload) error {
	won, err := a.claimTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}
	a.setStatus(ctx, models.AgentStatusBusy, taskID)
	defer a.setStatus(ctx, models.AgentStatusIdle, "")

	task, err := a.tasks.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	var input models.DataCollectionInput
	if err := models.DecodePayload(task.InputData, &input); err != nil {
		a.failTask(ctx, taskID, err)
		return err
	}

	log := logger.New(a.agentType, taskID, input.UserID)
	output, err := a.collect(ctx, input, audio, photos, log)
	if err != nil {
		a.failTask(ctx, taskID, err)
		return err
	}
	return a.completeTask(ctx, taskID, output)
}

func (a *DataCollectionAgent) collect(ctx context.Context, input models.DataCollectionInput,
	audio *media.Upload, photos []media.Upload, log *logger.Logger) (*models.DataCollectionOutput, error) {
	unified := input.MeetingText
	raw := models.RawMeetingData{Text: input.MeetingText, Photos: []models.MediaFile{}}

	if audio != nil {
		file, transcript := a.processAudio(ctx, *audio, log)
		raw.Audio = file
		if transcript != "" {
			raw.TranscribedText = transcript
			unified += "\n\n[Audio Transcription]\n" + transcript
		}
	}
	for _, photo := range photos {
		file, text := a.processPhoto(ctx, photo, log)
		raw.Photos = append(raw.Photos, file)
		if text != "" {
			unified += fmt.Sprintf("\n\n[Text from %s]\n%s", photo.Filename, text)
		}
	}
	raw.Text = unified

	now := time.Now().UTC()
	person := &models.Person{
		PersonID:  uuid.New().String(),
		CreatedAt: now,
	}
	meeting := &models.Meeting{
		MeetingID: uuid.New().String(),
		PersonID:  person.PersonID,
		UserID:    input.UserID,
		Date:      now,
		Location:  input.Location,
		RawData:   raw,
		Status:    models.MeetingStatusProcessing,
		CreatedAt: now,
	}
	person.MeetingIDs = []string{meeting.MeetingID}

	if err := a.persons.Create(ctx, person); err != nil {
		return nil, fmt.Errorf("create person: %w", err)
	}
	if err := a.meetings.Create(ctx, meeting); err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}

	log.WithPayload(map[string]interface{}{
		"person_id":           person.PersonID,
		"meeting_id":          meeting.MeetingID,
		"unified_text_length": len(unified),
		"photo_count":         len(photos),
		"has_audio":           audio != nil,
	}).Info("meeting data collected")

	return &models.DataCollectionOutput{
		PersonID:    person.PersonID,
		MeetingID:   meeting.MeetingID,
		UnifiedText: unified,
		UserID:      input.UserID,
	}, nil
}

// processAudio stores the recording and transcribes it. Transcription
// failure is non-fatal: the written notes still flow downstream.
func (a *DataCollectionAgent) processAudio(ctx context.Context, up media.Upload, log *logger.Logger) (*models.MediaFile, string) {
	file := &models.MediaFile{
		Filename:    up.Filename,
		ContentType: media.DetectContentType(up.ContentType, up.Data),
		Size:        int64(len(up.Data)),
	}
	if ref, err := a.media.Put(ctx, "audio", up); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "MediaStoreError"}).
			Warn("audio upload to object storage failed")
	} else {
		file.StorageRef = ref
	}
	transcript, err := a.transcription.Transcribe(ctx, up, log)
	if err == nil && transcript != "" {
		file.Processed = true
		file.ProcessedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return file, transcript
}

// processPhoto stores the image and runs OCR over it. A photo with no
// readable text stays unprocessed but keeps its storage reference.
func (a *DataCollectionAgent) processPhoto(ctx context.Context, up media.Upload, log *logger.Logger) (models.MediaFile, string) {
	file := models.MediaFile{
		Filename:    up.Filename,
		ContentType: media.DetectContentType(up.ContentType, up.Data),
		Size:        int64(len(up.Data)),
	}
	if ref, err := a.media.Put(ctx, "photos", up); err != nil {
		log.WithError(models.ErrorInfo{Message: err.Error(), Type: "MediaStoreError"}).
			Warn("photo upload to object storage failed")
	} else {
		file.StorageRef = ref
	}
	text, err := a.ocr.ExtractText(ctx, up, log)
	if err == nil && text != "" {
		file.Processed = true
		file.ExtractedText = text
		file.ProcessedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return file, text
}
