package agents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/llm"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/services"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/store"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/taskqueue"
)

// ---- fakes ----

type fakePersonStore struct {
	mu      sync.Mutex
	persons map[string]*models.Person
}

func newFakePersonStore() *fakePersonStore {
	return &fakePersonStore{persons: make(map[string]*models.Person)}
}

func (s *fakePersonStore) Create(_ context.Context, p *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *p
	s.persons[p.PersonID] = &dup
	return nil
}

func (s *fakePersonStore) GetByID(_ context.Context, id string) (*models.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[id]
	if !ok {
		return nil, store.ErrPersonNotFound
	}
	dup := *p
	return &dup, nil
}

func (s *fakePersonStore) UpdateExtraction(_ context.Context, id string, out models.ExtractionOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[id]
	if !ok {
		return store.ErrPersonNotFound
	}
	p.Name = out.Name
	p.Company = out.Company
	p.JobTitle = out.JobTitle
	p.ExtractedData = models.ExtractedData{ContactInfo: out.ContactInfo, ExtractedAt: time.Now()}
	return nil
}

func (s *fakePersonStore) UpdateCategorization(_ context.Context, id string, cat models.Categorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.persons[id]
	if !ok {
		return store.ErrPersonNotFound
	}
	p.Categorized = cat
	return nil
}

type fakeMeetingStore struct {
	mu          sync.Mutex
	meetings    map[string]*models.Meeting
	failSummary bool
}

func newFakeMeetingStore() *fakeMeetingStore {
	return &fakeMeetingStore{meetings: make(map[string]*models.Meeting)}
}

func (s *fakeMeetingStore) Create(_ context.Context, m *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *m
	s.meetings[m.MeetingID] = &dup
	return nil
}

func (s *fakeMeetingStore) GetByID(_ context.Context, id string) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, store.ErrMeetingNotFound
	}
	dup := *m
	return &dup, nil
}

func (s *fakeMeetingStore) UpdateSummary(_ context.Context, id string, summary models.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSummary {
		return errors.New("summary write rejected")
	}
	m, ok := s.meetings[id]
	if !ok {
		return store.ErrMeetingNotFound
	}
	m.Summary = summary
	return nil
}

func (s *fakeMeetingStore) SetPriority(_ context.Context, id, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return store.ErrMeetingNotFound
	}
	m.PriorityGroup = group
	m.Status = models.MeetingStatusCompleted
	return nil
}

func (s *fakeMeetingStore) GroupsByPriority(_ context.Context, _ string) (map[string][]store.GroupEntry, error) {
	return map[string][]store.GroupEntry{}, nil
}

type fakePreferenceStore struct {
	mu    sync.Mutex
	prefs map[string]*models.UserPreferences
}

func newFakePreferenceStore() *fakePreferenceStore {
	return &fakePreferenceStore{prefs: make(map[string]*models.UserPreferences)}
}

func (s *fakePreferenceStore) Upsert(_ context.Context, p *models.UserPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *p
	s.prefs[p.UserID] = &dup
	return nil
}

func (s *fakePreferenceStore) Get(_ context.Context, userID string) (*models.UserPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prefs[userID]
	if !ok {
		return nil, nil
	}
	dup := *p
	return &dup, nil
}

func (s *fakePreferenceStore) Delete(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prefs[userID]; !ok {
		return 0, nil
	}
	delete(s.prefs, userID)
	return 1, nil
}

// fakeLLM replays scripted chat replies in call order.
type fakeLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (f *fakeLLM) Chat(_ context.Context, _ *llm.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no scripted reply left")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeLLM) ExtractImageText(_ context.Context, _ *llm.VisionRequest) (string, error) {
	return "", nil
}

func (f *fakeLLM) Transcribe(_ context.Context, _ string, _ []byte) (string, error) {
	return "", nil
}

// ---- harness ----

type pipeline struct {
	tasks        taskqueue.Store
	persons      *fakePersonStore
	meetings     *fakeMeetingStore
	prefs        *fakePreferenceStore
	orchestrator *Orchestrator
}

func newPipeline(t *testing.T, client llm.Client, gateTimeout, pollInterval time.Duration) *pipeline {
	return newPipelineWithStore(t, taskqueue.NewMemoryStore(), client, gateTimeout, pollInterval)
}

func newPipelineWithStore(t *testing.T, tasks taskqueue.Store, client llm.Client,
	gateTimeout, pollInterval time.Duration) *pipeline {
	t.Helper()
	persons := newFakePersonStore()
	meetings := newFakeMeetingStore()
	prefs := newFakePreferenceStore()

	dataCollection := NewDataCollectionAgent(tasks, nil, persons, meetings,
		services.NewTranscriptionService(client), services.NewOCRService(client), nil)
	extraction := NewExtractionAgent(tasks, nil, persons, client)
	summarization := NewSummarizationAgent(tasks, nil, meetings, persons, prefs, client)
	categorization := NewCategorizationAgent(tasks, nil, persons, meetings, prefs, client)

	return &pipeline{
		tasks:    tasks,
		persons:  persons,
		meetings: meetings,
		prefs:    prefs,
		orchestrator: NewOrchestrator(tasks, nil,
			dataCollection, extraction, summarization, categorization,
			persons, meetings, gateTimeout, pollInterval),
	}
}

// brokenScanStore fails the eligibility scan, as a dropped task store
// connection would.
type brokenScanStore struct {
	taskqueue.Store
}

func (s brokenScanStore) GetAvailableTask(context.Context, models.TaskType) (*models.Task, error) {
	return nil, errors.New("tasks collection unavailable")
}

// brokenLookupStore fails every read-by-id.
type brokenLookupStore struct {
	taskqueue.Store
}

func (s brokenLookupStore) GetTask(context.Context, string) (*models.Task, error) {
	return nil, errors.New("tasks collection unavailable")
}

// unclaimableSummarizationStore loses every claim on summarization tasks,
// leaving them pending forever.
type unclaimableSummarizationStore struct {
	taskqueue.Store
}

func (s unclaimableSummarizationStore) ClaimTask(ctx context.Context, taskID, agentID string) (bool, error) {
	task, err := s.Store.GetTask(ctx, taskID)
	if err == nil && task.TaskType == models.TaskTypeSummarization {
		return false, nil
	}
	return s.Store.ClaimTask(ctx, taskID, agentID)
}

// ---- tests ----

func TestPipelineFallbackWithoutLLM(t *testing.T) {
	p := newPipeline(t, nil, 5*time.Second, 10*time.Millisecond)

	text := "Met Jane at TechConf, we talked about her data platform team."
	result, err := p.orchestrator.ProcessMeeting(context.Background(), MeetingRequest{
		UserID:      "u1",
		MeetingText: text,
		Location:    "TechConf",
	})
	if err != nil {
		t.Fatalf("ProcessMeeting: %v", err)
	}

	if result.Status != "completed" {
		t.Fatalf("expected completed status, got %s", result.Status)
	}
	// Unknown contact fields leave only the 0.5 base score, landing in P1.
	if result.Score != 0.5 {
		t.Fatalf("expected fallback base score 0.5, got %v", result.Score)
	}
	if result.PriorityGroup != models.PriorityP1 {
		t.Fatalf("expected P1, got %s", result.PriorityGroup)
	}
	if result.Summary != text {
		t.Fatalf("short text should pass through untruncated, got %q", result.Summary)
	}

	person, err := p.persons.GetByID(context.Background(), result.PersonID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if person.Name != models.UnknownField || person.Company != models.UnknownField {
		t.Fatalf("fallback extraction should leave Unknown fields, got %q / %q",
			person.Name, person.Company)
	}

	meeting, err := p.meetings.GetByID(context.Background(), result.MeetingID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if meeting.Status != models.MeetingStatusCompleted {
		t.Fatalf("meeting should be completed, got %s", meeting.Status)
	}
	if meeting.PriorityGroup != models.PriorityP1 {
		t.Fatalf("meeting priority should match result, got %s", meeting.PriorityGroup)
	}
}

func TestPipelineWithLLM(t *testing.T) {
	// Chat replies in dispatch order: extraction, summarization,
	// categorization.
	client := &fakeLLM{replies: []string{
		`{"name":"Jane Smith","company":"Acme Corp","job_title":"VP of Engineering","contact_info":{"email":"jane@acme.com"}}`,
		"Jane Smith of Acme Corp discussed hiring plans for her platform team.",
		`{"priority_group":"P0","score":0.9,"reasons":["matches hiring goal"],"persona":"executive","urgency_level":"high","intent_match_score":0.85}`,
	}}
	p := newPipeline(t, client, 5*time.Second, 10*time.Millisecond)

	result, err := p.orchestrator.ProcessMeeting(context.Background(), MeetingRequest{
		UserID:      "u1",
		MeetingText: "Met Jane Smith at TechConf.",
	})
	if err != nil {
		t.Fatalf("ProcessMeeting: %v", err)
	}

	if result.Status != "completed" {
		t.Fatalf("expected completed status, got %s", result.Status)
	}
	if result.PriorityGroup != models.PriorityP0 || result.Score != 0.9 {
		t.Fatalf("expected P0/0.9 from the model, got %s/%v", result.PriorityGroup, result.Score)
	}
	if !strings.Contains(result.Summary, "Jane Smith of Acme Corp") {
		t.Fatalf("expected model summary, got %q", result.Summary)
	}

	person, err := p.persons.GetByID(context.Background(), result.PersonID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if person.Name != "Jane Smith" || person.Company != "Acme Corp" {
		t.Fatalf("extraction should persist model fields, got %q / %q", person.Name, person.Company)
	}
	if person.ExtractedData.ContactInfo["email"] != "jane@acme.com" {
		t.Fatalf("contact info not persisted: %+v", person.ExtractedData.ContactInfo)
	}
}

func TestPipelineDegradesWhenStageFails(t *testing.T) {
	p := newPipeline(t, nil, 300*time.Millisecond, 10*time.Millisecond)
	p.meetings.failSummary = true

	start := time.Now()
	result, err := p.orchestrator.ProcessMeeting(context.Background(), MeetingRequest{
		UserID:      "u1",
		MeetingText: "Quick chat with someone from a startup.",
	})
	if err != nil {
		t.Fatalf("ProcessMeeting: %v", err)
	}
	// The failed summarization task short-circuits the gate; the wait must
	// not consume the whole timeout budget, let alone exceed it.
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("degraded pipeline took too long: %v", elapsed)
	}

	if result.Status != "degraded" {
		t.Fatalf("expected degraded status, got %s", result.Status)
	}
	if result.PriorityGroup != models.PriorityP2 || result.Score != 0 {
		t.Fatalf("degraded result should park in P2 with zero score, got %s/%v",
			result.PriorityGroup, result.Score)
	}

	person, err := p.persons.GetByID(context.Background(), result.PersonID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if person.Categorized.PriorityGroup != models.PriorityP2 {
		t.Fatalf("degraded categorization not persisted: %+v", person.Categorized)
	}
	meeting, err := p.meetings.GetByID(context.Background(), result.MeetingID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if meeting.Status != models.MeetingStatusCompleted || meeting.PriorityGroup != models.PriorityP2 {
		t.Fatalf("degraded meeting should complete in P2, got %s/%s",
			meeting.Status, meeting.PriorityGroup)
	}
}

func TestPipelineDegradesOnGateTimeout(t *testing.T) {
	// The summarization task never gets claimed, so it sits pending until
	// the gate deadline fires. No task fails, so the only way out of the
	// wait is the timer.
	tasks := unclaimableSummarizationStore{taskqueue.NewMemoryStore()}
	p := newPipelineWithStore(t, tasks, nil, 300*time.Millisecond, 20*time.Millisecond)

	start := time.Now()
	result, err := p.orchestrator.ProcessMeeting(context.Background(), MeetingRequest{
		UserID:      "u1",
		MeetingText: "Brief hallway chat at the conference.",
	})
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("ProcessMeeting: %v", err)
	}

	if elapsed < 300*time.Millisecond {
		t.Fatalf("gate returned before its deadline: %v", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("gate overshot its deadline by too much: %v", elapsed)
	}

	if result.Status != "degraded" {
		t.Fatalf("expected degraded status, got %s", result.Status)
	}
	if result.PriorityGroup != models.PriorityP2 || result.Score != 0 {
		t.Fatalf("timed-out gate should park in P2 with zero score, got %s/%v",
			result.PriorityGroup, result.Score)
	}

	// The stalled summarization task must still be pending, not failed.
	meeting, err := p.meetings.GetByID(context.Background(), result.MeetingID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if meeting.PriorityGroup != models.PriorityP2 {
		t.Fatalf("meeting should carry the degraded priority, got %s", meeting.PriorityGroup)
	}
}

func TestPipelineFailsWhenScanErrors(t *testing.T) {
	tasks := brokenScanStore{taskqueue.NewMemoryStore()}
	p := newPipelineWithStore(t, tasks, nil, time.Second, 10*time.Millisecond)

	result, err := p.orchestrator.ProcessMeeting(context.Background(), MeetingRequest{
		UserID:      "u1",
		MeetingText: "Met someone at a meetup.",
	})
	if err == nil {
		t.Fatalf("store failure must abort the workflow, got result %+v", result)
	}
	if !strings.Contains(err.Error(), "tasks collection unavailable") {
		t.Fatalf("error should carry the store failure, got %v", err)
	}
}

func TestGateWaitSurfacesStoreError(t *testing.T) {
	inner := taskqueue.NewMemoryStore()
	p := newPipelineWithStore(t, brokenLookupStore{inner}, nil, time.Second, 10*time.Millisecond)

	start := time.Now()
	ready, err := p.orchestrator.waitForCompletion(context.Background(), []string{"t1", "t2"})
	if err == nil {
		t.Fatal("store failure during the wait must surface as an error")
	}
	if ready {
		t.Fatal("a failed poll must not report the gate as ready")
	}
	// The error must end the wait immediately, not burn the timeout budget.
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("gate wait kept polling through a store error: %v", elapsed)
	}
}

func TestProcessTaskLosesClaimRace(t *testing.T) {
	p := newPipeline(t, nil, time.Second, 10*time.Millisecond)
	ctx := context.Background()

	input, err := models.EncodePayload(models.ExtractionInput{UnifiedText: "notes", PersonID: "p1"})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	taskID, err := p.tasks.CreateTask(ctx, models.TaskTypeExtraction, input, nil, 9)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if won, _ := p.tasks.ClaimTask(ctx, taskID, "someone-else"); !won {
		t.Fatal("setup claim should win")
	}

	extraction := NewExtractionAgent(p.tasks, nil, p.persons, nil)
	if err := extraction.ProcessTask(ctx, taskID); err != nil {
		t.Fatalf("losing a claim race must not error: %v", err)
	}

	task, err := p.tasks.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.AssignedAgentID != "someone-else" || task.Status != models.TaskStatusAssigned {
		t.Fatalf("loser must not touch the task, got status=%s agent=%s",
			task.Status, task.AssignedAgentID)
	}
}

func TestFallbackCategorization(t *testing.T) {
	cases := []struct {
		name      string
		person    models.Person
		wantScore float64
		wantGroup string
	}{
		{
			name:      "all unknown",
			person:    models.Person{Name: models.UnknownField, Company: models.UnknownField, JobTitle: models.UnknownField},
			wantScore: 0.5,
			wantGroup: models.PriorityP1,
		},
		{
			name:      "all known",
			person:    models.Person{Name: "Jane", Company: "Acme", JobTitle: "VP"},
			wantScore: 0.8,
			wantGroup: models.PriorityP0,
		},
		{
			name:      "name only",
			person:    models.Person{Name: "Jane", Company: models.UnknownField, JobTitle: models.UnknownField},
			wantScore: 0.6,
			wantGroup: models.PriorityP1,
		},
		{
			name:      "empty fields count as unknown",
			person:    models.Person{},
			wantScore: 0.5,
			wantGroup: models.PriorityP1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := fallbackCategorization(&tc.person)
			if out.Score != tc.wantScore {
				t.Fatalf("score = %v, want %v", out.Score, tc.wantScore)
			}
			if out.PriorityGroup != tc.wantGroup {
				t.Fatalf("group = %s, want %s", out.PriorityGroup, tc.wantGroup)
			}
			// Deterministic over the same input.
			again := fallbackCategorization(&tc.person)
			if again.Score != out.Score || again.PriorityGroup != out.PriorityGroup {
				t.Fatal("fallback scoring must be deterministic")
			}
		})
	}
}

func TestGroupForScore(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.0, models.PriorityP2},
		{0.39, models.PriorityP2},
		{0.4, models.PriorityP1},
		{0.69, models.PriorityP1},
		{0.7, models.PriorityP0},
		{1.0, models.PriorityP0},
	}
	for _, tc := range cases {
		if got := groupForScore(tc.score); got != tc.want {
			t.Errorf("groupForScore(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestNormalizeCategorization(t *testing.T) {
	out := normalizeCategorization(models.CategorizationOutput{
		PriorityGroup:    "P9",
		Score:            1.7,
		IntentMatchScore: -0.3,
	})
	if out.Score != 1 {
		t.Fatalf("score should clamp to 1, got %v", out.Score)
	}
	if out.IntentMatchScore != 0 {
		t.Fatalf("intent match score should clamp to 0, got %v", out.IntentMatchScore)
	}
	if out.PriorityGroup != models.PriorityP2 {
		t.Fatalf("unknown group should coerce to P2, got %s", out.PriorityGroup)
	}
	if out.Reasons == nil {
		t.Fatal("reasons should never stay nil")
	}
}

func TestTruncateSummary(t *testing.T) {
	short := "brief notes"
	if got := truncateSummary(short); got != short {
		t.Fatalf("short text must pass through, got %q", got)
	}

	long := strings.Repeat("x", 450)
	got := truncateSummary(long)
	if len(got) != fallbackSummaryLimit+3 {
		t.Fatalf("truncated length = %d, want %d", len(got), fallbackSummaryLimit+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated summary must end with ellipsis, got %q", got[len(got)-10:])
	}
	if got[:fallbackSummaryLimit] != long[:fallbackSummaryLimit] {
		t.Fatal("truncation must keep the leading text intact")
	}
}

func TestSummarizationUsesPreferencesFocus(t *testing.T) {
	p := newPipeline(t, nil, time.Second, 10*time.Millisecond)
	ctx := context.Background()

	p.prefs.Upsert(ctx, &models.UserPreferences{
		UserID:  "u1",
		UseCase: models.UseCaseSales,
		ExtractedPreferences: models.ExtractedPreferences{
			CustomCriteria: []string{"funding", "remote culture", "open source", "hardware"},
		},
	})

	agent := NewSummarizationAgent(p.tasks, nil, p.meetings, p.persons, p.prefs, nil)
	areas := agent.focusAreas(ctx, "u1")

	if areas[0] != "pain points" {
		t.Fatalf("sales use case should lead with pain points, got %v", areas)
	}
	var mentions int
	for _, a := range areas {
		if strings.HasPrefix(a, "mentions of: ") {
			mentions++
		}
	}
	if mentions != 3 {
		t.Fatalf("custom criteria capped at 3 mention checks, got %d in %v", mentions, areas)
	}
}

func TestLLMErrorFallsBackPerStage(t *testing.T) {
	client := &fakeLLM{err: errors.New("provider down")}
	p := newPipeline(t, client, 5*time.Second, 10*time.Millisecond)

	result, err := p.orchestrator.ProcessMeeting(context.Background(), MeetingRequest{
		UserID:      "u1",
		MeetingText: "Spoke with someone about observability tooling.",
	})
	if err != nil {
		t.Fatalf("ProcessMeeting: %v", err)
	}
	if result.Status != "completed" {
		t.Fatalf("provider outage must not fail the pipeline, got %s", result.Status)
	}
	if result.Score != 0.5 || result.PriorityGroup != models.PriorityP1 {
		t.Fatalf("expected rule-based scoring under outage, got %s/%v",
			result.PriorityGroup, result.Score)
	}
}
