package research

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/magabrotheeeer/accelerator-platform/internal/cache"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memRepo хранит трекеры и ответы в памяти.
type memRepo struct {
	mu        sync.Mutex
	questions []*models.Question
	trackers  map[int64]*models.Tracker
	answers   map[int64]map[int64]*models.Answer
	nextID    int64
	listCalls int
}

func newMemRepo() *memRepo {
	r := &memRepo{
		trackers: make(map[int64]*models.Tracker),
		answers:  make(map[int64]map[int64]*models.Answer),
	}
	var id int64
	for _, step := range defaultCurriculum {
		for order := 1; order <= 2; order++ {
			id++
			r.questions = append(r.questions, &models.Question{
				ID: id, Phase: step.Phase, Stage: step.Stage, Order: order,
				Text: fmt.Sprintf("%s question %d", step, order), Type: models.QuestionText, Required: true,
			})
		}
	}
	// planning/stage_2: методология.
	r.questions[2].Type = models.QuestionMultipleChoice
	r.questions[2].Options = []string{"Qualitative", "Quantitative", "Mixed Methods"}
	// research/stage_1: чекбоксы и шкала.
	r.questions[4].Type = models.QuestionCheckbox
	r.questions[4].Options = []string{"Survey", "Interview", "Experiment"}
	r.questions[5].Type = models.QuestionScale
	r.questions[5].Options = []string{"1", "5"}
	return r
}

func (r *memRepo) GetOrCreateTracker(_ context.Context, projectID int64) (*models.Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[projectID]
	if !ok {
		r.nextID++
		t = &models.Tracker{ID: r.nextID, ProjectID: projectID, CurrentPhase: Start.Phase, CurrentStage: Start.Stage}
		r.trackers[projectID] = t
		r.answers[t.ID] = make(map[int64]*models.Answer)
	}
	cp := *t
	return &cp, nil
}

func (r *memRepo) ListQuestions(_ context.Context, step models.Step) ([]*models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []*models.Question
	for _, q := range r.questions {
		if q.Step() == step {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *memRepo) ListAllQuestions(context.Context) ([]*models.Question, error) {
	return r.questions, nil
}

func (r *memRepo) GetQuestions(_ context.Context, ids []int64) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range r.questions {
		for _, id := range ids {
			if q.ID == id {
				out = append(out, q)
			}
		}
	}
	return out, nil
}

func (r *memRepo) SaveAnswers(_ context.Context, trackerID int64, inputs []models.AnswerInput) ([]*models.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byQuestion, ok := r.answers[trackerID]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := make([]*models.Answer, 0, len(inputs))
	for _, in := range inputs {
		r.nextID++
		a := &models.Answer{ID: r.nextID, TrackerID: trackerID, QuestionID: in.QuestionID, Text: in.Text, CreatedAt: time.Now()}
		byQuestion[in.QuestionID] = a
		out = append(out, a)
	}
	return out, nil
}

func (r *memRepo) ListAnswers(_ context.Context, trackerID int64) ([]*models.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Answer
	for _, a := range r.answers[trackerID] {
		out = append(out, a)
	}
	return out, nil
}

func (r *memRepo) Completion(_ context.Context, trackerID int64, step models.Step) (models.Completion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var answered, total, reqAnswered, reqTotal int
	for _, q := range r.questions {
		if q.Step() != step {
			continue
		}
		_, has := r.answers[trackerID][q.ID]
		total++
		if has {
			answered++
		}
		if q.Required {
			reqTotal++
			if has {
				reqAnswered++
			}
		}
	}
	return models.NewCompletion(step, answered, total, reqAnswered, reqTotal), nil
}

func (r *memRepo) MoveTracker(_ context.Context, trackerID int64, from, to models.Step) (*models.Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.trackers {
		if t.ID != trackerID {
			continue
		}
		if t.Position() != from {
			return nil, models.ErrStageConflict
		}
		t.CurrentPhase, t.CurrentStage = to.Phase, to.Stage
		cp := *t
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

// projectsStub пускает владельца к его проектам.
type projectsStub struct {
	projects map[int64]*models.Project
}

func (p projectsStub) Get(_ context.Context, actor *rbac.Identity, id int64) (*models.Project, error) {
	project, ok := p.projects[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if project.OwnerID != actor.UserID {
		return nil, models.ErrForbidden
	}
	return project, nil
}

var (
	owner    = &rbac.Identity{UserID: uuid.New(), Email: "owner@example.com", Role: models.RoleStudent}
	stranger = &rbac.Identity{UserID: uuid.New(), Email: "other@example.com", Role: models.RoleStudent}
)

const projectID int64 = 7

func setup(t *testing.T) (*Service, *memRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := newMemRepo()
	projects := projectsStub{projects: map[int64]*models.Project{
		projectID: {ID: projectID, Name: "Study", Type: models.ProjectResearch, Stage: "planning", OwnerID: owner.UserID},
	}}
	svc := NewService(repo, projects, &cache.Cache{Db: rdb}, time.Minute, newNoopLogger())
	return svc, repo, mr
}

func answer(id int64, text string) models.AnswerInput {
	return models.AnswerInput{QuestionID: id, Text: text}
}

func TestService_TrackerStartsAtPlanning(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	view, err := svc.Tracker(ctx, owner, projectID)
	require.NoError(t, err)
	assert.Equal(t, Start, view.Tracker.Position())
	assert.False(t, view.Completion.RequiredSatisfied)
	assert.Equal(t, 2, view.Completion.RequiredTotal)
	require.NotNil(t, view.Next)
	assert.Equal(t, models.Step{Phase: "planning", Stage: "stage_2"}, *view.Next)

	again, err := svc.Tracker(ctx, owner, projectID)
	require.NoError(t, err)
	assert.Equal(t, view.Tracker.ID, again.Tracker.ID)
}

func TestService_TrackerForeignProject(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.Tracker(context.Background(), stranger, projectID)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestService_AnswerReplacesPrevious(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Answer(ctx, owner, projectID, []models.AnswerInput{answer(1, "first")})
	require.NoError(t, err)
	saved, err := svc.Answer(ctx, owner, projectID, []models.AnswerInput{answer(1, " second "), answer(1, "third")})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "third", saved[0].Text)

	view, err := svc.Tracker(ctx, owner, projectID)
	require.NoError(t, err)
	answers, err := repo.ListAnswers(ctx, view.Tracker.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "third", answers[0].Text)
}

func TestService_AnswerRejections(t *testing.T) {
	tests := []struct {
		name   string
		inputs []models.AnswerInput
	}{
		{name: "empty request", inputs: nil},
		{name: "unknown question", inputs: []models.AnswerInput{answer(999, "x")}},
		{name: "future position", inputs: []models.AnswerInput{answer(3, "Qualitative")}},
		{name: "blank text", inputs: []models.AnswerInput{answer(1, "   ")}},
		{name: "one bad answer rejects the batch", inputs: []models.AnswerInput{answer(1, "ok"), answer(12, "late")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := setup(t)
			ctx := context.Background()

			_, err := svc.Answer(ctx, owner, projectID, tt.inputs)
			assert.ErrorIs(t, err, models.ErrValidation)

			view, err := svc.Tracker(ctx, owner, projectID)
			require.NoError(t, err)
			answers, err := repo.ListAnswers(ctx, view.Tracker.ID)
			require.NoError(t, err)
			assert.Empty(t, answers)
		})
	}
}

func TestService_AdvanceLifecycle(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	stage2 := models.Step{Phase: "planning", Stage: "stage_2"}

	_, err := svc.Advance(ctx, owner, projectID, stage2)
	require.ErrorIs(t, err, models.ErrStageNotComplete)

	_, err = svc.Answer(ctx, owner, projectID, []models.AnswerInput{answer(1, "Topic"), answer(2, "Goal")})
	require.NoError(t, err)

	progress, err := svc.Progress(ctx, owner, projectID, nil)
	require.NoError(t, err)
	assert.True(t, progress.RequiredSatisfied)
	assert.True(t, progress.FullyComplete)
	assert.Equal(t, 2, progress.AnsweredCount)

	// Перескакивать позиции нельзя.
	_, err = svc.Advance(ctx, owner, projectID, models.Step{Phase: "research", Stage: "stage_1"})
	require.ErrorIs(t, err, models.ErrValidation)

	tracker, err := svc.Advance(ctx, owner, projectID, stage2)
	require.NoError(t, err)
	assert.Equal(t, stage2, tracker.Position())

	// Вопросы новой позиции ещё не отвечены.
	_, err = svc.Advance(ctx, owner, projectID, models.Step{Phase: "research", Stage: "stage_1"})
	require.ErrorIs(t, err, models.ErrStageNotComplete)

	// Ответы на пройденные позиции можно менять.
	_, err = svc.Answer(ctx, owner, projectID, []models.AnswerInput{answer(1, "New topic")})
	require.NoError(t, err)

	done, err := svc.Progress(ctx, owner, projectID, &Start)
	require.NoError(t, err)
	assert.True(t, done.RequiredSatisfied)
}

func TestService_AdvanceFromLastPosition(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	view, err := svc.Tracker(ctx, owner, projectID)
	require.NoError(t, err)
	last := defaultCurriculum[len(defaultCurriculum)-1]
	_, err = repo.MoveTracker(ctx, view.Tracker.ID, Start, last)
	require.NoError(t, err)

	view, err = svc.Tracker(ctx, owner, projectID)
	require.NoError(t, err)
	assert.Nil(t, view.Next)

	_, err = svc.Advance(ctx, owner, projectID, Start)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestService_ProgressUnknownPosition(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.Progress(context.Background(), owner, projectID, &models.Step{Phase: "growth", Stage: "stage_9"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestService_TypedAnswers(t *testing.T) {
	tests := []struct {
		name     string
		question int64
		text     string
		want     string
		wantErr  bool
	}{
		{name: "choice", question: 3, text: "Mixed Methods", want: "Mixed Methods"},
		{name: "choice outside options", question: 3, text: "Guesswork", wantErr: true},
		{name: "checkbox", question: 5, text: `[ "Survey", "Experiment" ]`, want: `["Survey","Experiment"]`},
		{name: "checkbox not array", question: 5, text: "Survey", wantErr: true},
		{name: "checkbox empty", question: 5, text: "[]", wantErr: true},
		{name: "checkbox duplicate", question: 5, text: `["Survey","Survey"]`, wantErr: true},
		{name: "checkbox unknown", question: 5, text: `["Poll"]`, wantErr: true},
		{name: "scale", question: 6, text: " 04 ", want: "4"},
		{name: "scale above bound", question: 6, text: "6", wantErr: true},
		{name: "scale not a number", question: 6, text: "high", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := setup(t)
			ctx := context.Background()

			view, err := svc.Tracker(ctx, owner, projectID)
			require.NoError(t, err)
			_, err = repo.MoveTracker(ctx, view.Tracker.ID, Start, models.Step{Phase: "research", Stage: "stage_1"})
			require.NoError(t, err)

			saved, err := svc.Answer(ctx, owner, projectID, []models.AnswerInput{answer(tt.question, tt.text)})
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrValidation)
				return
			}
			require.NoError(t, err)
			require.Len(t, saved, 1)
			assert.Equal(t, tt.want, saved[0].Text)
		})
	}
}

func TestScaleBounds(t *testing.T) {
	lo, hi := scaleBounds(nil)
	assert.Equal(t, [2]int{1, 10}, [2]int{lo, hi})

	lo, hi = scaleBounds([]string{"0", "100"})
	assert.Equal(t, [2]int{0, 100}, [2]int{lo, hi})

	lo, hi = scaleBounds([]string{"9", "3"})
	assert.Equal(t, [2]int{1, 10}, [2]int{lo, hi})
}

func TestService_QuestionsCached(t *testing.T) {
	svc, repo, mr := setup(t)
	ctx := context.Background()
	step := models.Step{Phase: "planning", Stage: "stage_2"}

	first, err := svc.Questions(ctx, owner, projectID, step)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.True(t, mr.Exists("research:questions:planning:stage_2"))

	second, err := svc.Questions(ctx, owner, projectID, step)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listCalls)

	mr.FastForward(2 * time.Minute)
	_, err = svc.Questions(ctx, owner, projectID, step)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestService_QuestionsUnknownStep(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.Questions(context.Background(), owner, projectID, models.Step{Phase: "planning", Stage: "stage_3"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_QuestionsCacheDown(t *testing.T) {
	svc, repo, mr := setup(t)
	mr.Close()

	questions, err := svc.Questions(context.Background(), owner, projectID, Start)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
	assert.Equal(t, 1, repo.listCalls)
}

func TestService_Export(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Answer(ctx, owner, projectID, []models.AnswerInput{answer(2, "Reduce churn")})
	require.NoError(t, err)

	buf, err := svc.Export(ctx, owner, projectID)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 13)
	assert.Equal(t, "Question", rows[0][3])
	assert.Equal(t, "planning", rows[2][0])
	assert.Equal(t, "Reduce churn", rows[2][6])
	assert.Equal(t, "TRUE", rows[1][5])
}
