package enrichment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/socialink/internal/generator"
	"github.com/charlesng35/socialink/internal/tasks"
	"github.com/charlesng35/socialink/pkg/mail"
)

type stubGenerator struct {
	url     string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.url, g.err
}

type memoryPosts struct {
	mu     sync.Mutex
	images map[uint]string
	err    error
}

func (s *memoryPosts) SetImageURL(_ context.Context, postID uint, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.images == nil {
		s.images = map[uint]string{}
	}
	s.images[postID] = url
	return nil
}

type sentEmail struct {
	to, subject, body string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{to: to, subject: subject, body: body})
	return n.err
}

func testJob() Job {
	return Job{
		UserEmail: "alice@example.com",
		PostID:    7,
		PostURL:   "https://socialink.example.com/post/7",
		Prompt:    "A cat",
	}
}

func TestNewPipelineRequiresCollaborators(t *testing.T) {
	_, err := NewPipeline(nil, &memoryPosts{}, &recordingNotifier{})
	require.Error(t, err)
	_, err = NewPipeline(&stubGenerator{}, nil, &recordingNotifier{})
	require.Error(t, err)
	_, err = NewPipeline(&stubGenerator{}, &memoryPosts{}, nil)
	require.Error(t, err)
}

func TestRunStoresImageAndSendsCompletionEmail(t *testing.T) {
	gen := &stubGenerator{url: "https://example.net/image.jpg"}
	posts := &memoryPosts{}
	notifier := &recordingNotifier{}

	p, err := NewPipeline(gen, posts, notifier)
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background(), testJob()))

	require.Equal(t, []string{"A cat"}, gen.prompts)
	require.Equal(t, "https://example.net/image.jpg", posts.images[7])
	require.Len(t, notifier.sent, 1)
	require.Equal(t, "alice@example.com", notifier.sent[0].to)
	require.Equal(t, "Image generation completed", notifier.sent[0].subject)
	require.Contains(t, notifier.sent[0].body, "https://socialink.example.com/post/7")
}

func TestRunGenerationFailureSendsFailureEmailOnly(t *testing.T) {
	for name, genErr := range map[string]error{
		"status":      &generator.StatusError{StatusCode: http.StatusInternalServerError},
		"unparseable": generator.ErrGenerationUnparseable,
	} {
		t.Run(name, func(t *testing.T) {
			posts := &memoryPosts{}
			notifier := &recordingNotifier{}
			p, err := NewPipeline(&stubGenerator{err: genErr}, posts, notifier)
			require.NoError(t, err)

			require.NoError(t, p.Run(context.Background(), testJob()))

			require.Empty(t, posts.images)
			require.Len(t, notifier.sent, 1)
			require.Equal(t, "Error generating image", notifier.sent[0].subject)
		})
	}
}

func TestRunReportsFailureEmailDeliveryError(t *testing.T) {
	notifier := &recordingNotifier{err: &mail.DeliveryError{Provider: "mailgun", StatusCode: 502}}
	p, err := NewPipeline(&stubGenerator{err: generator.ErrGenerationFailed}, &memoryPosts{}, notifier)
	require.NoError(t, err)

	err = p.Run(context.Background(), testJob())
	var delivery *mail.DeliveryError
	require.True(t, errors.As(err, &delivery))
	require.Equal(t, 502, delivery.StatusCode)
	require.Len(t, notifier.sent, 1)
}

func TestRunRecordsOneOutcomePerAttempt(t *testing.T) {
	cases := map[string]struct {
		gen      *stubGenerator
		posts    *memoryPosts
		notifier *recordingNotifier
		want     string
	}{
		"completed": {
			gen: &stubGenerator{url: "https://images.example.com/a.png"}, posts: &memoryPosts{},
			notifier: &recordingNotifier{}, want: OutcomeCompleted,
		},
		"generation failed": {
			gen: &stubGenerator{err: generator.ErrGenerationFailed}, posts: &memoryPosts{},
			notifier: &recordingNotifier{}, want: OutcomeGenerationFailed,
		},
		"generation failed and failure email bounced": {
			gen: &stubGenerator{err: generator.ErrGenerationFailed}, posts: &memoryPosts{},
			notifier: &recordingNotifier{err: &mail.DeliveryError{Provider: "smtp", StatusCode: 550}},
			want:     OutcomeGenerationFailed,
		},
		"completion email bounced": {
			gen: &stubGenerator{url: "https://images.example.com/a.png"}, posts: &memoryPosts{},
			notifier: &recordingNotifier{err: errors.New("relay down")}, want: OutcomeNotifyFailed,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := NewPipeline(tc.gen, tc.posts, tc.notifier)
			require.NoError(t, err)

			var outcomes []string
			p.record = func(outcome string) { outcomes = append(outcomes, outcome) }

			_ = p.Run(context.Background(), testJob())
			require.Equal(t, []string{tc.want}, outcomes)
		})
	}
}

func TestRunPersistenceFailureSkipsEmail(t *testing.T) {
	notifier := &recordingNotifier{}
	posts := &memoryPosts{err: errors.New("db locked")}
	p, err := NewPipeline(&stubGenerator{url: "https://example.net/image.jpg"}, posts, notifier)
	require.NoError(t, err)

	err = p.Run(context.Background(), testJob())
	require.ErrorContains(t, err, "db locked")
	require.Empty(t, notifier.sent)
}

func TestRunCompletionEmailFailureKeepsImage(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	posts := &memoryPosts{}
	p, err := NewPipeline(&stubGenerator{url: "https://example.net/image.jpg"}, posts, notifier)
	require.NoError(t, err)

	require.Error(t, p.Run(context.Background(), testJob()))
	require.Equal(t, "https://example.net/image.jpg", posts.images[7])
}

func TestRunRejectsInvalidJobs(t *testing.T) {
	gen := &stubGenerator{url: "https://example.net/image.jpg"}
	p, err := NewPipeline(gen, &memoryPosts{}, &recordingNotifier{})
	require.NoError(t, err)

	for _, mutate := range []func(*Job){
		func(j *Job) { j.UserEmail = "" },
		func(j *Job) { j.PostID = 0 },
		func(j *Job) { j.Prompt = "  " },
	} {
		job := testJob()
		mutate(&job)
		require.ErrorIs(t, p.Run(context.Background(), job), ErrInvalidJob)
	}
	require.Empty(t, gen.prompts)
}

func TestPipelineRunsThroughTaskRunnerWithHTTPGenerator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output_url":"https://example.net/image.jpg"}`))
	}))
	defer server.Close()

	posts := &memoryPosts{}
	notifier := &recordingNotifier{}
	p, err := NewPipeline(generator.NewClient(generator.Config{Endpoint: server.URL}), posts, notifier)
	require.NoError(t, err)

	runner := tasks.NewRunner(tasks.Config{Workers: 1, QueueSize: 1})
	runner.Start()
	require.True(t, runner.Submit(TaskName, p.Task(testJob())))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Stop(ctx))

	posts.mu.Lock()
	defer posts.mu.Unlock()
	require.Equal(t, "https://example.net/image.jpg", posts.images[7])
	require.Len(t, notifier.sent, 1)
}
