package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"statusbot/internal/review"
	logx "statusbot/pkg/logx"
)

type step struct {
	body string // JSON; ignored when err is set
	err  error
}

type scriptFetcher struct {
	steps []step
	seen  []review.Watermark
}

func (f *scriptFetcher) Fetch(_ context.Context, w review.Watermark) (any, error) {
	f.seen = append(f.seen, w)
	if len(f.steps) == 0 {
		return nil, errors.New("script exhausted")
	}
	st := f.steps[0]
	f.steps = f.steps[1:]
	if st.err != nil {
		return nil, st.err
	}
	dec := json.NewDecoder(strings.NewReader(st.body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		panic(err)
	}
	return v, nil
}

type recorder struct {
	mu   sync.Mutex
	sent []string
	fail int // fail the next n sends
}

func (r *recorder) Notify(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail > 0 {
		r.fail--
		return errors.New("telegram unavailable")
	}
	r.sent = append(r.sent, text)
	return nil
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

type fixedSchedule time.Duration

func (d fixedSchedule) Next(t time.Time) time.Time { return t.Add(time.Duration(d)) }

func newService(f *scriptFetcher, n *recorder, start review.Watermark) *Service {
	return New(f, n, fixedSchedule(time.Minute), start, logx.Nop())
}

const approvedVerdict = "Работа проверена: ревьюеру всё понравилось. Ура!"

func TestScenarioEmptyItemsAdvancesSilently(t *testing.T) {
	t.Parallel()
	f := &scriptFetcher{steps: []step{{body: `{"homeworks": [], "current_date": 1000}`}}}
	n := &recorder{}
	s := newService(f, n, 900)

	res := s.RunCycle(context.Background())
	require.Equal(t, OutcomeNoChange, res.Outcome)
	require.Empty(t, n.messages())
	require.Equal(t, review.Watermark(1000), s.Watermark())
	require.Equal(t, []review.Watermark{900}, f.seen)
}

func TestScenarioStatusThenRepeatedOutage(t *testing.T) {
	t.Parallel()
	outage := review.UpstreamTransport(errors.New("connection refused"))
	f := &scriptFetcher{steps: []step{
		{body: `{"homeworks": [{"id": 1, "status": "approved", "homework_name": "Проект 1"}], "current_date": 1100}`},
		{err: outage},
		{err: outage},
	}}
	n := &recorder{}
	s := newService(f, n, 1000)

	res := s.RunCycle(context.Background())
	require.Equal(t, OutcomeStatusSent, res.Outcome)
	msgs := n.messages()
	require.Len(t, msgs, 1)
	require.True(t, strings.HasSuffix(msgs[0], approvedVerdict))
	require.Contains(t, msgs[0], "Проект 1")
	require.Equal(t, review.Watermark(1100), s.Watermark())

	res = s.RunCycle(context.Background())
	require.Equal(t, OutcomeUpstreamError, res.Outcome)
	require.True(t, res.Notified)
	res = s.RunCycle(context.Background())
	require.Equal(t, OutcomeUpstreamError, res.Outcome)
	require.False(t, res.Notified)

	msgs = n.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "Сбой в работе программы: Не удалось подключиться к API: connection refused", msgs[1])
	require.Equal(t, review.Watermark(1100), s.Watermark())
	require.Equal(t, []string{"connect_api"}, s.Snapshot().OpenIncidents)
}

func TestScenarioBareListIsReportedOnce(t *testing.T) {
	t.Parallel()
	f := &scriptFetcher{steps: []step{
		{body: `[{"status": "approved"}]`},
		{body: `[{"status": "approved"}]`},
	}}
	n := &recorder{}
	s := newService(f, n, 500)

	res := s.RunCycle(context.Background())
	require.Equal(t, OutcomeInvalidResponse, res.Outcome)
	require.Equal(t, review.KindMalformedShape, review.KindOf(res.Err))
	s.RunCycle(context.Background())

	require.Len(t, n.messages(), 1)
	require.Equal(t, review.Watermark(500), s.Watermark())
	require.Equal(t, []review.Watermark{500, 500}, f.seen)
}

func TestMissingFieldsKeepWatermark(t *testing.T) {
	t.Parallel()
	f := &scriptFetcher{steps: []step{{body: `{"homeworks": []}`}}}
	n := &recorder{}
	s := newService(f, n, 10)

	res := s.RunCycle(context.Background())
	require.Equal(t, review.KindMissingRequiredFields, review.KindOf(res.Err))
	require.Equal(t, review.Watermark(10), s.Watermark())
	require.Len(t, n.messages(), 1)
}

func TestMalformedItemIsRetriedNotSkipped(t *testing.T) {
	t.Parallel()
	bad := `{"homeworks": [{"status": "graded", "homework_name": "hw"}], "current_date": 2000}`
	f := &scriptFetcher{steps: []step{{body: bad}, {body: bad}, {body: `{"homeworks": [{"status": "graded"}], "current_date": 2000}`}}}
	n := &recorder{}
	s := newService(f, n, 1500)

	res := s.RunCycle(context.Background())
	require.Equal(t, OutcomeInvalidItem, res.Outcome)
	require.Equal(t, review.KindUnknownStatus, review.KindOf(res.Err))
	s.RunCycle(context.Background())
	s.RunCycle(context.Background())

	require.Equal(t, review.Watermark(1500), s.Watermark())
	require.Equal(t, []review.Watermark{1500, 1500, 1500}, f.seen)
	require.Len(t, n.messages(), 1)
}

func TestMissingNameCategory(t *testing.T) {
	t.Parallel()
	f := &scriptFetcher{steps: []step{{body: `{"homeworks": [{"status": "rejected"}], "current_date": 3}`}}}
	n := &recorder{}
	s := newService(f, n, 1)

	res := s.RunCycle(context.Background())
	require.Equal(t, review.KindMissingItemName, review.KindOf(res.Err))
	require.Equal(t, []string{"missing_name"}, s.Snapshot().OpenIncidents)
}

func TestNonStringNameNeverReachesChat(t *testing.T) {
	t.Parallel()
	f := &scriptFetcher{steps: []step{
		{body: `{"homeworks": [{"status": "approved", "homework_name": {"a": 1}}], "current_date": 5}`},
	}}
	n := &recorder{}
	s := newService(f, n, 1)

	res := s.RunCycle(context.Background())
	require.Equal(t, OutcomeInvalidItem, res.Outcome)
	require.Equal(t, review.KindMissingItemName, review.KindOf(res.Err))
	require.Equal(t, review.Watermark(1), s.Watermark())

	msgs := n.messages()
	require.Len(t, msgs, 1)
	require.True(t, strings.HasPrefix(msgs[0], errorPrefix))
	require.NotContains(t, msgs[0], "Изменился статус")
	require.NotContains(t, msgs[0], "map[")
}

func TestSuccessClearsIncidents(t *testing.T) {
	t.Parallel()
	outage := review.Upstream(502)
	f := &scriptFetcher{steps: []step{
		{err: outage},
		{body: `{"homeworks": [], "current_date": 20}`},
		{err: outage},
	}}
	n := &recorder{}
	s := newService(f, n, 10)

	s.RunCycle(context.Background())
	s.RunCycle(context.Background())
	require.Empty(t, s.Snapshot().OpenIncidents)
	s.RunCycle(context.Background())

	require.Len(t, n.messages(), 2, "a new incident after recovery gets a fresh notification")
}

func TestFailedErrorDeliveryIsRetriedNextCycle(t *testing.T) {
	t.Parallel()
	outage := review.Upstream(500)
	f := &scriptFetcher{steps: []step{{err: outage}, {err: outage}, {err: outage}}}
	n := &recorder{fail: 1}
	s := newService(f, n, 10)

	res := s.RunCycle(context.Background())
	require.False(t, res.Notified)
	s.RunCycle(context.Background())
	s.RunCycle(context.Background())

	require.Len(t, n.messages(), 1)
}

func TestStatusDeliveryFailureStillAdvances(t *testing.T) {
	t.Parallel()
	f := &scriptFetcher{steps: []step{{body: `{"homeworks": [{"status": "reviewing", "homework_name": "x"}], "current_date": 50}`}}}
	n := &recorder{fail: 1}
	s := newService(f, n, 40)

	res := s.RunCycle(context.Background())
	require.Equal(t, OutcomeStatusLost, res.Outcome)
	require.Equal(t, review.KindDeliveryFailed, review.KindOf(res.Err))
	require.Equal(t, review.Watermark(50), s.Watermark())
}

func TestWatermarkNeverDecreases(t *testing.T) {
	t.Parallel()
	f := &scriptFetcher{steps: []step{{body: `{"homeworks": [], "current_date": 5}`}}}
	s := newService(f, &recorder{}, 100)
	s.RunCycle(context.Background())
	require.Equal(t, review.Watermark(100), s.Watermark())
}

func TestRunSleepsBetweenCyclesAndStops(t *testing.T) {
	t.Parallel()
	f := &scriptFetcher{steps: []step{
		{body: `{"homeworks": [], "current_date": 1}`},
		{body: `{"homeworks": [], "current_date": 2}`},
	}}
	n := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var waits []time.Duration
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(f, n, fixedSchedule(600*time.Second), 0, logx.Nop(),
		WithClock(func() time.Time { return base }),
		WithWait(func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			if len(waits) == 2 {
				cancel()
				return ctx.Err()
			}
			return nil
		}),
	)

	require.NoError(t, s.Run(ctx))
	require.Equal(t, []time.Duration{600 * time.Second, 600 * time.Second}, waits)
	require.Equal(t, review.Watermark(2), s.Watermark())
	require.Equal(t, uint64(2), s.Snapshot().Cycles)
}

func TestCanceledCycleDoesNotNotify(t *testing.T) {
	t.Parallel()
	f := &scriptFetcher{steps: []step{{err: review.UpstreamTransport(context.Canceled)}}}
	n := &recorder{}
	s := newService(f, n, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := s.RunCycle(ctx)
	require.Equal(t, OutcomeCanceled, res.Outcome)
	require.Empty(t, n.messages())
}

func TestCycleHookSeesEveryResult(t *testing.T) {
	t.Parallel()
	f := &scriptFetcher{steps: []step{
		{body: `{"homeworks": [], "current_date": 20}`},
		{err: review.Upstream(500)},
	}}
	var got []Result
	s := New(f, &recorder{}, fixedSchedule(time.Minute), 10, logx.Nop(),
		WithCycleHook(func(r Result) { got = append(got, r) }))

	s.RunCycle(context.Background())
	s.RunCycle(context.Background())

	require.Len(t, got, 2)
	require.Equal(t, OutcomeNoChange, got[0].Outcome)
	require.Equal(t, review.Watermark(20), got[0].Watermark)
	require.Equal(t, OutcomeUpstreamError, got[1].Outcome)
	require.NotEmpty(t, got[1].ID)
}
