package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kiosk404/echobot/internal/echobot/service/plugin"
)

func TestKeySortsLabels(t *testing.T) {
	got := Key("plugin_handle_total", Labels{"plugin": "ping", "kind": "native"})
	if want := "plugin_handle_total{kind=native,plugin=ping}"; got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
	if got := Key("events_total", nil); got != "events_total" {
		t.Errorf("Key without labels = %q", got)
	}
}

func TestSinkConcurrentUpdates(t *testing.T) {
	s := NewSink()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.IncCounter("hits", Labels{"shard": "a"}, 1)
				s.ObserveDuration("lat", nil, time.Duration(i+1)*time.Millisecond)
			}
		}(i)
	}
	wg.Wait()

	if got := s.Counter("hits", Labels{"shard": "a"}); got != 1000 {
		t.Errorf("hits = %d", got)
	}
	sum := s.Snapshot().Durations["lat"]
	if sum.Count != 1000 {
		t.Errorf("summary = %+v", sum)
	}
	if d := sum.Total - 10500*time.Millisecond; d < -time.Millisecond || d > time.Millisecond {
		t.Errorf("total = %s", sum.Total)
	}
	if sum.P50 < 5*time.Millisecond || sum.P50 > 15*time.Millisecond || sum.P99 < 15*time.Millisecond || sum.P99 > 20*time.Millisecond {
		t.Errorf("quantiles = %+v", sum)
	}
}

func TestSinkServesExpositionFormat(t *testing.T) {
	s := NewSink()
	s.IncCounter(EventsTotal, nil, 2)
	s.IncCounter(EventsBlocked, Labels{"plugin": "ping"}, 1)
	s.ObserveDuration(DispatchDuration, nil, 3*time.Millisecond)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"echobot_events_total 2",
		`echobot_events_blocked_total{plugin="ping"} 1`,
		"echobot_dispatch_duration_seconds_count 1",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition is missing %q", want)
		}
	}

	snap := s.Snapshot()
	for key := range snap.Counters {
		if strings.HasPrefix(key, "process_") {
			t.Errorf("snapshot leaked collector metric %s", key)
		}
	}
}

func TestSinkKeepsFirstLabelSet(t *testing.T) {
	s := NewSink()
	s.IncCounter("hits", Labels{"shard": "a"}, 1)
	s.IncCounter("hits", Labels{"zone": "b"}, 1)
	s.IncCounter("hits", nil, 1)
	s.IncCounter("hits", Labels{"shard": "a"}, -4)

	if got := s.Counter("hits", Labels{"shard": "a"}); got != 1 {
		t.Errorf("hits{shard=a} = %d", got)
	}
	if got := s.Counter("misses", nil); got != 0 {
		t.Errorf("unknown counter = %d", got)
	}
	if snap := s.Snapshot(); len(snap.Counters) != 1 {
		t.Errorf("counters = %v", snap.Counters)
	}
}

func TestObserverCountsDispatch(t *testing.T) {
	s := NewSink()
	o := NewObserver(s)

	o.ObserveHandle("ping", time.Millisecond, plugin.ReplyAndBlock("pong"), nil)
	o.ObserveHandle("weather", time.Millisecond, nil, errors.New("down"))
	o.ObserveDispatch(&plugin.DispatchReport{Matched: []string{"ping"}, BlockedBy: "ping"}, 2*time.Millisecond)
	o.ObserveDispatch(&plugin.DispatchReport{}, time.Millisecond)

	checks := map[string]int64{
		Key(EventsTotal, nil):                          2,
		Key(EventsDropped, nil):                        1,
		Key(EventsBlocked, Labels{"plugin": "ping"}):   1,
		Key(HandleTotal, Labels{"plugin": "weather"}):  1,
		Key(HandleErrors, Labels{"plugin": "weather"}): 1,
		Key(HandleErrors, Labels{"plugin": "ping"}):    0,
	}
	snap := s.Snapshot()
	for key, want := range checks {
		if got := snap.Counters[key]; got != want {
			t.Errorf("%s = %d, want %d", key, got, want)
		}
	}

	r := NewReporter(s)
	r.Report()
	if r.last[Key(EventsTotal, nil)] != 2 {
		t.Errorf("reporter did not record last values: %v", r.last)
	}
}
