package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Submission("contact", "accepted")
	m.Submission("contact", "accepted")
	m.EmailSend("admin", nil)
	m.EmailSend("user", errors.New("down"))
	m.Captcha("rejected")
	m.SearchQuery("hit")

	if got := testutil.ToFloat64(m.SubmissionsTotal.WithLabelValues("contact", "accepted")); got != 2 {
		t.Errorf("submissions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EmailSendsTotal.WithLabelValues("user", "failure")); got != 1 {
		t.Errorf("user failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EmailSendsTotal.WithLabelValues("admin", "success")); got != 1 {
		t.Errorf("admin successes = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Submission("quote", "bot")
	m.Captcha("success")
	m.EmailSend("admin", nil)
	m.SearchQuery("miss")
	m.PopupServed("none")
}

func TestRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("second registration on the same registry did not panic")
		}
	}()
	New(reg)
}
