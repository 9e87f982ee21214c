package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCollaboratorOutcomes(t *testing.T) {
	name := "test-collab"
	ok := testutil.ToFloat64(CollaboratorCalls.WithLabelValues(name, OutcomeOK))
	timeout := testutil.ToFloat64(CollaboratorCalls.WithLabelValues(name, OutcomeTimeout))
	failed := testutil.ToFloat64(CollaboratorCalls.WithLabelValues(name, OutcomeError))

	ObserveCollaborator(name, time.Now(), nil)
	ObserveCollaborator(name, time.Now(), fmt.Errorf("call: %w", context.DeadlineExceeded))
	ObserveCollaborator(name, time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(CollaboratorCalls.WithLabelValues(name, OutcomeOK)); got != ok+1 {
		t.Errorf("ok: got %v", got)
	}
	if got := testutil.ToFloat64(CollaboratorCalls.WithLabelValues(name, OutcomeTimeout)); got != timeout+1 {
		t.Errorf("timeout: got %v", got)
	}
	if got := testutil.ToFloat64(CollaboratorCalls.WithLabelValues(name, OutcomeError)); got != failed+1 {
		t.Errorf("error: got %v", got)
	}
}
