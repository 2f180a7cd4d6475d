package camunda

import (
	"context"
	"testing"
	"time"

	"recruiting-pipeline/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) RecordJobProcessed(ctx context.Context, taskType, status string) {
	m.Called(ctx, taskType, status)
}

func (m *mockObserver) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	m.Called(ctx, taskType, duration, status)
}

func TestObserveJob(t *testing.T) {
	obs := new(mockObserver)
	obs.On("RecordJobProcessed", mock.Anything, "submit-interview-stage", "completed").Once()
	obs.On("RecordJobDuration", mock.Anything, "submit-interview-stage",
		mock.MatchedBy(func(d time.Duration) bool { return d >= 0 }), "completed").Once()

	ObserveJob(context.Background(), obs, "submit-interview-stage", "completed", time.Now())
	obs.AssertExpectations(t)

	assert.NotPanics(t, func() {
		ObserveJob(context.Background(), nil, "submit-interview-stage", "failed", time.Now())
	})
}

func TestOpenWorkerValidatesSpec(t *testing.T) {
	c := &Client{}
	noop := func(worker.JobClient, entities.Job) {}

	_, err := c.OpenWorker(WorkerSpec{Handler: noop})
	assert.Error(t, err)

	_, err = c.OpenWorker(WorkerSpec{TaskType: "update-applicant-status"})
	assert.Error(t, err)
}

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient(config.CamundaConfig{})
	assert.Error(t, err)
}
