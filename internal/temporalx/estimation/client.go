package estimation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	apperrors "github.com/yungbote/adaptive-engine/internal/pkg/errors"
)

// Start launches a run under the fixed workflow id. A run already in flight yields
// ErrLocked.
func Start(ctx context.Context, c temporalsdkclient.Client, taskQueue string, in Input) (temporalsdkclient.WorkflowRun, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: temporal client is not configured", apperrors.ErrInvalidArgument)
	}
	run, err := c.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                                       WorkflowID,
		TaskQueue:                                taskQueue,
		WorkflowIDConflictPolicy:                 enums.WORKFLOW_ID_CONFLICT_POLICY_FAIL,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, WorkflowName, in)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return nil, fmt.Errorf("%w: batch estimation already running", apperrors.ErrLocked)
		}
		return nil, fmt.Errorf("start estimation workflow: %w", err)
	}
	return run, nil
}

// EnsureSchedule creates the recurring estimation schedule if it is missing. Overlapping
// runs are skipped.
func EnsureSchedule(ctx context.Context, c temporalsdkclient.Client, taskQueue string, every time.Duration) error {
	if c == nil || every <= 0 {
		return nil
	}
	_, err := c.ScheduleClient().Create(ctx, temporalsdkclient.ScheduleOptions{
		ID: ScheduleID,
		Spec: temporalsdkclient.ScheduleSpec{
			Intervals: []temporalsdkclient.ScheduleIntervalSpec{{Every: every}},
		},
		Overlap: enums.SCHEDULE_OVERLAP_POLICY_SKIP,
		Action: &temporalsdkclient.ScheduleWorkflowAction{
			ID:        WorkflowID,
			Workflow:  WorkflowName,
			Args:      []interface{}{Input{}},
			TaskQueue: taskQueue,
		},
	})
	if err != nil && !errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		return fmt.Errorf("create estimation schedule: %w", err)
	}
	return nil
}
