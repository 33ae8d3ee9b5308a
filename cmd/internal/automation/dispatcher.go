package automation

import (
	"context"
	"encoding/json"
	"time"

	"appointly/cmd/internal/domain/entity"
	"appointly/cmd/internal/integration/aws/stepfunctions"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
)

const executionPrefix = "AUTOMATION_EXECUTION"

type AutomationRepository interface {
	FindTriggered(ctx context.Context, orgID uuid.UUID, eventType string) ([]*entity.Automation, error)
	RecordExecution(ctx context.Context, exec *entity.AutomationExecution) error
}

type WorkflowStarter interface {
	StartExecution(ctx context.Context, stateMachineArn, input, name string) (string, error)
}

// Execution is the outcome of starting one matched automation.
type Execution struct {
	AutomationID uuid.UUID
	Name         string
	Arn          string
	Err          error
}

type Result struct {
	Executions []Execution
}

func (r Result) Started() int {
	n := 0
	for _, e := range r.Executions {
		if e.Err == nil {
			n++
		}
	}
	return n
}

func (r Result) Failed() int {
	return len(r.Executions) - r.Started()
}

type Dispatcher struct {
	automations AutomationRepository
	workflows   WorkflowStarter
	maxParallel int
	now         func() time.Time
}

func NewDispatcher(automations AutomationRepository, workflows WorkflowStarter, maxParallel int) *Dispatcher {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &Dispatcher{
		automations: automations,
		workflows:   workflows,
		maxParallel: maxParallel,
		now:         time.Now,
	}
}

// Dispatch starts every automation of orgID enabled for eventType with a copy
// of payload. Failures are logged and reported in the result, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, orgID uuid.UUID, payload map[string]string, eventType string) Result {
	automations, err := d.automations.FindTriggered(ctx, orgID, eventType)
	if err != nil {
		log.Errorf("failed to load automations for %s on org %s: %v", eventType, orgID, err)
		return Result{}
	}

	matched := make([]*entity.Automation, 0, len(automations))
	for _, a := range automations {
		if a.Triggers(eventType) {
			matched = append(matched, a)
		}
	}
	if len(matched) == 0 {
		log.Infof("no automation for %s on org %s", eventType, orgID)
		return Result{}
	}

	result := Result{Executions: make([]Execution, len(matched))}
	var g errgroup.Group
	g.SetLimit(d.maxParallel)
	for i, a := range matched {
		g.Go(func() error {
			result.Executions[i] = d.start(ctx, orgID, a, payload, eventType)
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func (d *Dispatcher) start(ctx context.Context, orgID uuid.UUID, a *entity.Automation, payload map[string]string, eventType string) Execution {
	name := stepfunctions.UniqueName(executionPrefix)
	exec := Execution{
		AutomationID: a.ID,
		Name:         name,
		Arn:          stepfunctions.ExecutionArn(a.WorkflowArn, name),
	}

	input := make(map[string]string, len(payload)+3)
	for k, v := range payload {
		input[k] = v
	}
	input["orgId"] = orgID.String()
	input["automationId"] = a.ID.String()
	input["execArn"] = exec.Arn

	body, err := json.Marshal(input)
	if err == nil {
		var arn string
		arn, err = d.workflows.StartExecution(ctx, a.WorkflowArn, string(body), name)
		if err == nil && arn != "" {
			exec.Arn = arn
		}
	}
	if err != nil {
		log.Errorf("failed to start automation %s for %s: %v", a.ID, eventType, err)
		exec.Err = err
	}

	d.record(ctx, orgID, a, exec, payload, eventType)
	return exec
}

func (d *Dispatcher) record(ctx context.Context, orgID uuid.UUID, a *entity.Automation, exec Execution, payload map[string]string, eventType string) {
	rec := &entity.AutomationExecution{
		ID:             uuid.New(),
		AutomationID:   a.ID,
		OrganizationID: orgID,
		EventType:      eventType,
		ExecutionName:  exec.Name,
		ExecutionArn:   exec.Arn,
		Status:         entity.ExecutionStarted,
		CreatedAt:      d.now().UTC(),
	}
	if id, err := uuid.Parse(payload["appointment_id"]); err == nil {
		rec.AppointmentID = &id
	}
	if exec.Err != nil {
		msg := exec.Err.Error()
		rec.Status = entity.ExecutionFailed
		rec.Error = &msg
	}
	if err := d.automations.RecordExecution(ctx, rec); err != nil {
		log.Errorf("failed to record execution %s: %v", exec.Name, err)
	}
}
