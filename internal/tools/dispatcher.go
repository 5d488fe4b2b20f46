// Package tools exposes the tracker to an AI assistant as a fixed catalogue of
// named operations taking JSON-like argument objects.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/metalagman/goalpath/internal/model"
	"github.com/metalagman/goalpath/internal/tracker"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// KindUnknownTool is reported for names outside the catalogue.
const KindUnknownTool = "unknown_tool"

// Result is the outcome of one tool call. Failed calls carry a message and an
// error kind instead of data.
type Result struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// JSON renders the result for a conversation transcript.
func (r Result) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"ok":false,"error":%q,"kind":%q}`, err.Error(), tracker.KindInternal)
	}
	return string(data)
}

// Dispatcher routes tool calls to the tracker.
type Dispatcher struct {
	tracker *tracker.Tracker
	schemas map[string]*gojsonschema.Schema
}

// NewDispatcher creates a dispatcher over tr.
func NewDispatcher(tr *tracker.Tracker) *Dispatcher {
	return &Dispatcher{tracker: tr, schemas: compileSchemas()}
}

// DispatchJSON runs a tool with raw JSON arguments.
func (d *Dispatcher) DispatchJSON(ctx context.Context, name string, raw []byte) Result {
	args := map[string]any{}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return failure(&tracker.ValidationError{Field: "arguments", Reason: "must be a JSON object"})
		}
	}
	return d.Dispatch(ctx, name, args)
}

// Dispatch runs a tool. Arguments are checked against the tool schema before
// the tracker is called.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) Result {
	schema, ok := d.schemas[name]
	if !ok {
		log.Warn().Str("tool", name).Msg("unknown tool")
		return Result{Error: fmt.Sprintf("unknown tool: %s", name), Kind: KindUnknownTool}
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := validate(schema, args); err != nil {
		return failure(err)
	}
	data, err := d.handle(ctx, name, args)
	if err != nil {
		log.Debug().Err(err).Str("tool", name).Msg("tool call failed")
		return failure(err)
	}
	log.Debug().Str("tool", name).Msg("tool call succeeded")
	return Result{OK: true, Data: data}
}

func (d *Dispatcher) handle(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case CreateGoal:
		return d.createGoal(ctx, args)
	case EditGoal:
		return d.editGoal(ctx, args)
	case DeleteGoal:
		return d.deleteGoal(ctx, args)
	case CreateMilestone:
		return d.createMilestone(ctx, args)
	case EditMilestone:
		return d.editMilestone(ctx, args)
	case DeleteMilestone:
		return d.deleteMilestone(ctx, args)
	case CreateTask:
		return d.createTask(ctx, args)
	case EditTask:
		return d.editTask(ctx, args)
	case DeleteTask:
		return d.deleteTask(ctx, args)
	case ToggleTaskCompletion:
		return d.toggleTask(ctx, args)
	case ViewGoal:
		return d.viewGoal(ctx, args)
	case ListGoals:
		return d.listGoals(ctx)
	case AvailableTasks:
		return d.availableTasks(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (d *Dispatcher) createGoal(ctx context.Context, args map[string]any) (any, error) {
	var in createGoalArgs
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	deadline, err := tracker.ParseDeadline(in.Deadline)
	if err != nil {
		return nil, err
	}
	return d.tracker.CreateGoal(ctx, tracker.GoalInput{Title: in.Title, Description: in.Description, Deadline: deadline})
}

func (d *Dispatcher) editGoal(ctx context.Context, args map[string]any) (any, error) {
	var in editGoalArgs
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	deadline, err := tracker.ParseDeadline(in.Deadline)
	if err != nil {
		return nil, err
	}
	return d.tracker.EditGoal(ctx, in.GoalID, tracker.GoalPatch{
		Title:         in.Title,
		Description:   in.Description,
		Deadline:      deadline,
		ClearDeadline: in.ClearDeadline,
	})
}

func (d *Dispatcher) deleteGoal(ctx context.Context, args map[string]any) (any, error) {
	var in goalRef
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	if err := d.tracker.DeleteGoal(ctx, in.GoalID); err != nil {
		return nil, err
	}
	return deleted(in.GoalID), nil
}

func (d *Dispatcher) createMilestone(ctx context.Context, args map[string]any) (any, error) {
	var in createMilestoneArgs
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	return d.tracker.CreateMilestone(ctx, in.GoalID, tracker.MilestoneInput{Title: in.Title, Description: in.Description})
}

func (d *Dispatcher) editMilestone(ctx context.Context, args map[string]any) (any, error) {
	var in editMilestoneArgs
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	return d.tracker.EditMilestone(ctx, in.MilestoneID, tracker.MilestonePatch{
		Title:       in.Title,
		Description: in.Description,
		Order:       in.Order,
	})
}

func (d *Dispatcher) deleteMilestone(ctx context.Context, args map[string]any) (any, error) {
	var in milestoneRef
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	if err := d.tracker.DeleteMilestone(ctx, in.MilestoneID); err != nil {
		return nil, err
	}
	return deleted(in.MilestoneID), nil
}

func (d *Dispatcher) createTask(ctx context.Context, args map[string]any) (any, error) {
	var in createTaskArgs
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	deadline, err := tracker.ParseDeadline(in.Deadline)
	if err != nil {
		return nil, err
	}
	// Assistant-created tasks get exactly the dependencies they name.
	return d.tracker.CreateTask(ctx, in.MilestoneID, tracker.TaskInput{
		Title:            in.Title,
		Description:      in.Description,
		DependsOn:        in.Dependencies,
		Deadline:         deadline,
		EstimatedMinutes: in.EstimatedMinutes,
	})
}

func (d *Dispatcher) editTask(ctx context.Context, args map[string]any) (any, error) {
	var in editTaskArgs
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	deadline, err := tracker.ParseDeadline(in.Deadline)
	if err != nil {
		return nil, err
	}
	return d.tracker.EditTask(ctx, in.TaskID, tracker.TaskPatch{
		Title:            in.Title,
		Description:      in.Description,
		DependsOn:        in.Dependencies,
		Deadline:         deadline,
		ClearDeadline:    in.ClearDeadline,
		EstimatedMinutes: in.EstimatedMinutes,
		ClearEstimate:    in.ClearEstimate,
		Order:            in.Order,
	})
}

func (d *Dispatcher) deleteTask(ctx context.Context, args map[string]any) (any, error) {
	var in taskRef
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	if err := d.tracker.DeleteTask(ctx, in.TaskID); err != nil {
		return nil, err
	}
	return deleted(in.TaskID), nil
}

func (d *Dispatcher) toggleTask(ctx context.Context, args map[string]any) (any, error) {
	var in taskRef
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	return d.tracker.ToggleTaskCompletion(ctx, in.TaskID)
}

func (d *Dispatcher) viewGoal(ctx context.Context, args map[string]any) (any, error) {
	var in goalRef
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	tree, snap, err := d.tracker.Classify(ctx, in.GoalID)
	if err != nil {
		return nil, err
	}
	return NewGoalView(tree, snap), nil
}

func (d *Dispatcher) listGoals(ctx context.Context) (any, error) {
	goals, err := d.tracker.Goals(ctx)
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []model.Goal{}
	}
	return goals, nil
}

func (d *Dispatcher) availableTasks(ctx context.Context, args map[string]any) (any, error) {
	var in goalRef
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	tasks, err := d.tracker.AvailableTasks(ctx, in.GoalID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return map[string]any{"goal_id": in.GoalID, "tasks": tasks}, nil
}

func deleted(id string) map[string]any {
	return map[string]any{"id": id, "deleted": true}
}

func failure(err error) Result {
	return Result{Error: err.Error(), Kind: tracker.Kind(err)}
}

// validate checks args against a tool schema and reports the first offending
// field.
func validate(schema *gojsonschema.Schema, args map[string]any) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return &tracker.ValidationError{Field: "arguments", Reason: err.Error()}
	}
	if result.Valid() {
		return nil
	}
	errs := result.Errors()
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.String())
	}
	sort.Strings(msgs)
	return &tracker.ValidationError{Field: fieldOf(errs[0]), Reason: strings.Join(msgs, "; ")}
}

func fieldOf(e gojsonschema.ResultError) string {
	if prop, ok := e.Details()["property"].(string); ok && prop != "" {
		return prop
	}
	field := e.Field()
	if i := strings.Index(field, "."); i > 0 {
		field = field[:i]
	}
	return field
}
