package tools

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Tool names understood by the dispatcher.
const (
	CreateGoal           = "create_goal"
	EditGoal             = "edit_goal"
	DeleteGoal           = "delete_goal"
	CreateMilestone      = "create_milestone"
	EditMilestone        = "edit_milestone"
	DeleteMilestone      = "delete_milestone"
	CreateTask           = "create_task"
	EditTask             = "edit_task"
	DeleteTask           = "delete_task"
	ToggleTaskCompletion = "toggle_task_completion"
	ViewGoal             = "view_goal"
	ListGoals            = "list_goals"
	AvailableTasks       = "available_tasks"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Definition describes one tool for an assistant.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

var descriptions = []struct {
	name string
	text string
}{
	{CreateGoal, "Create a new goal. Returns the goal including its id."},
	{EditGoal, "Change the title, description or deadline of a goal."},
	{DeleteGoal, "Delete a goal together with all of its milestones and tasks."},
	{CreateMilestone, "Append a milestone to a goal. Returns the milestone including its id."},
	{EditMilestone, "Change the title, description or position of a milestone."},
	{DeleteMilestone, "Delete a milestone and its tasks. Other tasks lose dependencies on the deleted tasks."},
	{CreateTask, "Append a task to a milestone. Dependencies must be ids of tasks in the same goal; pass an empty list for none."},
	{EditTask, "Change a task. Passing dependencies replaces the whole set; cycles are rejected."},
	{DeleteTask, "Delete a task. Tasks that depended on it lose that dependency."},
	{ToggleTaskCompletion, "Mark an open task as completed, or reopen a completed task."},
	{ViewGoal, "Show the full structure of a goal with the state of every task."},
	{ListGoals, "List all goals of the user."},
	{AvailableTasks, "List the tasks of a goal that can be worked on now, earliest created first."},
}

// Catalogue returns every tool definition in a fixed order.
func Catalogue() []Definition {
	out := make([]Definition, 0, len(descriptions))
	for _, d := range descriptions {
		out = append(out, Definition{Name: d.name, Description: d.text, InputSchema: rawSchema(d.name)})
	}
	return out
}

func rawSchema(name string) json.RawMessage {
	data, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		panic(fmt.Sprintf("tools: missing schema for %s: %v", name, err))
	}
	return data
}

func compileSchemas() map[string]*gojsonschema.Schema {
	out := make(map[string]*gojsonschema.Schema, len(descriptions))
	for _, d := range descriptions {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(rawSchema(d.name)))
		if err != nil {
			panic(fmt.Sprintf("tools: compile schema %s: %v", d.name, err))
		}
		out[d.name] = schema
	}
	return out
}
