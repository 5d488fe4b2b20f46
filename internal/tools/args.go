package tools

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/metalagman/goalpath/internal/tracker"
)

type goalRef struct {
	GoalID string `json:"goal_id"`
}

type milestoneRef struct {
	MilestoneID string `json:"milestone_id"`
}

type taskRef struct {
	TaskID string `json:"task_id"`
}

type createGoalArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
}

type editGoalArgs struct {
	GoalID        string  `json:"goal_id"`
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Deadline      string  `json:"deadline"`
	ClearDeadline bool    `json:"clear_deadline"`
}

type createMilestoneArgs struct {
	GoalID      string `json:"goal_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type editMilestoneArgs struct {
	MilestoneID string  `json:"milestone_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Order       *int    `json:"order_index"`
}

type createTaskArgs struct {
	MilestoneID      string   `json:"milestone_id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Dependencies     []string `json:"dependencies"`
	Deadline         string   `json:"deadline"`
	EstimatedMinutes *int     `json:"estimated_minutes"`
}

type editTaskArgs struct {
	TaskID           string    `json:"task_id"`
	Title            *string   `json:"title"`
	Description      *string   `json:"description"`
	Dependencies     *[]string `json:"dependencies"`
	Deadline         string    `json:"deadline"`
	ClearDeadline    bool      `json:"clear_deadline"`
	EstimatedMinutes *int      `json:"estimated_minutes"`
	ClearEstimate    bool      `json:"clear_estimate"`
	Order            *int      `json:"order_index"`
}

// decode maps validated arguments onto a typed struct.
func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return &tracker.ValidationError{Field: "arguments", Reason: err.Error()}
	}
	return nil
}
