package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/metalagman/goalpath/internal/config"
	"github.com/metalagman/goalpath/internal/mcpserver"
	"github.com/metalagman/goalpath/internal/notify"
	"github.com/metalagman/goalpath/internal/planner"
	"github.com/metalagman/goalpath/internal/tools"
	"github.com/metalagman/goalpath/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.UserID = "tester"
	cfg.Database.Path = filepath.Join(t.TempDir(), "nested", "goalpath.db")
	cfg.Web.Addr = "127.0.0.1:0"
	return cfg
}

func TestModule_ProvidesSharedTracker(t *testing.T) {
	var (
		tr         *tracker.Tracker
		dispatcher *tools.Dispatcher
		plans      *planner.Planner
		inbox      *notify.Inbox
		mcp        *mcpserver.Server
	)
	fxApp := New(testConfig(t), fx.Populate(&tr, &dispatcher, &plans, &inbox, &mcp))
	require.NoError(t, fxApp.Err())

	ctx := context.Background()
	require.NoError(t, fxApp.Start(ctx))
	t.Cleanup(func() { _ = fxApp.Stop(context.Background()) })

	assert.Equal(t, "tester", tr.Owner())

	res := dispatcher.Dispatch(ctx, tools.CreateGoal, map[string]any{"title": "Ship it"})
	require.True(t, res.OK, res.Error)

	goals, err := tr.Goals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 1)

	m, err := tr.CreateMilestone(ctx, goals[0].ID, tracker.MilestoneInput{Title: "M"})
	require.NoError(t, err)
	task, err := tr.CreateTask(ctx, m.ID, tracker.TaskInput{Title: "T"})
	require.NoError(t, err)
	_, err = tr.ToggleTaskCompletion(ctx, task.ID)
	require.NoError(t, err)

	events := inbox.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, task.ID, events[0].TaskID)
	assert.NotNil(t, plans)
	assert.NotNil(t, mcp)
}

func TestServeHTTP_StartsAndStops(t *testing.T) {
	fxApp := New(testConfig(t), fx.Invoke(ServeHTTP))
	require.NoError(t, fxApp.Err())

	ctx := context.Background()
	require.NoError(t, fxApp.Start(ctx))
	require.NoError(t, fxApp.Stop(ctx))
}
