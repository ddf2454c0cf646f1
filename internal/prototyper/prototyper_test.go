// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Tests for the coordinator

package prototyper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prototyp3d/prototyp3d/internal/llm"
	"github.com/prototyp3d/prototyp3d/internal/progress"
	"github.com/prototyp3d/prototyp3d/internal/workspace"
)

func makeTemplate(t *testing.T) string {
	t.Helper()
	tmpl := filepath.Join(t.TempDir(), "template")
	require.NoError(t, os.MkdirAll(tmpl, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpl, "index.html"), []byte("<html></html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpl, "script.js"), []byte("// scene"), 0644))
	return tmpl
}

func planResponse(count int) map[string]any {
	tickets := make([]any, 0, count)
	for i := 0; i < count; i++ {
		tickets = append(tickets, map[string]any{
			"summary":     fmt.Sprintf("ticket %d", i),
			"description": fmt.Sprintf("do thing %d", i),
		})
	}
	return map[string]any{"tickets": tickets}
}

func TestNewDefaultsNameToUUID(t *testing.T) {
	p := New(llm.NewMockClient(), "a goal", "", Options{BaseDir: t.TempDir()})
	assert.NotEmpty(t, p.Name())
	assert.Equal(t, filepath.Join(filepath.Dir(p.WorkspacePath()), p.Name()), p.WorkspacePath())
}

func TestPlanTicketsCapsAtMaxTickets(t *testing.T) {
	gw := llm.NewMockClient()
	gw.QueueStructured(planResponse(8))

	p := New(gw, "a busy goal", "proj", Options{BaseDir: t.TempDir()})
	tickets, err := p.PlanTickets(context.Background())
	require.NoError(t, err)

	assert.Len(t, tickets, DefaultMaxTickets)
	assert.Equal(t, "ticket 0", tickets[0].Summary)
	assert.Equal(t, "ticket 4", tickets[4].Summary)
}

func TestPlanTicketsMissingKeyIsNonFatal(t *testing.T) {
	gw := llm.NewMockClient()
	gw.QueueStructured(map[string]any{"unexpected": true})

	p := New(gw, "goal", "proj", Options{BaseDir: t.TempDir()})
	tickets, err := p.PlanTickets(context.Background())

	assert.ErrorIs(t, err, ErrPlanningFailed)
	assert.Empty(t, tickets)
	assert.Empty(t, p.CurrentPlan())
	assert.Len(t, p.PlanHistory(), 1, "the empty plan is still a plan version")
}

func TestPlanTicketsSkipsEntriesWithoutSummary(t *testing.T) {
	gw := llm.NewMockClient()
	gw.QueueStructured(map[string]any{"tickets": []any{
		map[string]any{"summary": "good", "description": "ok"},
		map[string]any{"description": "no summary"},
		"not even an object",
	}})

	p := New(gw, "goal", "proj", Options{BaseDir: t.TempDir()})
	tickets, err := p.PlanTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "good", tickets[0].Summary)
}

func TestReplanKeepsHistory(t *testing.T) {
	gw := llm.NewMockClient()
	gw.QueueStructured(planResponse(2))
	gw.QueueStructured(planResponse(3))

	p := New(gw, "goal", "proj", Options{BaseDir: t.TempDir()})

	_, err := p.PlanTickets(context.Background())
	require.NoError(t, err)
	_, err = p.PlanTickets(context.Background())
	require.NoError(t, err)

	history := p.PlanHistory()
	require.Len(t, history, 2)
	assert.Len(t, history[0], 2)
	assert.Len(t, history[1], 3)
	assert.Len(t, p.CurrentPlan(), 3, "replanning replaces the plan wholesale")
}

func TestSummarizeWorkspaceFailSoftKeepsPrevious(t *testing.T) {
	base := t.TempDir()
	gw := llm.NewMockClient()
	gw.QueueStructured(map[string]any{"summary": "a lone cube"})
	gw.QueueStructured(map[string]any{}) // degraded second response

	p := New(gw, "goal", "proj", Options{BaseDir: base})
	require.NoError(t, os.MkdirAll(p.WorkspacePath(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(p.WorkspacePath(), "script.js"), []byte("//"), 0644))

	summary, err := p.SummarizeWorkspace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a lone cube", summary)

	summary, err = p.SummarizeWorkspace(context.Background())
	assert.ErrorIs(t, err, ErrSummaryUnavailable)
	assert.Equal(t, "a lone cube", summary, "previous summary survives degradation")
}

func TestSummarizeWorkspaceNoSources(t *testing.T) {
	p := New(llm.NewMockClient(), "goal", "proj", Options{BaseDir: t.TempDir()})

	_, err := p.SummarizeWorkspace(context.Background())
	assert.ErrorIs(t, err, ErrSummaryUnavailable)
}

func TestExecuteFullPipeline(t *testing.T) {
	tmpl := makeTemplate(t)
	base := t.TempDir()
	tracker := progress.NewTracker()

	gw := llm.NewMockClient()
	// Initial summary, then a one-ticket plan
	gw.QueueStructured(map[string]any{"summary": "empty scene"})
	gw.QueueStructured(planResponse(1))

	p := New(gw, "add a cube", "proj", Options{
		BaseDir:  base,
		Template: tmpl,
		Sink:     tracker,
	})

	// The ticket response rewrites script.js
	target := filepath.Join(p.WorkspacePath(), "script.js")
	payload, err := json.Marshal(map[string]any{
		"internal_dialogue": "cube added",
		"updated_files":     map[string]any{target: "const cube = 1;"},
	})
	require.NoError(t, err)
	gw.QueueText("```json\n" + string(payload) + "\n```")

	result, err := p.Execute(context.Background(), workspace.RecreateFromTemplate)
	require.NoError(t, err)

	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "cube added", result.Outcomes[0].Result.Dialogue)
	assert.Nil(t, result.Outcomes[0].Repair, "debugging disabled by default")
	assert.Equal(t, p.WorkspacePath(), result.WorkspacePath)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "const cube = 1;", string(data))

	events := tracker.Snapshot(-1)
	require.NotEmpty(t, events)
	assert.Equal(t, progress.EventSettingUp, events[0].Type)
	assert.Equal(t, progress.EventCompleted, events[len(events)-1].Type)
}

func TestExecuteMissingTemplateIsFatal(t *testing.T) {
	p := New(llm.NewMockClient(), "goal", "proj", Options{
		BaseDir:  t.TempDir(),
		Template: filepath.Join(t.TempDir(), "absent"),
	})

	_, err := p.Execute(context.Background(), workspace.RecreateFromTemplate)
	assert.ErrorIs(t, err, workspace.ErrTemplateMissing)
}
