package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/modules/backtest"
	"github.com/aristath/augur/internal/modules/staging"
	testingpkg "github.com/aristath/augur/internal/testing"
)

const catalogYAML = `tiers:
  - name: gold
    size: 3
strategies:
  - name: linear_trend
    staged: true
`

// setupEnv points the command line at a fresh data directory.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	catalog := filepath.Join(dir, "strategies.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(catalogYAML), 0o644))

	t.Setenv("AUGUR_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("AUGUR_STRATEGIES_FILE", catalog)
	t.Setenv("AUGUR_RANKING_WINDOW", "20")
	t.Setenv("AUGUR_REPLAY_WINDOW", "30")
	t.Setenv("AUGUR_BATCH_PAUSE", "0s")
	t.Setenv("CACHE_BACKEND", "sqlite")
	t.Setenv("BACKUP_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_PRETTY", "false")
	t.Setenv("AUGUR_PORT", "0")
	return dir
}

func writeCSV(t *testing.T, dir string, count int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("id,date,p1,p2,p3,p4,p5,s1,s2\n")
	for _, d := range testingpkg.SyntheticHistory(count, 11) {
		fmt.Fprintf(&b, "%d,%s", d.ID, d.DrawnAt.Format("2006-01-02"))
		for _, n := range append(append([]int(nil), d.Primary...), d.Secondary...) {
			fmt.Fprintf(&b, ",%d", n)
		}
		b.WriteString("\n")
	}
	path := filepath.Join(dir, "draws.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func runJSON(t *testing.T, v interface{}, args ...string) {
	t.Helper()
	out, err := run(t, append([]string{"--json"}, args...)...)
	require.NoError(t, err, strings.Join(args, " "))
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestCLI_Workflow(t *testing.T) {
	dir := setupEnv(t)
	csv := writeCSV(t, dir, 40)

	out, err := run(t, "import", csv)
	require.NoError(t, err)
	assert.Contains(t, out, "inserted")

	// importing twice stores nothing new
	var again struct {
		Inserted int `json:"inserted"`
		Skipped  int `json:"skipped"`
	}
	runJSON(t, &again, "import", csv)
	assert.Zero(t, again.Inserted)
	assert.Equal(t, 40, again.Skipped)

	var summary backtest.Summary
	runJSON(t, &summary, "backfill", "--limit", "10")
	assert.Equal(t, domain.NamespaceProduction, summary.Namespace)
	assert.Equal(t, domain.RunCompleted, summary.Status)
	assert.Positive(t, summary.Processed)
	assert.NotContains(t, summary.Strategies, "linear_trend", "staged strategies are not replayed in production")

	var rerun backtest.Summary
	runJSON(t, &rerun, "backfill", "--limit", "10")
	assert.Zero(t, rerun.Processed, "existing records are skipped")
	assert.Equal(t, summary.Processed, rerun.Skipped)

	_, err = run(t, "ranking", "refresh")
	require.NoError(t, err)

	var entries []domain.RankingEntry
	runJSON(t, &entries, "ranking", "show")
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].AvgAccuracy, entries[i].AvgAccuracy)
	}

	_, err = run(t, "cache", "refresh")
	require.NoError(t, err)
	out, err = run(t, "cache", "show", "medal_gold")
	require.NoError(t, err)
	assert.Contains(t, out, "medal_gold")

	out, err = run(t, "strategies", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "anti_linear_trend")

	var staged backtest.Summary
	runJSON(t, &staged, "staging", "backfill", "linear_trend", "--limit", "5")
	assert.Equal(t, domain.NamespaceStaging, staged.Namespace)
	assert.Equal(t, 10, staged.Processed, "strategy and complement")

	var status staging.Status
	runJSON(t, &status, "staging", "status", "linear_trend")
	assert.Equal(t, map[string]int{"linear_trend": 5, "anti_linear_trend": 5}, status.Records)
	assert.False(t, status.Active["linear_trend"])

	var commit staging.CommitResult
	runJSON(t, &commit, "staging", "commit", "linear_trend")
	assert.Equal(t, 10, commit.Promoted)

	runJSON(t, &status, "staging", "status", "linear_trend")
	assert.True(t, status.Active["linear_trend"], "commit activates the strategy")

	var runs []domain.ReplayRun
	runJSON(t, &runs, "runs", "list")
	require.Len(t, runs, 3)
	namespaces := map[domain.Namespace]int{}
	for _, r := range runs {
		namespaces[r.Namespace]++
	}
	assert.Equal(t, map[domain.Namespace]int{domain.NamespaceProduction: 2, domain.NamespaceStaging: 1}, namespaces)
}

func TestCLI_Errors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "backfill", "--mode", "sideways")
	assert.ErrorContains(t, err, "unknown mode")

	_, err = run(t, "backup")
	assert.ErrorContains(t, err, "backups are disabled")

	_, err = run(t, "ranking", "show", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = run(t, "staging", "commit", "hot_window")
	assert.ErrorIs(t, err, domain.ErrNoStagedRecords)

	_, err = run(t, "import", "/does/not/exist.csv")
	assert.Error(t, err)
}

func TestCLI_ServeStopsOnCancel(t *testing.T) {
	setupEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		var stdout, stderr bytes.Buffer
		done <- execute(ctx, []string{"serve"}, &stdout, &stderr)
	}()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not shut down")
	}
}
