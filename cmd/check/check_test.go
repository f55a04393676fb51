package check_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/domain-checker/cmd/check"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/orchestrator"
)

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	check.PrintSummary(&buf, &orchestrator.Summary{
		Input:      7,
		Unresolved: 5,
		Workers:    3,
		Outcomes:   map[string]int64{"committed": 4, "failed": 1},
		Duration:   1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "Run summary")
	assert.Contains(t, out, "Input domains")
	assert.Contains(t, out, "committed")
	assert.Contains(t, out, "claimed")
	assert.Contains(t, out, "1.5s")
}

func TestCommand_Flags(t *testing.T) {
	t.Parallel()

	cmd := check.Command()
	for _, name := range []string{"input", "output", "sessions", "store-mode", "schedule"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
