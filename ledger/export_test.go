package ledger_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/custody-engine/approval"
	"github.com/warp/custody-engine/ledger"
)

func TestExportBreakdown_WritesTitledCSV(t *testing.T) {
	calc, mem := newTestCalculator(t)

	seedRequest(t, mem, approval.KindExpense, "emp-1", "Amira Hassan", 150, approval.StatusApproved)
	seedRequest(t, mem, approval.KindExpense, "emp-2", "Jonas Weber", 30, approval.StatusApproved)

	b, err := calc.ProjectExpenseBreakdown(context.Background(), "proj-1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ledger.Exporter{}.ExportBreakdown(&buf, b))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Expenses - Harbor Upgrade", lines[0])
	assert.Equal(t, "employee,amount", lines[1])
	assert.Equal(t, "Amira Hassan,150.00", lines[2])
	assert.Equal(t, "Jonas Weber,30.00", lines[3])
	assert.Equal(t, "TOTAL,180.00", lines[4])
}

func TestExportSummary_IncludesTotalRow(t *testing.T) {
	calc, mem := newTestCalculator(t)

	seedRequest(t, mem, approval.KindCashRequest, "emp-1", "Amira Hassan", 500, approval.StatusApproved)
	seedRequest(t, mem, approval.KindExpense, "emp-1", "Amira Hassan", 200, approval.StatusApproved)

	summary, err := calc.OrganizationSummary(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ledger.Exporter{}.ExportSummary(&buf, summary))

	out := buf.String()
	assert.Contains(t, out, "Organization Summary")
	assert.Contains(t, out, "Amira Hassan,500.00,200.00,300.00")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "TOTAL,500.00,200.00,300.00"))
}
