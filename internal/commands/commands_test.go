package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/bank-notifier/internal/domain"
	"github.com/dvloznov/bank-notifier/internal/requestlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	vcbOutgoing = "Số dư TK VCB 0541000346532 -1,000 VND lúc 17-07-2025 13:52:49. Số dư 319,000 VND. Ref MBVCB.10226218427.BUI THANH XUAN chuyen tien.CT tu 0541000346532 BUI THANH XUAN toi 9963595567 TRAN THU UYEN"
	vcbCard     = "Thẻ VCB Visa 4xxx1234 sử dụng tại GRAB*FOOD số tiền 125,000 VND lúc 18-07-2025 09:12:01"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParse_Argument(t *testing.T) {
	out, err := execute(t, "", "parse", "--package", "com.VCB", vcbOutgoing)
	require.NoError(t, err)

	var tx domain.Transaction
	require.NoError(t, json.Unmarshal([]byte(out), &tx))
	assert.Equal(t, int64(-1000), tx.Amount)
	assert.Equal(t, domain.TransactionTypeExpense, tx.Type)
	assert.Equal(t, "VCB Account", tx.PaymentMethod)
}

func TestParse_Stdin(t *testing.T) {
	out, err := execute(t, vcbCard+"\n", "parse", "-")
	require.NoError(t, err)

	var tx domain.Transaction
	require.NoError(t, json.Unmarshal([]byte(out), &tx))
	assert.Equal(t, int64(-125000), tx.Amount)
	assert.Equal(t, "GRAB*FOOD", tx.Transaction)
	assert.Equal(t, "VCB Card", tx.PaymentMethod)
}

func TestParse_NoMatch(t *testing.T) {
	_, err := execute(t, "", "parse", "--package", "com.Techcombank", vcbOutgoing)
	assert.EqualError(t, err, "could not parse notification for package: com.Techcombank")

	_, err = execute(t, "", "parse", "hello")
	assert.Error(t, err)
}

func TestPackages(t *testing.T) {
	out, err := execute(t, "", "packages")
	require.NoError(t, err)
	assert.Equal(t, "com.VCB\tvcb_account_transfer, vcb_credit_card\n", out)
}

func seedRequestLog(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "requests.db")

	store, err := requestlog.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2025, 7, 17, 6, 0, 0, 0, time.UTC)
	entries := []requestlog.Entry{
		{ID: "r1", Package: "com.VCB", Text: vcbOutgoing, ReceivedAt: base, Status: requestlog.StatusUnmatched},
		{ID: "r2", Package: "com.VCB", Text: "Quy khach vui long khong chia se ma OTP", ReceivedAt: base.Add(time.Minute), Status: requestlog.StatusUnmatched},
		{ID: "r3", Package: "com.VCB", Text: vcbCard, ReceivedAt: base.Add(2 * time.Minute), Status: requestlog.StatusSaved, SinkID: "page-1"},
	}
	for _, e := range entries {
		_, err := store.Record(ctx, e)
		require.NoError(t, err)
	}
	return dbPath
}

func TestRequests_List(t *testing.T) {
	dbPath := seedRequestLog(t)

	out, err := execute(t, "", "requests", "list", "--db", dbPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.True(t, strings.HasPrefix(lines[1], "r3"), "newest first")

	out, err = execute(t, "", "requests", "list", "--db", dbPath, "--status", "saved")
	require.NoError(t, err)
	assert.Contains(t, out, "page-1")
	assert.NotContains(t, out, "r1")
}

func TestRequests_Show(t *testing.T) {
	dbPath := seedRequestLog(t)

	out, err := execute(t, "", "requests", "show", "--db", dbPath, "r3")
	require.NoError(t, err)

	var e requestlog.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.Equal(t, requestlog.StatusSaved, e.Status)
	assert.Equal(t, vcbCard, e.Text)

	_, err = execute(t, "", "requests", "show", "--db", dbPath, "missing")
	assert.ErrorIs(t, err, requestlog.ErrNotFound)
}

func TestRequests_Replay(t *testing.T) {
	dbPath := seedRequestLog(t)

	out, err := execute(t, "", "requests", "replay", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "1 of 2 unmatched requests now parse")
	assert.Regexp(t, `r1\s+matched\s+-1000`, out)
	assert.Regexp(t, `r2\s+unmatched`, out)
}

func TestRequests_Disabled(t *testing.T) {
	_, err := execute(t, "", "requests", "list", "--db", "")
	assert.ErrorContains(t, err, "request log is disabled")
}

func TestMigrate_RequestLog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "requests.db")

	out, err := execute(t, "", "migrate", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "is up to date")

	// Idempotent.
	_, err = execute(t, "", "migrate", "--db", dbPath)
	require.NoError(t, err)
}

func TestMigrate_BigQueryNeedsProject(t *testing.T) {
	t.Setenv("BIGQUERY_PROJECT_ID", "")

	_, err := execute(t, "", "migrate", "--db", "", "--bigquery")
	assert.ErrorContains(t, err, "BIGQUERY_PROJECT_ID")
}

func TestNotionArchive_NeedsKey(t *testing.T) {
	t.Setenv("NOTION_API_KEY", "")

	_, err := execute(t, "", "notion", "archive", "page-1")
	assert.ErrorContains(t, err, "NOTION_API_KEY")
}

func TestParseDateRange(t *testing.T) {
	now := time.Date(2025, 7, 17, 15, 4, 5, 0, time.UTC)

	start, end, err := parseDateRange("", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 7, 18, 0, 0, 0, 0, time.UTC), end)

	start, end, err = parseDateRange("2025-07-01", "2025-07-02", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC), end)

	_, _, err = parseDateRange("07/01/2025", "", now)
	assert.ErrorContains(t, err, "invalid --from")

	_, _, err = parseDateRange("2025-07-02", "2025-07-01", now)
	assert.ErrorContains(t, err, "--to must be after --from")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := strings.Repeat("ư", 100)
	got := preview(long)
	assert.Equal(t, textPreviewLen, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestSyncNotion_NeedsNotionUnlessDryRun(t *testing.T) {
	t.Setenv("BIGQUERY_PROJECT_ID", "proj")
	t.Setenv("NOTION_API_KEY", "")

	_, err := execute(t, "", "warehouse", "sync-notion", "--from", "2025-07-01", "--to", "2025-08-01")
	assert.ErrorContains(t, err, "NOTION_API_KEY and NOTION_DATABASE_ID are required")

	_, err = execute(t, "", "warehouse", "sync-notion", "--from", "2025-08-01", "--to", "2025-07-01")
	assert.ErrorContains(t, err, "--to must be after --from")
}
