package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/quota-autopay/internal/db"
	"github.com/j-veylop/quota-autopay/internal/models"
	"github.com/j-veylop/quota-autopay/internal/services"
	"github.com/j-veylop/quota-autopay/internal/services/monitor"
	"github.com/j-veylop/quota-autopay/internal/services/purchase"
)

func testEntries() []models.QuotaEntry {
	return []models.QuotaEntry{
		{Name: "Xtra Combo", Code: "QC-1", Remaining: 2 << 30, Total: 10 << 30},
		{Code: "QC-2", Remaining: 100 << 20, Total: 1 << 30},
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"watch", "history", "session", "version"}, names)
	assert.True(t, cmd.SilenceUsage)
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "quota-autopay "))
}

func TestCollectPlan_FromFlags(t *testing.T) {
	var out bytes.Buffer
	opts := watchOptions{entry: "2", mode: "timer", timerSeconds: "30"}

	plan, err := collectPlan(context.Background(), testEntries(), opts, newLineReader(strings.NewReader("")), &out, "99")
	require.NoError(t, err)

	assert.Equal(t, models.ModeTimer, plan.Mode)
	assert.Equal(t, 30*time.Second, plan.TimerDuration)
	assert.Equal(t, 2, plan.Target.Ordinal)
	assert.Empty(t, out.String(), "no prompt when every answer is preset")
}

func TestCollectPlan_AsksMissing(t *testing.T) {
	var out bytes.Buffer
	lines := newLineReader(strings.NewReader(" 1 \nquota\n50\n"))

	plan, err := collectPlan(context.Background(), testEntries(), watchOptions{}, lines, &out, "99")
	require.NoError(t, err)

	assert.Equal(t, models.ModeQuota, plan.Mode)
	assert.Equal(t, "Xtra Combo", plan.Target.Name)
	assert.InDelta(t, 50.0, plan.ThresholdMB, 0.001)
	assert.Contains(t, out.String(), "Entry number: ")
	assert.Contains(t, out.String(), "Threshold in MB: ")
}

func TestCollectPlan_Aborts(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"AbortAnswer", "00\n"},
		{"Sentinel", "99\n"},
		{"SentinelAtMode", "1\n99\n"},
		{"EndOfInput", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := newLineReader(strings.NewReader(tt.input))
			_, err := collectPlan(context.Background(), testEntries(), watchOptions{}, lines, io.Discard, "99")
			assert.ErrorIs(t, err, errSetupAborted)
		})
	}
}

func TestCollectPlan_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"OutOfRange", "7\n"},
		{"UnknownMode", "1\n3\n"},
		{"BadThreshold", "1\n1\nbanyak\n"},
		{"ZeroTimer", "1\n2\n0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := newLineReader(strings.NewReader(tt.input))
			_, err := collectPlan(context.Background(), testEntries(), watchOptions{}, lines, io.Discard, "99")
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

func TestLineReader_Cancelled(t *testing.T) {
	r, w := io.Pipe()
	defer func() { _ = w.Close() }()

	lines := newLineReader(r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lines.next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatchSentinel(t *testing.T) {
	var out bytes.Buffer
	lines := newLineReader(strings.NewReader("hello\n99\n"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchSentinel(ctx, lines, "99", &out, cancel)

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Contains(t, out.String(), "Type 99 to stop")
}

func TestPrintEntries(t *testing.T) {
	var out bytes.Buffer
	printEntries(&out, testEntries())

	assert.Contains(t, out.String(), " 1. Xtra Combo")
	assert.Contains(t, out.String(), " 2. Paket 2")
	assert.Contains(t, out.String(), "00. abort")
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 8, 30, 0, 0, time.Local)
	snap := &monitor.Snapshot{
		At:      at,
		Entry:   models.QuotaEntry{Name: "Xtra Combo"},
		Benefit: models.MainBenefit{Remaining: 512 << 20, Total: 1 << 30},
		Balance: 25000,
		Match:   models.MatchByName,
		Projection: &models.DepletionProjection{
			Status: models.ProjectionWarning,
		},
	}
	plan := &models.PurchasePlan{Items: []models.PaymentLineItem{{ItemName: "Masa Aktif", ItemCode: "MA-30", ItemPrice: 5000}}}

	tests := []struct {
		name  string
		event services.ServiceEvent
		want  []string
	}{
		{"SessionLoaded", services.SessionChangedEvent{Active: true}, []string{"session loaded"}},
		{"SessionRemoved", services.SessionChangedEvent{}, []string{"session removed"}},
		{"Error", services.ErrorEvent{Service: "session", Error: errors.New("boom")}, []string{"error [session]: boom"}},
		{"Started", services.MonitorEvent{Event: monitor.Event{Type: monitor.EventStarted, Time: at, RunID: "0123456789abcdef", Mode: models.ModeQuota}},
			[]string{"08:30:00", "run 01234567 started in quota mode"}},
		{"Poll", services.MonitorEvent{Event: monitor.Event{Type: monitor.EventPoll, Time: at, Snapshot: snap}},
			[]string{"Xtra Combo", "balance 25,000", "projection WARNING"}},
		{"Status", services.MonitorEvent{Event: monitor.Event{Type: monitor.EventStatus, Time: at, Status: monitor.StatusCooldown}},
			[]string{"waiting for server update"}},
		{"Submitted", services.MonitorEvent{Event: monitor.Event{Type: monitor.EventTrigger, Time: at, Outcome: &purchase.Outcome{Plan: plan}}},
			[]string{"purchase submitted (total 5,000)", "Masa Aktif | code=MA-30"}},
		{"SettleFailed", services.MonitorEvent{Event: monitor.Event{Type: monitor.EventTrigger, Time: at, Outcome: &purchase.Outcome{Plan: plan, SettleErr: errors.New("declined")}}},
			[]string{"settlement failed: declined"}},
		{"ResolveFailed", services.MonitorEvent{Event: monitor.Event{Type: monitor.EventTrigger, Time: at, Err: errors.New("offer not found")}},
			[]string{"purchase failed: offer not found"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatEvent(tt.event)
			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
		})
	}

	assert.Empty(t, formatEvent(services.MonitorEvent{Event: monitor.Event{Type: monitor.EventCountdown}}))
	assert.Empty(t, formatEvent(services.MonitorEvent{Event: monitor.Event{Type: monitor.EventPoll}}))
}

func TestEntryName(t *testing.T) {
	assert.Equal(t, "Xtra", entryName(&monitor.Snapshot{Entry: models.QuotaEntry{Name: "Xtra", Code: "QC-1"}, Match: models.MatchByName}))
	assert.Equal(t, "QC-1", entryName(&monitor.Snapshot{Entry: models.QuotaEntry{Code: "QC-1"}, Match: models.MatchByCode}))
	assert.Equal(t, "target missing", entryName(&monitor.Snapshot{Match: models.MatchNone}))
}

func TestPrintHistory(t *testing.T) {
	var out bytes.Buffer
	purchases := []models.PurchaseRecord{
		{
			Timestamp:  time.Now().Add(-time.Hour),
			RunID:      "abcdef0123456789",
			Mode:       "quota",
			OfferName:  "Masa Aktif 30 Hari",
			Status:     models.PurchaseSubmitted,
			TotalPrice: 12500,
		},
	}

	require.NoError(t, printHistory(&out, purchases, &db.PurchaseStats{Count: 1, TotalSpent: 12500}))

	s := out.String()
	assert.Contains(t, s, "Today: 12,500 spent on 1 purchases")
	assert.Contains(t, s, "Masa Aktif 30 Hari")
	assert.Contains(t, s, "SUBMITTED")
	assert.Contains(t, s, "abcdef01")
}

func TestPrintHistory_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printHistory(&out, nil, nil))
	assert.Equal(t, "No purchases recorded yet.\n", out.String())
}

func TestStartOfDay(t *testing.T) {
	got := startOfDay(time.Date(2026, 3, 1, 17, 45, 12, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got)
}
