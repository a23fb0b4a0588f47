package notifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	netmail "net/mail"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/mail.v2"

	"SignalDesk/internal/exporter"
	"SignalDesk/internal/model"
	"SignalDesk/internal/recorder"
)

var asOf = time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)

func sampleReport() *model.Report {
	signals := model.SignalSet{
		{Kind: model.SignalTrend, Direction: model.DirectionBuy, Text: "MA50 crosses above MA200: Buy signal"},
		{Kind: model.SignalMomentum, Direction: model.DirectionSell, Text: "RSI above 70: Overbought (Sell signal)"},
	}
	return &model.Report{
		RunID:      "run-1",
		StartedAt:  asOf.Add(time.Hour),
		FinishedAt: asOf.Add(time.Hour + 2*time.Second),
		Rows: []model.ReportRow{
			{
				Symbol:        "NVDA",
				CurrentPrice:  181.5,
				MA50:          null.FloatFrom(175.123),
				MA200:         null.FloatFrom(150),
				RSI14:         null.FloatFrom(72.5),
				MACD:          null.FloatFrom(2),
				SignalLine:    null.FloatFrom(1.5),
				UpperBand:     null.FloatFrom(190),
				LowerBand:     null.FloatFrom(170),
				ATR:           null.FloatFrom(4.25),
				MonthlyChange: null.FloatFrom(6.5),
				Signals:       signals,
				SignalText:    signals.Text(),
				AsOf:          asOf,
			},
			{
				Symbol:       "AISP",
				CurrentPrice: 3.1,
				RSI14:        null.FloatFrom(40),
				AsOf:         asOf,
			},
		},
		Failures: []model.SymbolFailure{
			{Symbol: "SMCI", Kind: model.FailureDataUnavailable, Err: errors.New("no data")},
		},
	}
}

func TestFormatHTMLReport(t *testing.T) {
	out, err := FormatHTMLReport(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, out, "<th>RSI(14)</th>")
	assert.Contains(t, out, "<th>Monthly Change (%)</th>")
	assert.Contains(t, out, "<td style=\"white-space:pre-line\">175.12</td>")
	assert.Contains(t, out, "MA50 crosses above MA200: Buy signal\nRSI above 70: Overbought (Sell signal)")
	assert.Contains(t, out, "<td style=\"white-space:pre-line\">NaN</td>", "undefined MA50 of AISP")
	assert.Contains(t, out, "<li>SMCI: data_unavailable</li>")
	assert.Contains(t, out, "2025-09-30")
	assert.Less(t, strings.Index(out, "NVDA"), strings.Index(out, "AISP"))
}

func TestFormatHTMLReport_EscapesText(t *testing.T) {
	rep := &model.Report{Rows: []model.ReportRow{{Symbol: "<b>X</b>", CurrentPrice: 1}}}
	out, err := FormatHTMLReport(rep)
	require.NoError(t, err)
	assert.Contains(t, out, "&lt;b&gt;X&lt;/b&gt;")
}

func TestFormatTelegramSummary(t *testing.T) {
	out := FormatTelegramSummary(sampleReport())

	assert.Contains(t, out, "2 analysed, 1 skipped")
	assert.Contains(t, out, "<b>NVDA</b> 181.50 | RSI 72.50 | ATR 4.25 | 1M 6.50%")
	assert.Contains(t, out, "🟢 MA50 crosses above MA200: Buy signal")
	assert.Contains(t, out, "🔴 RSI above 70: Overbought (Sell signal)")
	assert.Contains(t, out, "<b>AISP</b> 3.10 | RSI 40.00 | ATR NaN | 1M NaN%")
	assert.Contains(t, out, "Skipped: SMCI (data_unavailable)")
}

func TestFormatRunStatus(t *testing.T) {
	assert.Equal(t, "No run recorded yet.", FormatRunStatus(nil))

	run := sampleReport().Summarize([]string{"email: dial tcp: timeout"})
	out := FormatRunStatus(&run)
	assert.Contains(t, out, "<code>run-1</code>")
	assert.Contains(t, out, "Symbols: 3 | Rows: 2 | Skipped: 1")
	assert.Contains(t, out, "email: dial tcp: timeout")
	assert.Contains(t, out, "(2s)")
}

func TestFormatSymbolHistory(t *testing.T) {
	assert.Equal(t, "No history for AMD.", FormatSymbolHistory("AMD", nil))

	out := FormatSymbolHistory("AMD", []recorder.SymbolOutcome{
		{Symbol: "AMD", Status: "data_unavailable", Error: "timeout"},
		{Symbol: "AMD", Status: recorder.StatusOK, AsOf: asOf},
	})
	assert.Contains(t, out, "<b>AMD</b> last 2 runs")
	assert.Contains(t, out, "❌ data_unavailable: timeout")
	assert.Contains(t, out, "✅ bar 2025-09-30")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("aaaa\nbbbb\ncccc\n", 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc\n"}, parts)

	parts = splitMessage("0123456789abcdef\nxy", 8)
	assert.Equal(t, []string{"01234567", "89abcdef", "\nxy"}, parts)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 8)
	}
}

type sentMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func newTelegramServer(t *testing.T, handler http.HandlerFunc) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	n := NewTelegramNotifier("TOKEN", "42", "")
	n.BaseURL = srv.URL
	n.RetryInterval = time.Millisecond
	return n
}

func TestTelegramNotifier_NotifyRetries(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var got []sentMessage
	n := newTelegramServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var msg sentMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
		fmt.Fprint(w, `{"ok":true}`)
	})

	require.NoError(t, n.Notify(context.Background(), sampleReport()))
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, got, 1)
	assert.Equal(t, "42", got[0].ChatID)
	assert.Equal(t, "HTML", got[0].ParseMode)
	assert.Contains(t, got[0].Text, "NVDA")
}

func TestTelegramNotifier_BadRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	n := newTelegramServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"ok":false,"description":"can't parse entities"}`)
	})

	err := n.SendWithRetry(context.Background(), "<b>broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't parse entities")
	assert.Equal(t, int32(1), calls.Load())
}

func TestTelegramNotifier_PollOnce(t *testing.T) {
	var replies []string
	n := newTelegramServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			assert.Equal(t, "7", r.URL.Query().Get("offset"))
			fmt.Fprint(w, `{"ok":true,"result":[
				{"update_id":7,"message":{"text":" /status ","chat":{"id":42}}},
				{"update_id":8,"message":{"text":"/report","chat":{"id":99}}},
				{"update_id":9}
			]}`)
		case "/botTOKEN/sendMessage":
			var msg sentMessage
			require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
			replies = append(replies, msg.Text)
			fmt.Fprint(w, `{"ok":true}`)
		default:
			http.NotFound(w, r)
		}
	})

	var commands []string
	handler := func(_ context.Context, cmd string) string {
		commands = append(commands, cmd)
		return "status reply"
	}

	next, err := n.pollOnce(context.Background(), n.Client, 7, 0, handler)
	require.NoError(t, err)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/status"}, commands, "unknown chat is ignored")
	assert.Equal(t, []string{"status reply"}, replies)
}

func TestTelegramNotifier_PollOnceNotOK(t *testing.T) {
	n := newTelegramServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"description":"Conflict"}`)
	})
	next, err := n.pollOnce(context.Background(), n.Client, 3, 0, func(context.Context, string) string { return "" })
	require.Error(t, err)
	assert.Equal(t, 3, next)
}

type fakeDialer struct {
	sent []*mail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*mail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

// attachment returns the filename and decoded content of the first attachment in m.
func attachment(t *testing.T, m *mail.Message) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	msg, err := netmail.ReadMessage(&buf)
	require.NoError(t, err)
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", nil
	}
	mr := multipart.NewReader(msg.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		require.NoError(t, err)
		if part.FileName() == "" {
			continue
		}
		var r io.Reader = part
		if strings.EqualFold(part.Header.Get("Content-Transfer-Encoding"), "base64") {
			r = base64.NewDecoder(base64.StdEncoding, part)
		}
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		return part.FileName(), data
	}
}

func TestEmailNotifier_Notify(t *testing.T) {
	d := &fakeDialer{}
	n := NewEmailNotifier("smtp.example.com", 465, "me", "pw", "me@example.com",
		[]string{"a@example.com", "b@example.com"}, "Stock Technical Analysis Results", "stock.xlsx")
	n.Dialer = d

	require.NoError(t, n.Notify(context.Background(), sampleReport()))
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"me@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Stock Technical Analysis Results"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")

	name, data := attachment(t, m)
	assert.Equal(t, "stock.xlsx", name)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(exporter.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "NVDA", rows[1][0])
	assert.Equal(t, "AISP", rows[2][0])
}

func TestEmailNotifier_AttachmentIgnoresFileOnDisk(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "stock.xlsx")
	require.NoError(t, os.WriteFile(stale, []byte("yesterday"), 0o644))
	t.Chdir(dir)

	d := &fakeDialer{}
	n := &EmailNotifier{From: "me@example.com", To: []string{"a@example.com"}, Subject: "s", AttachName: "stock.xlsx", Dialer: d}
	require.NoError(t, n.Notify(context.Background(), sampleReport()))
	require.Len(t, d.sent, 1)

	_, data := attachment(t, d.sent[0])
	assert.NotEqual(t, []byte("yesterday"), data)
	_, err := excelize.OpenReader(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestEmailNotifier_NoAttachment(t *testing.T) {
	d := &fakeDialer{}
	n := &EmailNotifier{From: "me@example.com", To: []string{"a@example.com"}, Subject: "s", Dialer: d}
	require.NoError(t, n.Notify(context.Background(), sampleReport()))
	require.Len(t, d.sent, 1)

	name, data := attachment(t, d.sent[0])
	assert.Empty(t, name)
	assert.Nil(t, data)
}

func TestEmailNotifier_DialError(t *testing.T) {
	n := &EmailNotifier{From: "me@example.com", To: []string{"a@example.com"}, Dialer: &fakeDialer{err: errors.New("535 auth failed")}}
	err := n.Notify(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")
}
