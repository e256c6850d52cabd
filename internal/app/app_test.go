package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"geniereport/internal/domain"
)

// Wednesday 11 March 2026, 12:00 UTC.
var fixedNow = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

type fakeOpsgenie struct {
	mu       sync.Mutex
	alerts   string // body of the single alert page
	failFrom int    // fail the alert list with 403 from this call on, 0 = never
	calls    int
	queries  []string
	timeline string
	tagged   []string
}

func (f *fakeOpsgenie) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.URL.Path == "/v2/alerts":
		f.calls++
		f.queries = append(f.queries, r.URL.Query().Get("query"))
		if f.failFrom > 0 && f.calls >= f.failFrom {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"message":"key revoked"}`)
			return
		}
		io.WriteString(w, f.alerts)
	case strings.HasPrefix(r.URL.Path, "/v2/alerts/") && strings.HasSuffix(r.URL.Path, "/tags"):
		var body struct {
			Tags []string `json:"tags"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v2/alerts/"), "/tags")
		f.tagged = append(f.tagged, id+"="+strings.Join(body.Tags, ","))
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, `{"result":"Request will be processed"}`)
	case r.URL.Path == "/v2/schedules":
		io.WriteString(w, `{"data":[{"id":"s1","name":"Platform"},{"id":"s2","name":"Data"}],"paging":{}}`)
	case r.URL.Path == "/v2/schedules/s1":
		io.WriteString(w, `{"data":{"id":"s1","name":"Platform","rotations":[{"id":"r1","name":"Weekly","type":"weekly"}]}}`)
	case r.URL.Path == "/v2/schedules/s1/timeline":
		f.queries = append(f.queries, r.URL.RawQuery)
		io.WriteString(w, f.timeline)
	case r.URL.Path == "/v2/users/alice@example.com":
		io.WriteString(w, `{"data":{"id":"u1","username":"alice@example.com","fullName":"Alice Smith"}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"not found"}`)
	}
}

func setup(t *testing.T, fake *fakeOpsgenie) {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("OPSGENIE_API_KEY", "genie-test")
	t.Setenv("OPSGENIE_API_URL", server.URL)
	t.Setenv("OPSGENIE_SCHEDULE_ID", "s1")
	t.Setenv("TOIL_SLEEPING_HOURS", "1")
	t.Setenv("TOIL_WAKING_HOURS", "0.5")

	orig := nowFn
	nowFn = func() time.Time { return fixedNow }
	t.Cleanup(func() { nowFn = orig })
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Execute(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

const toilAlerts = `{"data":[
	{"id":"a1","tinyId":"1","message":"disk full","acknowledged":true,"createdAt":"2026-03-05T02:00:00Z","tags":["sleepinghours"],"report":{"acknowledgedBy":"alice@example.com"}},
	{"id":"a2","tinyId":"2","message":"disk full again","acknowledged":true,"createdAt":"2026-03-05T02:10:00Z","tags":["sleepinghours"],"report":{"acknowledgedBy":"alice@example.com"}},
	{"id":"a3","tinyId":"3","message":"cpu","acknowledged":true,"createdAt":"2026-03-06T15:00:00Z","tags":["wakinghours"],"report":{"acknowledgedBy":"bob@example.com"}},
	{"id":"a4","tinyId":"4","message":"ignored","acknowledged":false,"createdAt":"2026-03-06T16:00:00Z","tags":["wakinghours"]}
]}`

func TestToilReport(t *testing.T) {
	fake := &fakeOpsgenie{alerts: toilAlerts}
	setup(t, fake)

	out, _, err := run(t, "", "toil")
	if err != nil {
		t.Fatalf("toil: %v", err)
	}
	for _, want := range []string{
		"alice@example.com acknowledged 1 alerts during sleepinghours and 0 alerts during wakinghours. This corresponds to 1.00 TOIL.",
		"bob@example.com acknowledged 0 alerts during sleepinghours and 1 alerts during wakinghours. This corresponds to 0.50 TOIL.",
		"Within the quiet window for sleepinghours, not counted.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if got := fake.queries[0]; got != "createdAt >= '04-03-2026T00:00:00'" {
		t.Fatalf("unexpected query: %q", got)
	}
}

func TestToilFlagsOverrideConfig(t *testing.T) {
	fake := &fakeOpsgenie{alerts: toilAlerts}
	setup(t, fake)

	out, _, err := run(t, "", "toil", "--days", "1", "--tags", "prod,db", "--quiet-window", "5m")
	if err != nil {
		t.Fatalf("toil: %v", err)
	}
	if got := fake.queries[0]; got != "createdAt >= '10-03-2026T00:00:00' AND tag:prod AND tag:db" {
		t.Fatalf("unexpected query: %q", got)
	}
	if !strings.Contains(out, "This corresponds to 2.00 TOIL.") {
		t.Fatalf("10 minutes apart must both count with a 5m window:\n%s", out)
	}
}

func TestFetchErrorPolicy(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{name: "abort by default", args: []string{"toil"}, wantErr: true},
		{name: "skip", args: []string{"toil", "--on-fetch-error", "skip"}, wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t, &fakeOpsgenie{failFrom: 1})
			out, _, err := run(t, "", tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %t", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "fetching toil data") {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out, "WARNING: this report is partial") || !strings.Contains(out, "key revoked") {
				t.Fatalf("partial report must still be printed:\n%s", out)
			}
		})
	}
}

func TestInvalidFetchErrorFlag(t *testing.T) {
	setup(t, &fakeOpsgenie{alerts: toilAlerts})
	if _, _, err := run(t, "", "toil", "--on-fetch-error", "retry"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	setup(t, &fakeOpsgenie{})
	t.Setenv("OPSGENIE_API_KEY", "")
	_, _, err := run(t, "", "stats")
	if !domain.IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestToilArchiveMetricsAndHistory(t *testing.T) {
	setup(t, &fakeOpsgenie{alerts: toilAlerts})
	dir := t.TempDir()
	t.Setenv("DB_PATH", filepath.Join(dir, "archive.db"))
	t.Setenv("METRICS_TEXTFILE", filepath.Join(dir, "geniereport.prom"))

	out, _, err := run(t, "", "toil", "-o", "json")
	if err != nil {
		t.Fatalf("toil: %v", err)
	}
	var rep struct {
		Report  string `json:"report"`
		Partial bool   `json:"partial"`
		Users   []struct {
			Actor string  `json:"actor"`
			Total float64 `json:"total"`
		} `json:"users"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if rep.Report != "toil" || rep.Partial || len(rep.Users) != 2 || rep.Users[0].Total != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	prom, err := os.ReadFile(filepath.Join(dir, "geniereport.prom"))
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(prom), `geniereport_toil_total{actor="alice@example.com"} 1`) {
		t.Fatalf("metrics missing toil total:\n%s", prom)
	}

	out, _, err = run(t, "", "history", "--kind", "toil", "-o", "json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []struct {
		Kind  string `json:"kind"`
		Lines []struct {
			Subject string  `json:"subject"`
			Metric  string  `json:"metric"`
			Value   float64 `json:"value"`
		} `json:"lines"`
	}
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Kind != "toil" || len(runs[0].Lines) == 0 {
		t.Fatalf("unexpected history: %+v", runs)
	}
	if l := runs[0].Lines[0]; l.Subject != "alice@example.com" || l.Metric != "toil_total" || l.Value != 1 {
		t.Fatalf("unexpected first line: %+v", l)
	}
}

func TestHistoryNeedsDBPath(t *testing.T) {
	setup(t, &fakeOpsgenie{})
	_, _, err := run(t, "", "history")
	if !domain.IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestOutputDirWritesDatedFile(t *testing.T) {
	setup(t, &fakeOpsgenie{alerts: toilAlerts})
	dir := t.TempDir()
	out, _, err := run(t, "", "toil", "--output-dir", dir)
	if err != nil {
		t.Fatalf("toil: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "toil_20260311.txt"))
	if err != nil {
		t.Fatalf("read report file: %v", err)
	}
	if string(data) != out {
		t.Fatalf("file content differs from stdout")
	}
}

func TestStatsDateRanges(t *testing.T) {
	alerts := `{"data":[
		{"id":"a1","tinyId":"1","createdAt":"2026-03-02T02:00:00Z","tags":["govpress","OOH","client_acme"]},
		{"id":"a2","tinyId":"2","createdAt":"2026-03-03T02:00:00Z","tags":["OOH"]}
	]}`
	tests := []struct {
		name      string
		args      []string
		wantQuery string
	}{
		{name: "default last week", args: nil, wantQuery: "createdAt >= '04-03-2026T00:00:00' AND createdAt < '11-03-2026T00:00:00'"},
		{name: "last month", args: []string{"--last-month"}, wantQuery: "createdAt >= '01-02-2026T00:00:00' AND createdAt < '01-03-2026T00:00:00'"},
		{name: "inclusive end", args: []string{"--start", "2026-03-01", "--end", "2026-03-31"}, wantQuery: "createdAt >= '01-03-2026T00:00:00' AND createdAt < '01-04-2026T00:00:00'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeOpsgenie{alerts: alerts}
			setup(t, fake)
			out, _, err := run(t, "", append([]string{"stats"}, tt.args...)...)
			if err != nil {
				t.Fatalf("stats: %v", err)
			}
			if fake.queries[0] != tt.wantQuery {
				t.Fatalf("query = %q, want %q", fake.queries[0], tt.wantQuery)
			}
			for _, want := range []string{"Total alerts processed: 2", "=== Business Unit: govpress ===", "Client: acme", "=== Business Unit: deliveryplus ==="} {
				if !strings.Contains(out, want) {
					t.Fatalf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestStatsFlagConflicts(t *testing.T) {
	setup(t, &fakeOpsgenie{})
	for _, args := range [][]string{
		{"stats", "--last-week", "--last-month"},
		{"stats", "--start", "2026-03-01"},
		{"stats", "--start", "2026-03-31", "--end", "2026-03-01"},
	} {
		if _, _, err := run(t, "", args...); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

const weeklyTimeline = `{"data":{"finalTimeline":{"rotations":[{"id":"r1","name":"Weekly","order":1,"periods":[
	{"startDate":"2026-03-04T10:00:00Z","endDate":"2026-03-11T10:00:00Z","type":"default","recipient":{"type":"user","name":"alice@example.com"}},
	{"startDate":"2026-03-11T10:00:00Z","endDate":"2026-03-18T10:00:00Z","type":"default","recipient":{"type":"user","name":"alice@example.com"}},
	{"startDate":"2026-03-18T10:00:00Z","endDate":"2026-03-25T10:00:00Z","type":"default","recipient":{"type":"user","name":"bob@example.com"}}
]}]}}}`

func TestPaymentReport(t *testing.T) {
	fake := &fakeOpsgenie{timeline: weeklyTimeline}
	setup(t, fake)
	t.Setenv("PAYMENT_RATE", "10")

	out, _, err := run(t, "", "payment")
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	for _, want := range []string{
		"Billing period 2026-03-04 10:00 UTC to 2026-04-01 10:00 UTC",
		"Alice Smith was on call for 336.00 hours and should be paid £3360.00.",
		"bob@example.com was on call for 168.00 hours and should be paid £1680.00.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(fake.queries[0], "date=2026-03-04T10%3A00%3A00Z") || !strings.Contains(fake.queries[0], "interval=29") {
		t.Fatalf("unexpected timeline query: %s", fake.queries[0])
	}
}

func TestPaymentEmptyPeriod(t *testing.T) {
	setup(t, &fakeOpsgenie{timeline: `{"data":{"finalTimeline":{"rotations":[]}}}`})
	out, _, err := run(t, "", "payment", "--date", "2026-05-20")
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if !strings.Contains(out, "Billing period 2026-05-06 10:00 UTC to 2026-06-03 10:00 UTC") ||
		!strings.Contains(out, "Nobody was on call during this billing period.") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPaymentNeedsSchedule(t *testing.T) {
	setup(t, &fakeOpsgenie{})
	t.Setenv("OPSGENIE_SCHEDULE_ID", "")
	if _, _, err := run(t, "", "payment"); !domain.IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestOnCallDigest(t *testing.T) {
	setup(t, &fakeOpsgenie{timeline: weeklyTimeline})
	out, _, err := run(t, "", "oncall")
	if err != nil {
		t.Fatalf("oncall: %v", err)
	}
	want := strings.Join([]string{
		"On call for week starting 2026-03-11:",
		"alice@example.com",
		"On call for week starting 2026-03-18:",
		"bob@example.com",
		"On call for week starting 2026-03-25:",
		"Nobody",
		"On call for week starting 2026-04-01:",
		"Nobody",
	}, "\n") + "\n"
	if out != want {
		t.Fatalf("unexpected digest:\n%s\nwant:\n%s", out, want)
	}
}

func TestOnCallPostsMentionsToSlack(t *testing.T) {
	setup(t, &fakeOpsgenie{timeline: weeklyTimeline})

	var mu sync.Mutex
	var posted []string
	slack := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		mu.Lock()
		defer mu.Unlock()
		switch strings.TrimPrefix(r.URL.Path, "/api/") {
		case "users.lookupByEmail":
			if r.Form.Get("email") == "alice@example.com" {
				json.NewEncoder(w).Encode(map[string]any{"ok": true, "user": map[string]any{"id": "U_ALICE"}})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "users_not_found"})
		case "chat.postMessage":
			posted = append(posted, r.Form.Get("text"))
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C1", "ts": "1.0"})
		}
	}))
	t.Cleanup(slack.Close)
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_CHANNEL_ID", "C1")
	t.Setenv("SLACK_API_URL", slack.URL+"/api/")

	out, _, err := run(t, "", "oncall", "--slack")
	if err != nil {
		t.Fatalf("oncall: %v", err)
	}
	if strings.Contains(out, "<@U_ALICE>") {
		t.Fatalf("stdout must keep usernames:\n%s", out)
	}
	if len(posted) != 1 || !strings.Contains(posted[0], "<@U_ALICE>") || !strings.Contains(posted[0], "bob@example.com") {
		t.Fatalf("unexpected slack post: %q", posted)
	}
}

func TestSlackFlagNeedsSlackConfig(t *testing.T) {
	setup(t, &fakeOpsgenie{timeline: weeklyTimeline})
	if _, _, err := run(t, "", "oncall", "--slack"); !domain.IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestNextOnCall(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{email: "bob@example.com", want: "bob@example.com is next on call on March 18, 2026\n"},
		{email: "carol@example.com", want: "carol@example.com is not on call in the next 6 months for the specified rotation.\n"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			setup(t, &fakeOpsgenie{timeline: weeklyTimeline})
			out, _, err := run(t, "", "next-oncall", "-e", tt.email, "--rotation", "r1")
			if err != nil {
				t.Fatalf("next-oncall: %v", err)
			}
			if out != tt.want {
				t.Fatalf("got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestNextOnCallNeedsEmail(t *testing.T) {
	setup(t, &fakeOpsgenie{timeline: weeklyTimeline})
	if _, _, err := run(t, "", "next-oncall"); err == nil {
		t.Fatalf("expected missing flag error")
	}
}

func TestSchedules(t *testing.T) {
	setup(t, &fakeOpsgenie{})

	out, _, err := run(t, "", "schedules")
	if err != nil {
		t.Fatalf("schedules: %v", err)
	}
	if !strings.Contains(out, "Platform (ID: s1)") || !strings.Contains(out, "Data (ID: s2)") {
		t.Fatalf("unexpected listing:\n%s", out)
	}

	out, _, err = run(t, "", "schedules", "-n", "Platform")
	if err != nil {
		t.Fatalf("schedules -n: %v", err)
	}
	if !strings.Contains(out, "Schedule ID for 'Platform' is 's1'") || !strings.Contains(out, "Weekly (ID: r1)") {
		t.Fatalf("unexpected rotations:\n%s", out)
	}

	out, _, err = run(t, "", "schedules", "-n", "Missing")
	if err != nil {
		t.Fatalf("not found must not fail: %v", err)
	}
	if out != "Schedule 'Missing' not found\n" {
		t.Fatalf("unexpected not-found output: %q", out)
	}
}

const untaggedAlerts = `{"data":[
	{"id":"a1","tinyId":"1","message":"govpress site down","createdAt":"2026-03-10T02:00:00Z","tags":["OOH"]},
	{"id":"a2","tinyId":"2","message":"unknown","createdAt":"2026-03-10T03:00:00Z","tags":[]}
]}`

func stubTerminal(t *testing.T, isTTY bool) {
	t.Helper()
	orig := stdinIsTerminal
	stdinIsTerminal = func() bool { return isTTY }
	t.Cleanup(func() { stdinIsTerminal = orig })
}

func TestTagPrompts(t *testing.T) {
	fake := &fakeOpsgenie{alerts: untaggedAlerts}
	setup(t, fake)
	t.Setenv("TAGS_TO_EXCLUDE", "deliveryplus,govpress")
	stubTerminal(t, true)

	out, prompts, err := run(t, "2\n3\n", "tag")
	if err != nil {
		t.Fatalf("tag: %v", err)
	}
	if !strings.Contains(fake.queries[0], "NOT (tag:deliveryplus OR tag:govpress)") {
		t.Fatalf("unexpected query: %q", fake.queries[0])
	}
	if !strings.Contains(prompts, "1. deliveryplus") || !strings.Contains(prompts, "3. skip") {
		t.Fatalf("prompt must list choices:\n%s", prompts)
	}
	if len(fake.tagged) != 1 || fake.tagged[0] != "a1=govpress" {
		t.Fatalf("unexpected tag calls: %v", fake.tagged)
	}
	for _, want := range []string{"Added tag 'govpress' to alert 'a1'.", "Skipped alert 'a2'.", "1 tagged, 0 planned, 1 skipped, 0 failed."} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTagDryRunStopsAtEndOfInput(t *testing.T) {
	fake := &fakeOpsgenie{alerts: untaggedAlerts}
	setup(t, fake)
	stubTerminal(t, true)

	out, _, err := run(t, "\n", "tag", "--dry-run", "--tags", "deliveryplus,govpress")
	if err != nil {
		t.Fatalf("closed input must end the run cleanly: %v", err)
	}
	if len(fake.tagged) != 0 {
		t.Fatalf("dry run must not tag: %v", fake.tagged)
	}
	if !strings.Contains(out, "Would add tag 'deliveryplus' to alert 'a1'.") || strings.Contains(out, "'a2'") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestTagNeedsTerminalWithoutSuggest(t *testing.T) {
	setup(t, &fakeOpsgenie{alerts: untaggedAlerts})
	stubTerminal(t, false)
	_, _, err := run(t, "", "tag")
	if err == nil || !strings.Contains(err.Error(), "interactive terminal") {
		t.Fatalf("expected terminal error, got %v", err)
	}
}

func TestTagSuggestNeedsAPIKey(t *testing.T) {
	setup(t, &fakeOpsgenie{alerts: untaggedAlerts})
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, _, err := run(t, "", "tag", "--suggest"); !domain.IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestServeValidatesSchedules(t *testing.T) {
	setup(t, &fakeOpsgenie{})
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_CHANNEL_ID", "C1")

	_, _, err := run(t, "", "serve")
	if err == nil || !strings.Contains(err.Error(), "nothing to serve") {
		t.Fatalf("expected nothing-to-serve error, got %v", err)
	}

	t.Setenv("ONCALL_POST_SCHEDULE", "every wednesday")
	if _, _, err := run(t, "", "serve"); !domain.IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError for bad cron, got %v", err)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	setup(t, &fakeOpsgenie{})
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_CHANNEL_ID", "C1")
	t.Setenv("TOIL_POST_SCHEDULE", "0 9 * * 1")
	t.Setenv("ONCALL_POST_SCHEDULE", "0 19 * * 3")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var stdout, stderr bytes.Buffer
	go func() {
		done <- Execute(ctx, []string{"serve"}, strings.NewReader(""), &stdout, &stderr)
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop after cancel")
	}
	want := "oncall_post: next run at Wed, 11 Mar 2026 19:00:00 UTC\n" +
		"toil_post: next run at Mon, 16 Mar 2026 09:00:00 UTC\n"
	if stderr.String() != want {
		t.Fatalf("unexpected next runs:\n%s\nwant:\n%s", stderr.String(), want)
	}
}
