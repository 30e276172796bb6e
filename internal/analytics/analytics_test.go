package analytics

import (
	"math/rand"
	"testing"
	"time"

	"github.com/chepyr/go-task-planner/internal/models"
)

var now = time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func daysAgo(n int) time.Time { return now.AddDate(0, 0, -n) }

func completedTask(id string, created, completed time.Time, due *time.Time) models.Task {
	return models.Task{
		ID: id, Completed: true, CompletedAt: ptr(completed), DueDate: due,
		CreatedAt: created, Priority: models.PriorityMedium,
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    Window
		wantErr bool
	}{
		{"7d", Week, false},
		{"30D", Month, false},
		{" 90d ", Quarter, false},
		{"30", Month, false},
		{"14d", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWindow(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseWindow(%q) = %v, %v", tt.in, got, err)
		}
	}
	if Month.String() != "30d" {
		t.Errorf("String() = %q", Month.String())
	}
}

func TestFilter(t *testing.T) {
	tasks := []models.Task{
		{ID: "in", CreatedAt: daysAgo(3), ProjectID: "p1"},
		{ID: "edge", CreatedAt: daysAgo(7), ProjectID: "p2"},
		{ID: "old", CreatedAt: daysAgo(8)},
		{ID: "future", CreatedAt: now.Add(time.Hour)},
		{ID: "now", CreatedAt: now},
	}

	got := Filter(tasks, Options{Window: Week, Now: now})
	if ids(got) != "in,edge,now" {
		t.Fatalf("Filter all = %s", ids(got))
	}
	got = Filter(tasks, Options{Window: Week, Now: now, ProjectID: "all"})
	if ids(got) != "in,edge,now" {
		t.Fatalf("Filter 'all' = %s", ids(got))
	}
	got = Filter(tasks, Options{Window: Week, Now: now, ProjectID: "p1"})
	if ids(got) != "in" {
		t.Fatalf("Filter p1 = %s", ids(got))
	}
}

func ids(tasks []models.Task) string {
	s := ""
	for i, t := range tasks {
		if i > 0 {
			s += ","
		}
		s += t.ID
	}
	return s
}

func TestCompletionTrend_ShapeAndBuckets(t *testing.T) {
	filtered := []models.Task{
		{ID: "today", CreatedAt: now.Add(-time.Hour), Completed: true},
		{ID: "today2", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "yesterday", CreatedAt: daysAgo(1)},
		// exactly seven days back is on the day before the first bucket
		{ID: "lead", CreatedAt: daysAgo(7)},
	}
	trend := CompletionTrend(filtered, Week, now)
	if len(trend) != 7 {
		t.Fatalf("len = %d, want 7", len(trend))
	}
	if !trend[0].Date.Equal(time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first day = %v", trend[0].Date)
	}
	if trend[6].Label != "Mar 20" {
		t.Errorf("last label = %q", trend[6].Label)
	}
	if trend[6].Total != 2 || trend[6].Completed != 1 || trend[6].Rate != 50 {
		t.Errorf("today bucket = %+v", trend[6])
	}
	if trend[5].Total != 1 {
		t.Errorf("yesterday bucket = %+v", trend[5])
	}
	if trend[0].Total != 1 {
		t.Errorf("leading partial day should fold into the first bucket: %+v", trend[0])
	}
}

func TestCompletionTrend_TotalsSumToFilteredSize(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, w := range []Window{Week, Month, Quarter} {
		for trial := 0; trial < 20; trial++ {
			var tasks []models.Task
			for i := 0; i < 200; i++ {
				offset := time.Duration(r.Int63n(int64(100 * 24 * time.Hour)))
				tasks = append(tasks, models.Task{CreatedAt: now.Add(-offset), Completed: r.Intn(2) == 0})
			}
			filtered := Filter(tasks, Options{Window: w, Now: now})
			sum := 0
			for _, p := range CompletionTrend(filtered, w, now) {
				sum += p.Total
			}
			if sum != len(filtered) {
				t.Fatalf("window %v: trend total %d != filtered %d", w, sum, len(filtered))
			}
		}
	}
}

func TestCompletionTrend_UsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	localNow := time.Date(2024, 3, 20, 1, 0, 0, 0, loc) // 06:00 UTC
	// 23:30 local on the 19th, already the 20th in UTC
	created := time.Date(2024, 3, 20, 4, 30, 0, 0, time.UTC)

	trend := CompletionTrend([]models.Task{{CreatedAt: created}}, Week, localNow)
	if trend[5].Total != 1 {
		t.Fatalf("task should land on the 19th local: %+v", trend)
	}
}

func TestPriorityDistribution(t *testing.T) {
	filtered := []models.Task{
		{Priority: models.PriorityHigh},
		{Priority: models.PriorityHigh},
		{Priority: models.PriorityLow},
		{Priority: ""},
	}
	dist := PriorityDistribution(filtered)
	if len(dist) != 3 {
		t.Fatalf("len = %d", len(dist))
	}
	want := []struct {
		p models.Priority
		n int
	}{{models.PriorityHigh, 2}, {models.PriorityMedium, 1}, {models.PriorityLow, 1}}
	sum := 0
	for i, w := range want {
		if dist[i].Priority != w.p || dist[i].Count != w.n {
			t.Errorf("dist[%d] = %+v, want %v=%d", i, dist[i], w.p, w.n)
		}
		sum += dist[i].Count
	}
	if sum != len(filtered) {
		t.Errorf("counts sum to %d, want %d", sum, len(filtered))
	}

	empty := PriorityDistribution(nil)
	for _, c := range empty {
		if c.Count != 0 {
			t.Errorf("empty set should zero-fill: %+v", empty)
		}
	}
}

func TestProjectBreakdown(t *testing.T) {
	projects := []models.Project{
		{ID: "p1", Name: "Work", Color: "#111111"},
		{ID: "p2", Name: "Home", Color: "#222222"},
	}
	filtered := []models.Task{
		{ProjectID: "p1", Completed: true},
		{ProjectID: "p1"},
		{ProjectID: "p1"},
		{ProjectID: "p1", Completed: true},
		{ProjectID: "orphan", Completed: true},
		{},
	}
	stats := ProjectBreakdown(filtered, projects)
	if len(stats) != 2 {
		t.Fatalf("len = %d", len(stats))
	}
	if stats[0].Total != 4 || stats[0].Completed != 2 || stats[0].Rate != 50 || stats[0].Color != "#111111" {
		t.Errorf("p1 = %+v", stats[0])
	}
	if stats[1].Total != 0 || stats[1].Rate != 0 {
		t.Errorf("p2 = %+v", stats[1])
	}
}

func TestStreak(t *testing.T) {
	d := time.Date(2024, 3, 20, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		tasks []models.Task
		want  int
	}{
		{"none", nil, 0},
		{"D, D-1, D-3", []models.Task{
			completedTask("a", d, d, nil),
			completedTask("b", d, d.AddDate(0, 0, -1), nil),
			completedTask("c", d, d.AddDate(0, 0, -3), nil),
		}, 2},
		{"same day counts once", []models.Task{
			completedTask("a", d, d, nil),
			completedTask("b", d, d.Add(-5*time.Hour), nil),
		}, 1},
		{"calendar days not 24h gaps", []models.Task{
			completedTask("a", d, time.Date(2024, 3, 20, 0, 10, 0, 0, time.UTC), nil),
			completedTask("b", d, time.Date(2024, 3, 19, 0, 5, 0, 0, time.UTC), nil),
			completedTask("c", d, time.Date(2024, 3, 18, 23, 55, 0, 0, time.UTC), nil),
		}, 3},
		{"older run is longer", []models.Task{
			completedTask("a", d, d, nil),
			completedTask("b", d, d.AddDate(0, 0, -5), nil),
			completedTask("c", d, d.AddDate(0, 0, -6), nil),
			completedTask("e", d, d.AddDate(0, 0, -7), nil),
		}, 3},
		{"open tasks ignored", []models.Task{
			{CompletedAt: ptr(d)},
			completedTask("a", d, d.AddDate(0, 0, -1), nil),
		}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// input order must not matter
			r := rand.New(rand.NewSource(7))
			r.Shuffle(len(tt.tasks), func(i, j int) { tt.tasks[i], tt.tasks[j] = tt.tasks[j], tt.tasks[i] })
			if got := Streak(tt.tasks, time.UTC); got != tt.want {
				t.Fatalf("Streak = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProductivityScore(t *testing.T) {
	due := now.Add(24 * time.Hour)
	late := now.Add(-48 * time.Hour)

	tests := []struct {
		name  string
		tasks []models.Task
		want  int
	}{
		{"empty", nil, 0},
		{"all done on time", []models.Task{
			completedTask("a", daysAgo(2), daysAgo(1), ptr(due)),
			completedTask("b", daysAgo(2), daysAgo(1), nil),
		}, 100},
		{"nothing done", []models.Task{{CreatedAt: daysAgo(1)}, {CreatedAt: daysAgo(1)}}, 0},
		{"half done, one late", []models.Task{
			completedTask("a", daysAgo(3), daysAgo(1), ptr(late)),
			{CreatedAt: daysAgo(1)},
		}, 35},
		{"completed exactly at due", []models.Task{
			completedTask("a", daysAgo(3), due, ptr(due)),
		}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProductivityScore(tt.tasks, DefaultWeights); got != tt.want {
				t.Fatalf("score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProductivityScore_CustomWeights(t *testing.T) {
	tasks := []models.Task{
		completedTask("a", daysAgo(3), daysAgo(1), ptr(daysAgo(2))),
		{CreatedAt: daysAgo(1)},
	}
	// completion 50, on-time 0
	if got := ProductivityScore(tasks, Weights{Completion: 1, OnTime: 0}); got != 50 {
		t.Fatalf("score = %d, want 50", got)
	}
}

func TestCompute(t *testing.T) {
	tasks := []models.Task{
		completedTask("a", daysAgo(2), daysAgo(1), nil),
		{ID: "b", CreatedAt: daysAgo(1), DueDate: ptr(now.Add(-time.Hour)), Priority: models.PriorityHigh},
		{ID: "c", CreatedAt: daysAgo(40)},
	}
	tasks[0].ProjectID = "p1"
	projects := []models.Project{{ID: "p1", Name: "Work"}}

	r := Compute(tasks, projects, Options{Window: Week, Now: now})
	if r.Total != 2 || r.Completed != 1 || r.Overdue != 1 {
		t.Fatalf("unexpected totals %+v", r)
	}
	if r.CompletionRate != 50 || r.OnTimeRate != 100 || r.Score != 65 {
		t.Fatalf("unexpected rates %+v", r)
	}
	if r.Streak != 1 || len(r.Trend) != 7 || len(r.Projects) != 1 || r.Projects[0].Total != 1 {
		t.Fatalf("unexpected report %+v", r)
	}

	empty := Compute(nil, nil, Options{Window: Month, Now: now})
	if empty.Score != 0 || empty.CompletionRate != 0 || len(empty.Trend) != 30 {
		t.Fatalf("unexpected empty report %+v", empty)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	tasks := []models.Task{
		completedTask("a", daysAgo(2), daysAgo(1), nil),
		{ID: "b", CreatedAt: daysAgo(1)},
	}
	opts := Options{Window: Week, Now: now}
	a := Compute(tasks, nil, opts)
	b := Compute(tasks, nil, opts)
	if a.Score != b.Score || a.Streak != b.Streak || len(a.Trend) != len(b.Trend) {
		t.Fatal("Compute must be deterministic for a fixed now")
	}
	for i := range a.Trend {
		if a.Trend[i] != b.Trend[i] {
			t.Fatalf("trend differs at %d", i)
		}
	}
}
