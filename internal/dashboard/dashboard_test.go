package dashboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"lifeos/internal/dashboard"
	"lifeos/internal/metrics"
	"lifeos/internal/record"
	"lifeos/internal/repo"
	"lifeos/internal/schema"
	"lifeos/internal/transport"
)

type props = map[string]record.Property

// tableTransport answers every query of a database with its fixed records.
type tableTransport struct {
	mu       sync.Mutex
	tables   map[string][]record.Record
	failures map[string]error
	queries  []string
}

func (f *tableTransport) Invoke(_ context.Context, req transport.Request) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, req.DatabaseID)
	if err := f.failures[req.DatabaseID]; err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{"results": f.tables[req.DatabaseID], "has_more": false})
}

var testNow = time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC) // Wednesday

func newRepo(tt *tableTransport) repo.Repo {
	dbs := map[schema.Dataset]string{}
	for _, ds := range schema.AllDatasets {
		dbs[ds] = string(ds)
	}
	r := repo.New(tt, dbs)
	r.Location = time.UTC
	r.Now = func() time.Time { return testNow }
	return r
}

func frameData[T any](t *testing.T, s *dashboard.Store, dash, section string) T {
	t.Helper()
	f, ok := s.Frame(dash, section)
	require.True(t, ok, "missing frame %s/%s", dash, section)
	require.False(t, f.Failed(), "frame %s/%s failed: %s", dash, section, f.Err)
	v, ok := f.Data.(T)
	require.True(t, ok, "frame %s/%s has data %T", dash, section, f.Data)
	return v
}

func TestCompassRender(t *testing.T) {
	tt := &tableTransport{tables: map[string][]record.Record{
		"values": {record.New("v1", props{
			"价值观名称": record.TitleValue("成长"),
			"核心描述":  record.RichTextValue("每天进步一点"),
			"优先级":   record.NumberValue(1),
		})},
		"goals": {record.New("g1", props{
			"目标名称": record.TitleValue("跑完马拉松"),
			"领域":   record.SelectValue("健康"),
		})},
		"projects": {
			record.New("p1", props{
				"项目名称": record.TitleValue("基础训练"),
				"项目进度": record.NumberValue(40),
				"关联目标": record.RelationValue("g1"),
				"截止日期": record.DateValue("2024-04-01"),
			}),
			record.New("p2", props{
				"项目名称": record.TitleValue("长距离"),
				"项目进度": record.NumberValue(60),
				"关联目标": record.RelationValue("g1"),
			}),
		},
		"daily_log": {
			record.New("l1", props{
				"关联目标/任务":  record.RelationValue("p1"),
				"实际时长（分钟）": record.RichTextValue("90"),
			}),
			record.New("l2", props{
				"关联目标/任务": record.RelationValue("p1"),
				"实际时长":    record.NumberValue(0.5),
			}),
		},
	}}
	store := dashboard.NewStore()
	err := dashboard.NewCompass(newRepo(tt), zap.NewNop()).Render(context.Background(), store)
	require.NoError(t, err)

	values := frameData[[]dashboard.ValueCard](t, store, dashboard.Compass, "values")
	require.Len(t, values, 1)
	assert.Equal(t, dashboard.ValueCard{ID: "v1", Name: "成长", Description: "每天进步一点", Priority: 1}, values[0])

	goals := frameData[[]dashboard.GoalRow](t, store, dashboard.Compass, "goals")
	require.Len(t, goals, 1)
	assert.Equal(t, "健康", goals[0].Domain)
	assert.Equal(t, []string{"基础训练", "长距离"}, goals[0].Projects)
	assert.Equal(t, 50, goals[0].Progress)

	inv := frameData[[]dashboard.InvestmentCard](t, store, dashboard.Compass, "investment")
	require.Len(t, inv, 2)
	assert.Equal(t, 2.0, inv[0].WeeklyHours)
	assert.Equal(t, "2024-04-01", inv[0].Deadline)
	assert.Equal(t, 0.0, inv[1].WeeklyHours)

	frames := store.Frames(dashboard.Compass)
	require.Len(t, frames, 3)
	assert.Equal(t, "values", frames[0].Section)
	assert.Equal(t, testNow, frames[0].RenderedAt)
}

func TestCockpitRender(t *testing.T) {
	tt := &tableTransport{tables: map[string][]record.Record{
		"actions": {
			record.New("a1", props{
				"行动描述": record.TitleValue("回邮件"),
				"优先级":  record.SelectValue("P3可以完成"),
				"能量要求": record.SelectValue("低能量(机械琐碎)"),
				"预估时长": record.NumberValue(0.5),
			}),
			record.New("a2", props{
				"行动描述": record.TitleValue("写方案"),
				"优先级":  record.SelectValue("P1-紧急重要"),
				"能量要求": record.SelectValue("高能量(深度专注)"),
				"预估时长": record.NumberValue(2),
				"截止日期": record.DateValue("2024-03-06"),
			}),
			record.New("a3", props{"行动描述": record.TitleValue("整理")}),
		},
		"emotions": {
			record.New("e1", props{
				"记录时间":   record.DateValue("2024-03-06T08:00:00Z"),
				"当前心情评分": record.SelectValue("8分"),
			}),
			record.New("e0", props{
				"记录时间":   record.DateValue("2024-03-05T20:00:00Z"),
				"当前心情评分": record.SelectValue("3分"),
			}),
		},
		"health": {record.New("h1", props{
			"日期":   record.DateValue("2024-03-06"),
			"精力水平": record.RichTextValue("4"),
			"睡眠评分": record.RichTextValue("85"),
		})},
		"daily_log": {
			record.New("l1", props{
				"活动名称":     record.TitleValue("写代码"),
				"开始时间":     record.DateValue("2024-03-06T10:00:00Z"),
				"活动类别":     record.SelectValue("工作"),
				"专注质量":     record.NumberValue(4),
				"价值评分":     record.NumberValue(4),
				"实际时长（分钟）": record.RichTextValue("60"),
			}),
			record.New("l2", props{
				"活动名称":     record.TitleValue("晨跑"),
				"开始时间":     record.DateValue("2024-03-06T08:00:00Z"),
				"专注质量":     record.NumberValue(2),
				"实际时长（分钟）": record.RichTextValue("30"),
			}),
		},
	}}
	store := dashboard.NewStore()
	require.NoError(t, dashboard.NewCockpit(newRepo(tt), nil).Render(context.Background(), store))

	actions := frameData[[]dashboard.ActionItem](t, store, dashboard.Cockpit, "actions")
	require.Len(t, actions, 3)
	assert.Equal(t, "a2", actions[0].ID)
	assert.Equal(t, "urgent", actions[0].Urgency)
	assert.Equal(t, "🔥", actions[0].EnergyIcon)
	assert.Equal(t, 2.0, actions[0].EstimateHours)
	assert.Equal(t, "a1", actions[1].ID)
	assert.Equal(t, "🌱", actions[1].EnergyIcon)
	assert.Equal(t, "a3", actions[2].ID)
	assert.Equal(t, "normal", actions[2].Urgency)
	assert.Equal(t, "⚡", actions[2].EnergyIcon)

	vitals := frameData[dashboard.Vitals](t, store, dashboard.Cockpit, "vitals")
	assert.Equal(t, 8.0, vitals.Mood)
	assert.Equal(t, "😊", vitals.MoodEmoji)
	assert.Equal(t, "★★★★☆", vitals.MoodStars)
	assert.Equal(t, 4.0, vitals.Energy)
	assert.Equal(t, 85.0, vitals.SleepScore)
	assert.Equal(t, 1.0, vitals.FocusHours)

	timeline := frameData[[]dashboard.LogEntry](t, store, dashboard.Cockpit, "timeline")
	require.Len(t, timeline, 2)
	assert.Equal(t, "l2", timeline[0].ID)
	assert.Equal(t, "08:00", timeline[0].Start)
	assert.Equal(t, 0.5, timeline[0].Hours)
	assert.Equal(t, "★★★★☆", timeline[1].ValueStars)
}

func TestCockpitVitalsWithoutData(t *testing.T) {
	store := dashboard.NewStore()
	require.NoError(t, dashboard.NewCockpit(newRepo(&tableTransport{}), nil).Render(context.Background(), store))

	vitals := frameData[dashboard.Vitals](t, store, dashboard.Cockpit, "vitals")
	assert.Equal(t, dashboard.Vitals{MoodStars: "☆☆☆☆☆", MoodEmoji: "😞", EnergyStars: "☆☆☆☆☆"}, vitals)
	assert.Empty(t, frameData[[]dashboard.ActionItem](t, store, dashboard.Cockpit, "actions"))
}

func TestFoundationRender(t *testing.T) {
	tt := &tableTransport{tables: map[string][]record.Record{
		"health": {
			record.New("h1", props{
				"日期":   record.DateValue("2024-03-05"),
				"睡眠质量": record.SelectValue("良好"),
				"精力水平": record.NumberValue(4),
				"睡眠时长": record.NumberValue(7),
			}),
			record.New("h2", props{
				"日期":    record.DateValue("2024-03-06"),
				"睡眠质量":  record.SelectValue("极佳"),
				"精力水平":  record.NumberValue(5),
				"运动时长":  record.NumberValue(30),
				"运动类型":  record.SelectValue("跑步"),
				"运动强度":  record.SelectValue("中"),
				"运动后感受": record.SelectValue("轻松"),
			}),
		},
		"emotions": {
			record.New("e1", props{
				"记录时间":   record.DateValue("2024-03-05T09:00:00Z"),
				"当前心情评分": record.NumberValue(8),
				"触发类型":   record.SelectValue("工作"),
				"恢复行动":   record.SelectValue("散步"),
				"行动效果评分": record.NumberValue(4),
			}),
			record.New("e2", props{
				"记录时间":   record.DateValue("2024-03-05T21:00:00Z"),
				"当前心情评分": record.NumberValue(6),
				"触发类型":   record.SelectValue("工作"),
				"恢复行动":   record.SelectValue("冥想"),
				"行动效果评分": record.NumberValue(5),
			}),
		},
	}}
	store := dashboard.NewStore()
	require.NoError(t, dashboard.NewFoundation(newRepo(tt), dashboard.Options{}, nil).Render(context.Background(), store))

	kpi := frameData[dashboard.KPI](t, store, dashboard.Foundation, "kpi")
	assert.Equal(t, 4.5, kpi.AverageEnergy)
	assert.Equal(t, 3.5, kpi.AverageSleepHours)
	assert.Equal(t, 4.5, kpi.SleepQuality)
	assert.Equal(t, 50, kpi.ExerciseRate)
	assert.Equal(t, 100, kpi.PositiveRate)

	triggers := frameData[[]metrics.Count](t, store, dashboard.Foundation, "triggers")
	assert.Equal(t, []metrics.Count{{Key: "工作", Count: 2}}, triggers)

	recovery := frameData[[]metrics.Rank](t, store, dashboard.Foundation, "recovery")
	require.Len(t, recovery, 2)
	assert.Equal(t, "冥想", recovery[0].Group)

	corr := frameData[dashboard.Correlation](t, store, dashboard.Foundation, "correlation")
	require.Len(t, corr.Rows, 1)
	assert.Equal(t, "2024-03-05", corr.Rows[0].Date)
	assert.Equal(t, 7.0, corr.Rows[0].AverageMood)
	assert.Equal(t, 3.5, corr.Chart[0].Mood)

	exercise := frameData[[]dashboard.ExerciseRow](t, store, dashboard.Foundation, "exercise")
	require.Len(t, exercise, 1)
	assert.Equal(t, dashboard.ExerciseRow{Date: "2024-03-06", Type: "跑步", Intensity: "中", Feeling: "轻松", Minutes: 30, Energy: 5}, exercise[0])

	// health and emotions are fetched once for all five sections
	assert.Equal(t, []string{"health", "emotions"}, tt.queries)
}

func TestGrowthRender(t *testing.T) {
	reviews := make([]record.Record, 0, 12)
	for i := 0; i < 12; i++ {
		reviews = append(reviews, record.New(string(rune('a'+i)), props{
			"事件类型": record.SelectValue("项目复盘"),
			"能力提升": record.MultiSelectValue("沟通", "写作"),
			"复盘事件": record.TitleValue("事件"),
			"核心教训": record.RichTextValue("先想清楚"),
			"成长价值": record.NumberValue(8),
		}))
	}
	tt := &tableTransport{tables: map[string][]record.Record{"growth_review": reviews}}
	store := dashboard.NewStore()
	require.NoError(t, dashboard.NewGrowth(newRepo(tt), dashboard.Options{}, nil).Render(context.Background(), store))

	events := frameData[[]metrics.Count](t, store, dashboard.Growth, "event_types")
	assert.Equal(t, []metrics.Count{{Key: "项目复盘", Count: 10}}, events)

	skills := frameData[[]metrics.Count](t, store, dashboard.Growth, "skills")
	assert.Equal(t, []metrics.Count{{Key: "沟通", Count: 10}, {Key: "写作", Count: 10}}, skills)

	lessons := frameData[[]dashboard.Lesson](t, store, dashboard.Growth, "lessons")
	require.Len(t, lessons, 5)
	assert.Equal(t, "★★★★☆", lessons[0].Stars)
	assert.Len(t, tt.queries, 1)
}

func TestWeeklyRender(t *testing.T) {
	tt := &tableTransport{tables: map[string][]record.Record{
		"daily_log": {
			record.New("l1", props{"实际时长（分钟）": record.NumberValue(120), "专注质量": record.NumberValue(5)}),
			record.New("l2", props{"实际时长": record.NumberValue(1)}),
		},
		"actions": {record.New("a1", nil), record.New("a2", nil)},
		"emotions": {
			record.New("e1", props{"当前心情评分": record.NumberValue(3)}),
			record.New("e2", props{"当前心情评分": record.NumberValue(9)}),
			record.New("e3", props{"当前心情评分": record.RichTextValue("n/a")}),
		},
		"health":  {record.New("h1", props{"睡眠时长": record.NumberValue(6)}), record.New("h2", props{"睡眠时长": record.NumberValue(8)})},
		"finance": {record.New("f1", nil)},
	}}
	store := dashboard.NewStore()
	require.NoError(t, dashboard.NewWeekly(newRepo(tt), nil).Render(context.Background(), store))

	snap := frameData[dashboard.Snapshot](t, store, dashboard.Weekly, "snapshot")
	assert.Equal(t, dashboard.Snapshot{
		WeekStart:         "2024-03-04",
		CompletedActions:  2,
		MoodVolatility:    6,
		AverageSleepHours: 7,
		LoggedHours:       3,
		FocusHours:        2,
		FinanceEntries:    1,
	}, snap)
}

func TestSectionFailurePublishesFailedFrame(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tt := &tableTransport{failures: map[string]error{"goals": errors.New("upstream down")}}
	store := dashboard.NewStore()

	err := dashboard.NewCompass(newRepo(tt), zap.New(core)).Render(context.Background(), store)
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.ErrFetchFailed)

	frames := store.Frames(dashboard.Compass)
	require.Len(t, frames, 2)
	assert.False(t, frames[0].Failed())
	assert.True(t, frames[1].Failed())
	assert.Equal(t, "goals", frames[1].Section)
	assert.Contains(t, frames[1].Err, "upstream down")

	entries := logs.FilterMessage("Render section failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "goals", entries[0].ContextMap()["section"])
}

func TestRenderIsIdempotent(t *testing.T) {
	tt := &tableTransport{tables: map[string][]record.Record{
		"values": {record.New("v1", props{"价值观名称": record.TitleValue("专注")})},
	}}
	store := dashboard.NewStore()
	c := dashboard.NewCompass(newRepo(tt), nil)
	require.NoError(t, c.Render(context.Background(), store))
	first := store.Snapshot()
	require.NoError(t, c.Render(context.Background(), store))
	assert.Equal(t, first, store.Snapshot())
}
