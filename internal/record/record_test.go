package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageJSON = `{
  "object": "page",
  "id": "page-1",
  "created_time": "2024-03-01T08:00:00.000Z",
  "last_edited_time": "2024-03-02T08:00:00.000Z",
  "properties": {
    "名称": {"id": "a", "type": "title", "title": [{"plain_text": "晨"}, {"plain_text": "跑"}]},
    "描述": {"id": "b", "type": "rich_text", "rich_text": [{"plain_text": "每天"}]},
    "进度": {"id": "c", "type": "number", "number": 40},
    "公式": {"id": "d", "type": "formula", "formula": {"type": "number", "number": 7.5}},
    "汇总": {"id": "e", "type": "rollup", "rollup": {"type": "number", "number": 3}},
    "心情": {"id": "f", "type": "select", "select": {"name": "8分"}},
    "状态": {"id": "g", "type": "status", "status": {"name": "进行中"}},
    "标签": {"id": "h", "type": "multi_select", "multi_select": [{"name": "沟通"}, {"name": "写作"}]},
    "日期": {"id": "i", "type": "date", "date": {"start": "2024-03-01", "end": null}},
    "关联": {"id": "j", "type": "relation", "relation": [{"id": "goal-1"}, {"id": "goal-2"}]},
    "完成": {"id": "k", "type": "checkbox", "checkbox": true},
    "链接": {"id": "l", "type": "url", "url": "https://example.com"},
    "创建": {"id": "m", "type": "created_time", "created_time": "2024-03-01T08:00:00.000Z"},
    "精力": {"id": "n", "type": "rich_text", "rich_text": [{"plain_text": " 4 "}]},
    "坏数字": {"id": "o", "type": "number", "number": {"oops": true}},
    "坏标签": {"id": "p", "type": "multi_select", "multi_select": "nope"},
    "空": {"id": "q", "type": "number", "number": null},
    "怪": "not an object",
    "非数": {"id": "r", "type": "rich_text", "rich_text": [{"plain_text": "NaN"}]},
    "无穷": {"id": "s", "type": "number", "number": "+Inf"},
    "非数分": {"id": "t", "type": "select", "select": {"name": "NaN分"}}
  }
}`

func decodeFixture(t *testing.T) Record {
	t.Helper()
	r, err := Decode(json.RawMessage(pageJSON))
	require.NoError(t, err)
	return r
}

func TestExtractors(t *testing.T) {
	r := decodeFixture(t)

	assert.Equal(t, "page-1", r.ID)
	assert.Equal(t, "晨跑", r.Property("名称").Text())
	assert.Equal(t, "每天", r.Property("描述").Text())
	assert.Equal(t, 40.0, r.Property("进度").Number())
	assert.Equal(t, 7.5, r.Property("公式").Number())
	assert.Equal(t, 3.0, r.Property("汇总").Number())
	assert.Equal(t, "8分", r.Property("心情").Select())
	assert.Equal(t, 8.0, r.Property("心情").Number())
	assert.Equal(t, "进行中", r.Property("状态").Select())
	assert.Equal(t, []string{"沟通", "写作"}, r.Property("标签").MultiSelect())
	assert.Equal(t, []string{"goal-1", "goal-2"}, r.Property("关联").Relation())
	assert.True(t, r.Property("完成").Checkbox())
	assert.Equal(t, "https://example.com", r.Property("链接").URL())
	assert.Equal(t, 4.0, r.Property("精力").Number())

	d, ok := r.Property("日期").Date()
	require.True(t, ok)
	assert.Equal(t, "2024-03-01", d)

	c, ok := r.Property("创建").Date()
	require.True(t, ok)
	assert.Equal(t, "2024-03-01T08:00:00.000Z", c)
}

func TestExtractorDefaults(t *testing.T) {
	r := decodeFixture(t)

	for _, label := range []string{"缺失", "坏数字", "坏标签", "空", "怪"} {
		p := r.Property(label)
		assert.Equal(t, "", p.Text(), label)
		assert.Equal(t, 0.0, p.Number(), label)
		assert.Equal(t, "", p.Select(), label)
		assert.Equal(t, []string{}, p.MultiSelect(), label)
		assert.Equal(t, []string{}, p.Relation(), label)
		assert.False(t, p.Checkbox(), label)
		assert.Equal(t, "", p.URL(), label)
		_, ok := p.Date()
		assert.False(t, ok, label)
		_, ok = p.LookupNumber()
		assert.False(t, ok, label)
	}

	for _, label := range []string{"非数", "无穷", "非数分"} {
		n, ok := r.Property(label).LookupNumber()
		assert.False(t, ok, label)
		assert.Equal(t, 0.0, n, label)
	}
}

func TestNumericResolutionOrder(t *testing.T) {
	tests := []struct {
		name string
		prop Property
		want float64
		ok   bool
	}{
		{"direct", NumberValue(6), 6, true},
		{"formula", FormulaNumberValue(2.5), 2.5, true},
		{"rollup", RollupNumberValue(9), 9, true},
		{"choice label", SelectValue("7分"), 7, true},
		{"numeric text", RichTextValue("3.5"), 3.5, true},
		{"text label", RichTextValue("6分"), 6, true},
		{"non numeric choice", SelectValue("良好"), 0, false},
		{"non numeric text", RichTextValue("很好"), 0, false},
		{"nan text", RichTextValue("NaN"), 0, false},
		{"infinite text", RichTextValue("Inf"), 0, false},
		{"negative infinite text", RichTextValue("-Infinity"), 0, false},
		{"nan choice label", SelectValue("NaN分"), 0, false},
		{"infinite number string", Property{Type: "number", fields: map[string]json.RawMessage{"number": json.RawMessage(`"inf"`)}}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.prop.LookupNumber()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLabelScore(t *testing.T) {
	assert.Equal(t, 7.0, ParseLabelScore("7分"))
	assert.Equal(t, 8.5, ParseLabelScore(" 8.5分 "))
	assert.Equal(t, 0.0, ParseLabelScore("七分"))
	assert.Equal(t, 0.0, ParseLabelScore("7"))
	assert.Equal(t, 0.0, ParseLabelScore(""))
	assert.Equal(t, 0.0, ParseLabelScore("Inf分"))
}

func TestParseNumber(t *testing.T) {
	n, ok := ParseNumber(" 4 ")
	require.True(t, ok)
	assert.Equal(t, 4.0, n)

	n, ok = ParseNumber("9分")
	require.True(t, ok)
	assert.Equal(t, 9.0, n)

	for _, s := range []string{"", "良好", "NaN", "-inf", "NaN分"} {
		_, ok := ParseNumber(s)
		assert.False(t, ok, s)
	}
}

func TestLookupPrefersNonEmptyCandidate(t *testing.T) {
	f := Field{Name: "duration", Candidates: []Candidate{
		{Label: "实际时长（分钟）", Unit: UnitMinutes},
		{Label: "实际时长", Unit: UnitHours},
	}}

	minutesOnly := New("a", map[string]Property{"实际时长（分钟）": RichTextValue("90")})
	m, ok := minutesOnly.Minutes(f)
	require.True(t, ok)
	assert.Equal(t, 90.0, m)

	hoursOnly := New("b", map[string]Property{
		"实际时长（分钟）": RichTextValue(""),
		"实际时长":     NumberValue(1.5),
	})
	m, ok = hoursOnly.Minutes(f)
	require.True(t, ok)
	assert.Equal(t, 90.0, m)

	_, ok = New("c", nil).Minutes(f)
	assert.False(t, ok)
}

func TestRecordFieldAccess(t *testing.T) {
	r := decodeFixture(t)
	date := NewField("date", "没有", "日期")

	key, ok := r.DayKey(date, time.UTC)
	require.True(t, ok)
	assert.Equal(t, "2024-03-01", key)

	tm, ok := r.Time(date, time.UTC)
	require.True(t, ok)
	assert.Equal(t, 2024, tm.Year())

	rel := NewField("goal", "关联")
	assert.True(t, r.RelatedTo(rel, "goal-2"))
	assert.False(t, r.RelatedTo(rel, "goal-3"))

	tags := NewField("tags", "标签")
	assert.Equal(t, []string{"沟通", "写作"}, r.Labels(tags))
	assert.Equal(t, []string{"进行中"}, r.Labels(NewField("status", "状态")))
	assert.Equal(t, []string{}, r.Labels(NewField("none", "缺失")))

	created, ok := r.CreatedAt()
	require.True(t, ok)
	assert.Equal(t, 8, created.Hour())
}

func TestDecodeAllSkipsNonObjects(t *testing.T) {
	raws := []json.RawMessage{
		json.RawMessage(`{"id":"x","properties":{}}`),
		json.RawMessage(`"bogus"`),
		json.RawMessage(`{"id":"y"}`),
	}
	got := DecodeAll(raws)
	require.Len(t, got, 2)
	assert.Equal(t, "x", got[0].ID)
	assert.NotNil(t, got[1].Properties)
}

func TestBuildersRoundTripThroughUpstreamShape(t *testing.T) {
	payload, err := json.Marshal(map[string]Property{
		"状态":   SelectValue("已完成"),
		"完成日期": DateValue("2024-03-01T10:00:00Z"),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"状态":{"select":{"name":"已完成"}},"完成日期":{"date":{"start":"2024-03-01T10:00:00Z"}}}`, string(payload))
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit("hours")
	require.NoError(t, err)
	assert.Equal(t, UnitHours, u)
	assert.Equal(t, 120.0, u.ToMinutes(2))

	u, err = ParseUnit("")
	require.NoError(t, err)
	assert.Equal(t, UnitNone, u)

	_, err = ParseUnit("days")
	assert.Error(t, err)
}
