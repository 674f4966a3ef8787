// Package schema maps the labels used in the upstream databases to the
// semantic fields the dashboards work with.
//
// Every dataset gets one table. Labels differ between workspace variants, so
// a field may list several candidate labels; the first one carrying a value
// wins (see record.Record.Lookup). Tables can be overridden from config.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"lifeos/internal/record"
)

// Dataset names one upstream database.
type Dataset string

const (
	Values        Dataset = "values"
	ValuesCheck   Dataset = "values_check"
	Goals         Dataset = "goals"
	Projects      Dataset = "projects"
	Actions       Dataset = "actions"
	DailyLog      Dataset = "daily_log"
	Emotions      Dataset = "emotions"
	Health        Dataset = "health"
	Attention     Dataset = "attention"
	Creation      Dataset = "creation"
	Interaction   Dataset = "interaction"
	Finance       Dataset = "finance"
	GrowthReview  Dataset = "growth_review"
	Desires       Dataset = "desires"
	Knowledge     Dataset = "knowledge"
	MentalModels  Dataset = "mental_models"
	Relationships Dataset = "relationships"
)

// AllDatasets lists every known dataset in a stable order.
var AllDatasets = []Dataset{
	Values, ValuesCheck, Goals, Projects, Actions, DailyLog, Emotions, Health,
	Attention, Creation, Interaction, Finance, GrowthReview, Desires,
	Knowledge, MentalModels, Relationships,
}

// EnvKey is the environment variable overriding the dataset's database id.
func (d Dataset) EnvKey() string {
	return "DB_" + strings.ToUpper(string(d))
}

// Known reports whether d is one of AllDatasets.
func (d Dataset) Known() bool {
	for _, k := range AllDatasets {
		if k == d {
			return true
		}
	}
	return false
}

// ValueFields locates the columns of the values database.
type ValueFields struct {
	Name        record.Field
	Description record.Field
	Priority    record.Field
}

// GoalFields locates the columns of the goals database.
type GoalFields struct {
	Name   record.Field
	Domain record.Field
	Status record.Field
}

// ProjectFields locates the columns of the projects database.
type ProjectFields struct {
	Name     record.Field
	Progress record.Field
	Goal     record.Field
	Deadline record.Field
	Status   record.Field
}

// ActionFields locates the columns of the actions database.
type ActionFields struct {
	Description record.Field
	Priority    record.Field
	Energy      record.Field
	Deadline    record.Field
	Estimate    record.Field
	Status      record.Field
	CompletedAt record.Field
}

// LogFields locates the columns of the daily log database.
type LogFields struct {
	Activity record.Field
	Date     record.Field
	Start    record.Field
	Category record.Field
	Value    record.Field
	Focus    record.Field
	Duration record.Field
	Related  record.Field
}

// HealthFields locates the columns of the health database.
type HealthFields struct {
	Date         record.Field
	Energy       record.Field
	SleepQuality record.Field
	SleepScore   record.Field
	SleepHours   record.Field
	Exercise     record.Field
	ExerciseType record.Field
	Intensity    record.Field
	Feeling      record.Field
}

// EmotionFields locates the columns of the emotion log database.
type EmotionFields struct {
	RecordedAt    record.Field
	Mood          record.Field
	Trigger       record.Field
	Recovery      record.Field
	Effectiveness record.Field
}

// GrowthFields locates the columns of the growth review database.
type GrowthFields struct {
	EventType record.Field
	Event     record.Field
	Lesson    record.Field
	Value     record.Field
	Skills    record.Field
	CreatedAt record.Field
}

// FinanceFields locates the columns of the finance database.
type FinanceFields struct {
	Date record.Field
}

// Vocabulary holds the choice labels the queries and dashboards compare
// against.
type Vocabulary struct {
	// StatusKind is the property type of the status columns, "select" or
	// "status".
	StatusKind   string
	InProgress   string
	Todo         string
	Done         string
	SleepQuality map[string]float64
	Priority     []PriorityTable
	EnergyIcons  map[string]string
}

// Schema is the full label mapping.
type Schema struct {
	Values   ValueFields
	Goals    GoalFields
	Projects ProjectFields
	Actions  ActionFields
	Logs     LogFields
	Health   HealthFields
	Emotions EmotionFields
	Growth   GrowthFields
	Finance  FinanceFields
	Vocabulary
}

func f(name string, labels ...string) record.Field {
	return record.NewField(name, labels...)
}

func duration(name string, cands ...record.Candidate) record.Field {
	return record.Field{Name: name, Candidates: cands}
}

// Default returns the mapping of the reference workspace.
func Default() Schema {
	return Schema{
		Values: ValueFields{
			Name:        f("name", "价值观名称"),
			Description: f("description", "核心描述"),
			Priority:    f("priority", "优先级"),
		},
		Goals: GoalFields{
			Name:   f("name", "目标名称"),
			Domain: f("domain", "领域"),
			Status: f("status", "状态"),
		},
		Projects: ProjectFields{
			Name:     f("name", "项目名称"),
			Progress: f("progress", "项目进度"),
			Goal:     f("goal", "关联目标"),
			Deadline: f("deadline", "截止日期"),
			Status:   f("status", "状态"),
		},
		Actions: ActionFields{
			Description: f("description", "行动描述"),
			Priority:    f("priority", "优先级"),
			Energy:      f("energy", "能量要求"),
			Deadline:    f("deadline", "截止日期"),
			Estimate:    duration("estimate", record.Candidate{Label: "预估时长", Unit: record.UnitHours}),
			Status:      f("status", "状态"),
			CompletedAt: f("completed_at", "完成日期"),
		},
		Logs: LogFields{
			Activity: f("activity", "活动名称"),
			Date:     f("date", "日期"),
			Start:    f("start", "开始时间"),
			Category: f("category", "活动类别"),
			Value:    f("value", "价值评分"),
			Focus:    f("focus", "专注质量"),
			Duration: duration("duration",
				record.Candidate{Label: "实际时长（分钟）", Unit: record.UnitMinutes},
				record.Candidate{Label: "实际时长", Unit: record.UnitHours},
			),
			Related: f("related", "关联目标/任务"),
		},
		Health: HealthFields{
			Date:         f("date", "日期"),
			Energy:       f("energy", "精力水平"),
			SleepQuality: f("sleep_quality", "睡眠质量"),
			SleepScore:   f("sleep_score", "睡眠评分"),
			SleepHours:   duration("sleep_hours", record.Candidate{Label: "睡眠时长", Unit: record.UnitHours}),
			Exercise:     duration("exercise", record.Candidate{Label: "运动时长", Unit: record.UnitMinutes}),
			ExerciseType: f("exercise_type", "运动类型"),
			Intensity:    f("intensity", "运动强度"),
			Feeling:      f("feeling", "运动后感受"),
		},
		Emotions: EmotionFields{
			RecordedAt:    f("recorded_at", "记录时间"),
			Mood:          f("mood", "当前心情评分"),
			Trigger:       f("trigger", "触发类型"),
			Recovery:      f("recovery", "恢复行动"),
			Effectiveness: f("effectiveness", "行动效果评分"),
		},
		Growth: GrowthFields{
			EventType: f("event_type", "事件类型"),
			Event:     f("event", "复盘事件"),
			Lesson:    f("lesson", "核心教训"),
			Value:     f("value", "成长价值"),
			Skills:    f("skills", "能力提升"),
			CreatedAt: f("created_at", "创建时间"),
		},
		Finance: FinanceFields{
			Date: f("date", "日期"),
		},
		Vocabulary: Vocabulary{
			StatusKind:   "select",
			InProgress:   "进行中",
			Todo:         "待办",
			Done:         "已完成",
			SleepQuality: SleepQualityScale(),
			Priority:     []PriorityTable{PriorityByCommitment, PriorityByMatrix},
			EnergyIcons: map[string]string{
				"高能量(深度专注)": "🔥",
				"中能量(常规任务)": "⚡",
				"低能量(机械琐碎)": "🌱",
			},
		},
	}
}

// SleepQualityScale maps the sleep quality vocabulary to 5..1.
func SleepQualityScale() map[string]float64 {
	return map[string]float64{
		"极佳": 5,
		"良好": 4,
		"一般": 3,
		"较差": 2,
		"糟糕": 1,
	}
}

// DateField is the field a dataset is filtered on when fetching "since a
// boundary".
func (s Schema) DateField(ds Dataset) (record.Field, bool) {
	switch ds {
	case DailyLog:
		return s.Logs.Date, true
	case Health:
		return s.Health.Date, true
	case Emotions:
		return s.Emotions.RecordedAt, true
	case Finance:
		return s.Finance.Date, true
	case GrowthReview:
		return s.Growth.CreatedAt, true
	case Actions:
		return s.Actions.CompletedAt, true
	}
	return record.Field{}, false
}

func (s *Schema) table(ds Dataset) map[string]*record.Field {
	switch ds {
	case Values:
		v := &s.Values
		return map[string]*record.Field{"name": &v.Name, "description": &v.Description, "priority": &v.Priority}
	case Goals:
		g := &s.Goals
		return map[string]*record.Field{"name": &g.Name, "domain": &g.Domain, "status": &g.Status}
	case Projects:
		p := &s.Projects
		return map[string]*record.Field{"name": &p.Name, "progress": &p.Progress, "goal": &p.Goal, "deadline": &p.Deadline, "status": &p.Status}
	case Actions:
		a := &s.Actions
		return map[string]*record.Field{"description": &a.Description, "priority": &a.Priority, "energy": &a.Energy,
			"deadline": &a.Deadline, "estimate": &a.Estimate, "status": &a.Status, "completed_at": &a.CompletedAt}
	case DailyLog:
		l := &s.Logs
		return map[string]*record.Field{"activity": &l.Activity, "date": &l.Date, "start": &l.Start, "category": &l.Category,
			"value": &l.Value, "focus": &l.Focus, "duration": &l.Duration, "related": &l.Related}
	case Health:
		h := &s.Health
		return map[string]*record.Field{"date": &h.Date, "energy": &h.Energy, "sleep_quality": &h.SleepQuality,
			"sleep_score": &h.SleepScore, "sleep_hours": &h.SleepHours, "exercise": &h.Exercise,
			"exercise_type": &h.ExerciseType, "intensity": &h.Intensity, "feeling": &h.Feeling}
	case Emotions:
		e := &s.Emotions
		return map[string]*record.Field{"recorded_at": &e.RecordedAt, "mood": &e.Mood, "trigger": &e.Trigger,
			"recovery": &e.Recovery, "effectiveness": &e.Effectiveness}
	case GrowthReview:
		g := &s.Growth
		return map[string]*record.Field{"event_type": &g.EventType, "event": &g.Event, "lesson": &g.Lesson,
			"value": &g.Value, "skills": &g.Skills, "created_at": &g.CreatedAt}
	case Finance:
		return map[string]*record.Field{"date": &s.Finance.Date}
	}
	return nil
}

// FieldNames lists the overridable fields of ds, sorted.
func (s Schema) FieldNames(ds Dataset) []string {
	t := s.table(ds)
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Field returns the current mapping of one semantic field.
func (s Schema) Field(ds Dataset, name string) (record.Field, bool) {
	p, ok := s.table(ds)[name]
	if !ok {
		return record.Field{}, false
	}
	return *p, true
}

// Override replaces the candidate labels of one field.
func (s *Schema) Override(ds Dataset, name string, cands []record.Candidate) error {
	t := s.table(ds)
	if t == nil {
		return fmt.Errorf("schema: dataset %q has no field table", ds)
	}
	p, ok := t[name]
	if !ok {
		return fmt.Errorf("schema: dataset %q has no field %q", ds, name)
	}
	if len(cands) == 0 {
		return fmt.Errorf("schema: %s.%s needs at least one label", ds, name)
	}
	for _, c := range cands {
		if strings.TrimSpace(c.Label) == "" {
			return fmt.Errorf("schema: %s.%s has an empty label", ds, name)
		}
	}
	*p = record.Field{Name: name, Candidates: append([]record.Candidate(nil), cands...)}
	return nil
}
