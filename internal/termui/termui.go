// Package termui prints dashboard frames to a terminal.
package termui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	"lifeos/internal/dashboard"
	"lifeos/internal/metrics"
)

// Printer is a dashboard.Sink writing each frame as a styled block.
type Printer struct {
	mu    sync.Mutex
	w     io.Writer
	width int
	last  string
}

// NewPrinter writes to w, drawing charts width columns wide.
func NewPrinter(w io.Writer, width int) *Printer {
	if width < 20 {
		width = 80
	}
	return &Printer{w: w, width: width}
}

// Publish implements dashboard.Sink. Concurrent frames are serialised.
func (p *Printer) Publish(f dashboard.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f.Dashboard != p.last {
		fmt.Fprintln(p.w, dashboardStyle.Render(strings.ToUpper(f.Dashboard)))
		p.last = f.Dashboard
	}
	fmt.Fprintln(p.w, RenderFrame(f, p.width))
}

// Banner renders the countdown line and any live notices.
func Banner(daysLeft int, notices []string) string {
	lines := []string{countdownStyle.Render(fmt.Sprintf("⏳ 剩余 %d 天", daysLeft))}
	for _, n := range notices {
		lines = append(lines, noticeStyle.Render("⚠ "+n))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// RenderFrame formats one frame.
func RenderFrame(f dashboard.Frame, width int) string {
	header := titleStyle.Render(f.Title) + " " + subtitleStyle.Render(fmt.Sprintf("[%s/%s]", f.Dashboard, f.Section))
	if f.Failed() {
		return lipgloss.JoinVertical(lipgloss.Left, header, errorStyle.Render("渲染失败: "+f.Err), "")
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body(f.Data, width), "")
}

func body(data any, width int) string {
	switch v := data.(type) {
	case []dashboard.ValueCard:
		tw := newTable("优先级", "价值观", "核心描述")
		for _, c := range v {
			tw.AppendRow(table.Row{c.Priority, c.Name, c.Description})
		}
		return render(tw, len(v))
	case []dashboard.GoalRow:
		tw := newTable("目标", "领域", "关联项目", "进度")
		for _, g := range v {
			tw.AppendRow(table.Row{g.Name, g.Domain, strings.Join(g.Projects, ", "), progressBar(g.Progress)})
		}
		return render(tw, len(v))
	case []dashboard.InvestmentCard:
		tw := newTable("项目", "本周投入", "项目进度", "截止日期")
		for _, c := range v {
			tw.AppendRow(table.Row{c.Name, fmt.Sprintf("%.1fh", c.WeeklyHours), fmt.Sprintf("%.0f%%", c.Progress), c.Deadline})
		}
		return render(tw, len(v))
	case []dashboard.ActionItem:
		if len(v) == 0 {
			return subtitleStyle.Render("今日暂无待办事项")
		}
		tw := newTable("", "行动", "优先级", "能量", "预估", "截止")
		for _, a := range v {
			tw.AppendRow(table.Row{
				a.EnergyIcon,
				urgencyStyle(a.Urgency).Render(a.Title),
				a.Priority,
				a.Energy,
				fmt.Sprintf("%.1fh", a.EstimateHours),
				a.Deadline,
			})
		}
		return render(tw, len(v))
	case dashboard.Vitals:
		tw := newTable("指标", "数值")
		tw.AppendRow(table.Row{"今日心情", v.MoodStars + " " + v.MoodEmoji})
		tw.AppendRow(table.Row{"今日精力", v.EnergyStars + " ⚡"})
		tw.AppendRow(table.Row{"睡眠质量", fmt.Sprintf("%.0f分 😴", v.SleepScore)})
		tw.AppendRow(table.Row{"专注时长", fmt.Sprintf("%.1fh 🎯", v.FocusHours)})
		return tw.Render()
	case []dashboard.LogEntry:
		if len(v) == 0 {
			return subtitleStyle.Render("今日暂无日志记录")
		}
		tw := newTable("时间", "活动", "类别", "时长", "价值")
		for _, e := range v {
			tw.AppendRow(table.Row{e.Start, e.Activity, e.Category, fmt.Sprintf("%.1fh", e.Hours), e.ValueStars})
		}
		return render(tw, len(v))
	case dashboard.KPI:
		tw := newTable("指标", "数值")
		tw.AppendRow(table.Row{"平均精力水平", fmt.Sprintf("%.1f/5", v.AverageEnergy)})
		tw.AppendRow(table.Row{"平均睡眠时长", fmt.Sprintf("%.1fh", v.AverageSleepHours)})
		tw.AppendRow(table.Row{"睡眠质量评分", fmt.Sprintf("%.1f/5", v.SleepQuality)})
		tw.AppendRow(table.Row{"运动频率", fmt.Sprintf("%d%%", v.ExerciseRate)})
		tw.AppendRow(table.Row{"正面情绪占比", fmt.Sprintf("%d%%", v.PositiveRate)})
		return tw.Render()
	case []metrics.Count:
		return countChart(v, width)
	case []metrics.Rank:
		tw := newTable("恢复行动", "平均效果", "使用次数")
		for _, r := range v {
			tw.AppendRow(table.Row{r.Group, fmt.Sprintf("%.1f ⭐", r.Average), fmt.Sprintf("%d次", r.Count)})
		}
		return render(tw, len(v))
	case dashboard.Correlation:
		tw := newTable("日期", "睡眠质量", "精力", "平均心情", "睡眠时长")
		for _, r := range v.Rows {
			tw.AppendRow(table.Row{r.Date, r.SleepQuality, r.Energy, fmt.Sprintf("%.1f", r.AverageMood), fmt.Sprintf("%.1fh", r.SleepHours)})
		}
		return render(tw, len(v.Rows))
	case []dashboard.ExerciseRow:
		tw := newTable("日期", "运动类型", "运动强度", "运动后感受", "当日精力")
		for _, r := range v {
			tw.AppendRow(table.Row{r.Date, r.Type, r.Intensity, r.Feeling, fmt.Sprintf("%.0f ⭐", r.Energy)})
		}
		return render(tw, len(v))
	case []dashboard.Lesson:
		tw := newTable("复盘事件", "核心教训", "成长价值")
		for _, l := range v {
			tw.AppendRow(table.Row{l.Event, l.Insight, fmt.Sprintf("%.0f %s", l.Value, l.Stars)})
		}
		return render(tw, len(v))
	case dashboard.Snapshot:
		tw := newTable("指标", "数值")
		tw.AppendRow(table.Row{"本周起始", v.WeekStart})
		tw.AppendRow(table.Row{"完成行动数", fmt.Sprintf("%d ✓", v.CompletedActions)})
		tw.AppendRow(table.Row{"本周心情波动", fmt.Sprintf("%.1f 🔄", v.MoodVolatility)})
		tw.AppendRow(table.Row{"平均睡眠时长", fmt.Sprintf("%.1fh 🛌", v.AverageSleepHours)})
		tw.AppendRow(table.Row{"记录时长", fmt.Sprintf("%.1fh", v.LoggedHours)})
		tw.AppendRow(table.Row{"专注时长", fmt.Sprintf("%.1fh", v.FocusHours)})
		tw.AppendRow(table.Row{"财务记录", v.FinanceEntries})
		return tw.Render()
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(raw)
}

func newTable(headers ...string) table.Writer {
	tw := table.NewWriter()
	row := make(table.Row, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	tw.AppendHeader(row)
	tw.SetStyle(table.StyleLight)
	return tw
}

func render(tw table.Writer, rows int) string {
	if rows == 0 {
		return subtitleStyle.Render("暂无数据")
	}
	return tw.Render()
}

func progressBar(pct int) string {
	const cells = 10
	filled := pct * cells / 100
	if filled < 0 {
		filled = 0
	}
	if filled > cells {
		filled = cells
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", cells-filled) + fmt.Sprintf(" %d%%", pct)
}

// countChart draws a bar per key followed by a legend.
func countChart(counts []metrics.Count, width int) string {
	if len(counts) == 0 {
		return subtitleStyle.Render("暂无数据")
	}
	chart := barchart.New(width-4, 10)
	bars := make([]barchart.BarData, 0, len(counts))
	legend := make([]string, 0, len(counts))
	for i, c := range counts {
		style := lipgloss.NewStyle().Foreground(barColors[i%len(barColors)])
		bars = append(bars, barchart.BarData{
			Label:  c.Key,
			Values: []barchart.BarValue{{Name: c.Key, Value: float64(c.Count), Style: style}},
		})
		legend = append(legend, style.Render("●")+" "+fmt.Sprintf("%s ×%d", c.Key, c.Count))
	}
	chart.PushAll(bars)
	chart.Draw()
	return lipgloss.JoinVertical(lipgloss.Left, chart.View(), strings.Join(legend, "  "))
}
