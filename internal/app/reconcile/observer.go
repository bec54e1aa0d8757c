package reconcile

import "github.com/John-Robertt/vnmeta/internal/provider"

// State 是一次聚合所处的阶段。
type State string

const (
	StateIdle                State = "idle"
	StateStage1Fetching      State = "stage1_fetching"
	StateDerivingIdentifiers State = "deriving_identifiers"
	StateStage2Fetching      State = "stage2_fetching"
	StateScoring             State = "scoring"
	StateMerging             State = "merging"
	StateDone                State = "done"
)

// Observer 用于把“阶段切换/来源结果”从编排流程中解耦出来。
//
// 约束：
// - reconcile 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 实现必须并发安全：OnSourceDone 可能来自多个 goroutine
type Observer interface {
	// OnState 按固定顺序调用，每次聚合从 StateIdle 开始、以 StateDone 结束。
	OnState(requestID string, s State)
	// OnSourceDone 在每个来源调用结束（或被跳过）时调用。
	OnSourceDone(requestID string, a provider.Attempt)
}
