package models

// Result status codes. The engine convention follows HTTP loosely:
// 200 executed successfully, 301 skipped because the node's match
// condition was not met, 500 failed.
const (
	StatusSuccess = 200
	StatusSkipped = 301
	StatusFailed  = 500
)

// Result is the durable record of one node's execution outcome at a
// given step index. Results are append-only: once written at an index
// they are never edited.
type Result struct {
	NodeID  string `json:"node_id"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`

	// Deferred is set by delay-type behaviors that already scheduled
	// the next advance themselves; the state machine must not request
	// an immediate continuation after such a result.
	Deferred bool `json:"deferred,omitempty"`
}

// IsSuccess reports whether the node executed successfully.
func (r *Result) IsSuccess() bool {
	return r.Code == StatusSuccess
}

// Consumed reports whether the result consumes its step slot and
// execution may proceed. Skips consume their step like successes do.
func (r *Result) Consumed() bool {
	return r.Code == StatusSuccess || r.Code == StatusSkipped
}

// SuccessResult builds a 200 result for a node.
func SuccessResult(nodeID, message string) *Result {
	return &Result{NodeID: nodeID, Code: StatusSuccess, Message: message}
}

// SkippedResult builds a 301 result for a node whose match condition
// was not met.
func SkippedResult(nodeID string) *Result {
	return &Result{NodeID: nodeID, Code: StatusSkipped, Message: "skipped, condition not met"}
}

// FailedResult builds a 500 result for a node.
func FailedResult(nodeID, message string) *Result {
	return &Result{NodeID: nodeID, Code: StatusFailed, Message: message}
}
