package riichi

import (
	"errors"
	"fmt"
)

// ErrKind 错误类别，调用层据此决定拒绝方式
type ErrKind int32

const (
	ErrKindValidation ErrKind = iota + 1 // 参数校验失败，未追加任何事件
	ErrKindState                         // 当前阶段不允许该操作
	ErrKindStore                         // 持久化失败，可重试，状态未生效
)

// Error 引擎错误，带类别与错误码
type Error struct {
	Kind    ErrKind
	Code    int32
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// 错误码定义
const (
	CodeInvalidSeat     int32 = 20001
	CodeInvalidHanFu    int32 = 20002
	CodeSameWinnerLoser int32 = 20003
	CodeTsumoLoser      int32 = 20004
	CodeRonNoLoser      int32 = 20005
	CodeAlreadyReach    int32 = 20006
	CodeNotEnoughPoints int32 = 20007
	CodeReachNotTenpai  int32 = 20008
	CodeInvalidReason   int32 = 20009
	CodeDuplicateTenpai int32 = 20010
	CodeMatchFinished   int32 = 21001
	CodeMatchNotPlaying int32 = 21002
	CodeEmptyLog        int32 = 21003
	CodeUndoAfterUndo   int32 = 21004
	CodeStoreAppend     int32 = 22001
	CodeCorruptedLog    int32 = 22002
)

var (
	ErrInvalidSeat     = &Error{Kind: ErrKindValidation, Code: CodeInvalidSeat, Message: "invalid seat"}
	ErrInvalidHanFu    = &Error{Kind: ErrKindValidation, Code: CodeInvalidHanFu, Message: "invalid han/fu combination"}
	ErrSameWinnerLoser = &Error{Kind: ErrKindValidation, Code: CodeSameWinnerLoser, Message: "winner and loser must differ"}
	ErrTsumoLoser      = &Error{Kind: ErrKindValidation, Code: CodeTsumoLoser, Message: "tsumo win must not carry a loser"}
	ErrRonNoLoser      = &Error{Kind: ErrKindValidation, Code: CodeRonNoLoser, Message: "ron win requires a loser"}
	ErrAlreadyReach    = &Error{Kind: ErrKindValidation, Code: CodeAlreadyReach, Message: "seat already declared riichi"}
	ErrNotEnoughPoints = &Error{Kind: ErrKindValidation, Code: CodeNotEnoughPoints, Message: "not enough points for riichi"}
	ErrReachNotTenpai  = &Error{Kind: ErrKindValidation, Code: CodeReachNotTenpai, Message: "riichi seat missing from tenpai seats"}
	ErrInvalidReason   = &Error{Kind: ErrKindValidation, Code: CodeInvalidReason, Message: "invalid draw reason"}
	ErrDuplicateTenpai = &Error{Kind: ErrKindValidation, Code: CodeDuplicateTenpai, Message: "duplicate tenpai seat"}

	ErrMatchFinished   = &Error{Kind: ErrKindState, Code: CodeMatchFinished, Message: "match already finished"}
	ErrMatchNotPlaying = &Error{Kind: ErrKindState, Code: CodeMatchNotPlaying, Message: "match not in playing phase"}
	ErrEmptyLog        = &Error{Kind: ErrKindState, Code: CodeEmptyLog, Message: "event log is empty"}
	ErrUndoAfterUndo   = &Error{Kind: ErrKindState, Code: CodeUndoAfterUndo, Message: "last event is already an undo"}
)

// NewStoreError 包装持久化失败，调用方可重试
func NewStoreError(err error) *Error {
	return &Error{Kind: ErrKindStore, Code: CodeStoreAppend, Message: "append event failed", Err: err}
}

// NewCorruptedLogError 日志折叠失败，说明存储内容被破坏
func NewCorruptedLogError(err error) *Error {
	return &Error{Kind: ErrKindStore, Code: CodeCorruptedLog, Message: "event log corrupted", Err: err}
}

// KindOf 取错误类别，非引擎错误按可重试的存储错误处理
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindStore
}

// CodeOf 取错误码
func CodeOf(err error) int32 {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStoreAppend
}

// IsRetryable 是否为可重试错误
func IsRetryable(err error) bool {
	return KindOf(err) == ErrKindStore
}
