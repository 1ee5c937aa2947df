package core

import (
	"errors"
	"fmt"
)

// Kind 是错误类别，闭合枚举，调用方据此决定如何呈现错误。
type Kind string

const (
	KindArtifactMissing   Kind = "ARTIFACT_MISSING"    // 产物不存在或无法读取
	KindArtifactCorrupt   Kind = "ARTIFACT_CORRUPT"    // 产物反序列化失败
	KindUnknownTitle      Kind = "UNKNOWN_TITLE"       // 查询书名不在评分矩阵中
	KindImageLookupFailed Kind = "IMAGE_LOOKUP_FAILED" // 近邻书名找不到封面 URL
	KindTrainingFailed    Kind = "TRAINING_FAILED"     // 训练流程失败
)

// 模块名称常量
const (
	ModuleArtifact  = "artifact"
	ModuleStore     = "store"
	ModuleRecommend = "recommend"
	ModuleTrain     = "train"
)

// Error 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 携带足够的上下文（书名、产物名、底层原因），供调用方处理
//   - 支持 errors.Is / errors.As 透传底层原因
type Error struct {
	Kind     Kind   // 错误类别
	Module   string // 模块名称（如 "artifact", "recommend"）
	Artifact string // 相关产物名称（可选）
	Title    string // 相关书名（可选）
	Message  string // 错误消息
	Cause    error  // 底层原因（可选）
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Module != "" {
		msg = e.Module + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is 让 errors.Is(err, &Error{Kind: k}) 按类别匹配。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Title == "" && t.Artifact == "" && t.Cause == nil
}

// ErrArtifactMissing 等哨兵值仅用于 errors.Is 按类别判断。
var (
	ErrArtifactMissing   = &Error{Kind: KindArtifactMissing}
	ErrArtifactCorrupt   = &Error{Kind: KindArtifactCorrupt}
	ErrUnknownTitle      = &Error{Kind: KindUnknownTitle}
	ErrImageLookupFailed = &Error{Kind: KindImageLookupFailed}
	ErrTrainingFailed    = &Error{Kind: KindTrainingFailed}
)

// ArtifactMissing 创建产物缺失错误。
func ArtifactMissing(artifact string, cause error) *Error {
	return &Error{
		Kind:     KindArtifactMissing,
		Module:   ModuleArtifact,
		Artifact: artifact,
		Message:  fmt.Sprintf("artifact %q missing", artifact),
		Cause:    cause,
	}
}

// ArtifactCorrupt 创建产物损坏错误。
func ArtifactCorrupt(artifact string, cause error) *Error {
	return &Error{
		Kind:     KindArtifactCorrupt,
		Module:   ModuleArtifact,
		Artifact: artifact,
		Message:  fmt.Sprintf("artifact %q corrupt", artifact),
		Cause:    cause,
	}
}

// UnknownTitle 创建未知书名错误。
func UnknownTitle(title string) *Error {
	return &Error{
		Kind:    KindUnknownTitle,
		Module:  ModuleRecommend,
		Title:   title,
		Message: fmt.Sprintf("unknown title %q", title),
	}
}

// ImageLookupFailed 创建封面查找失败错误。
func ImageLookupFailed(title string) *Error {
	return &Error{
		Kind:    KindImageLookupFailed,
		Module:  ModuleRecommend,
		Title:   title,
		Message: fmt.Sprintf("no image url for title %q", title),
	}
}

// TrainingFailed 包装训练流程中的任意错误。
func TrainingFailed(cause error) *Error {
	return &Error{
		Kind:    KindTrainingFailed,
		Module:  ModuleTrain,
		Message: "training failed",
		Cause:   cause,
	}
}

// AsError 获取错误链中的第一个 *Error，如果没有则返回 nil
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// KindOf 返回错误链中第一个 *Error 的类别，不是领域错误时返回空串。
func KindOf(err error) Kind {
	if e := AsError(err); e != nil {
		return e.Kind
	}
	return ""
}

// 错误检查函数

func IsArtifactMissing(err error) bool   { return hasKind(err, KindArtifactMissing) }
func IsArtifactCorrupt(err error) bool   { return hasKind(err, KindArtifactCorrupt) }
func IsUnknownTitle(err error) bool      { return hasKind(err, KindUnknownTitle) }
func IsImageLookupFailed(err error) bool { return hasKind(err, KindImageLookupFailed) }
func IsTrainingFailed(err error) bool    { return hasKind(err, KindTrainingFailed) }

// hasKind 沿错误链查找指定类别，TrainingFailed 包装下的 ArtifactMissing 也能被识别。
func hasKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}
