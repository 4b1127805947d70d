package util

import "errors"

var (
	ErrUserNotFound         = errors.New("用户不存在")
	ErrEmailRegistered      = errors.New("该邮箱已被注册")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrTextNotFound         = errors.New("text not found")
	ErrTextNotActive        = errors.New("text not available")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrQuizAlreadyExists    = errors.New("quiz already generated for this text")
	ErrQuizAlreadyTaken     = errors.New("quiz already completed, retakes are not allowed")
	ErrAnswerCountMismatch  = errors.New("answer count does not match question count")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrMaterialNotFound     = errors.New("material not found")
	ErrRequestNotFound      = errors.New("material request not found")
	ErrInvalidMaterialType  = errors.New("invalid material type")
	ErrGenerationInProgress = errors.New("a generation request for this material is already in progress")
	ErrSessionNotFound      = errors.New("study session not found")
	ErrSessionClosed        = errors.New("study session already ended")
)
