package service

import "errors"

// 服务层的业务错误。Handler 与 Hub 依据这些哨兵错误决定对外的表现。
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: email already exists")
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomNameTaken        = errors.New("room with this name already exists")
	ErrAlreadyParticipant   = errors.New("already a participant in this room")
	ErrInvalidRequest       = errors.New("invalid request data")
	ErrPersistenceFailed    = errors.New("failed to persist message")
	ErrInternalServer       = errors.New("internal server error")
)
