package models

import "errors"

// Ошибки домена. Обработчики HTTP сопоставляют их со статусами ответа.
var (
	ErrDuplicateUser         = errors.New("user with this email already exists")
	ErrInvalidCredentials    = errors.New("incorrect email or password")
	ErrAccountNotVerified    = errors.New("account is not verified")
	ErrAccountDisabled       = errors.New("account is disabled")
	ErrUnauthorized          = errors.New("could not validate credentials")
	ErrForbidden             = errors.New("access denied")
	ErrRoleNotAllowed        = errors.New("role is not allowed for self-registration")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrAlreadyVerified       = errors.New("email already verified")
	ErrStageNotComplete      = errors.New("current stage is not complete")
	ErrNotFound              = errors.New("not found")
	ErrValidation            = errors.New("validation error")

	ErrProjectExists     = errors.New("project with this name already exists")
	ErrAcceleratorExists = errors.New("accelerator for this university already exists")
	ErrProfileExists     = errors.New("profile already exists")
	ErrStageConflict     = errors.New("tracker position changed concurrently")
)
