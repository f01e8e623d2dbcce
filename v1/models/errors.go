package models

import "errors"

// Sentinel errors returned by the service layer. Handlers map these to HTTP
// status codes with errors.Is; anything unrecognized becomes a generic 500.
var (
	// ErrInvalidCredentials is deliberately vague so login failures do not
	// reveal whether the identifier exists.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountInactive is the one login failure that does reveal account
	// state. Inherited behavior; operators are aware of the inconsistency.
	ErrAccountInactive = errors.New("account is not active")

	ErrMemberNotFound        = errors.New("member not found")
	ErrDuplicateEmail        = errors.New("email already exists")
	ErrDuplicateMemberNumber = errors.New("member number already exists")
	ErrWrongCurrentPassword  = errors.New("current password is incorrect")
	ErrPasswordTooShort      = errors.New("new password must be at least 6 characters")
	ErrSelfDeletionForbidden = errors.New("admins cannot delete their own account")
	ErrInvalidFileType       = errors.New("file type not allowed")
	ErrFileTooLarge          = errors.New("file exceeds the upload size limit")
)
