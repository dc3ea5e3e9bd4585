package service

import "errors"

var (
	ErrPhoneAlreadyRegistered = errors.New("phone already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInviteCodeRequired     = errors.New("invite code required")
	ErrInviteCodeInvalid      = errors.New("invite code invalid or expired")
	ErrInviteCodeExhausted    = errors.New("invite code usage exhausted")
	ErrRefreshTokenInvalid    = errors.New("refresh token invalid or revoked")
	ErrUserNotFound           = errors.New("user not found")
	ErrUserDisabled           = errors.New("user is disabled")
	ErrWeakPassword           = errors.New("password too short")
	ErrUnknownDataset         = errors.New("unknown dataset")
	ErrConstituencyNotFound   = errors.New("constituency not found")
)
