package service

import "errors"

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too short")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalid     = errors.New("session invalid")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidUserID      = errors.New("invalid user id")
)

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrProfileExists    = errors.New("profile already exists")
	ErrProfileForbidden = errors.New("profile belongs to another account")
	ErrInvalidProfile   = errors.New("invalid profile input")
)

var (
	ErrInvalidNotice      = errors.New("invalid notice input")
	ErrInvalidNoticeQuery = errors.New("invalid notice query")
	ErrNoticeForbidden    = errors.New("only faculty may post notices")
)
