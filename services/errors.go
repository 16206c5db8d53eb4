package services

import "errors"

// Ошибки движка матчей, используемые в сервисах и маппинге HTTP.
var (
	// Деньги
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidStake      = errors.New("stake is outside the allowed range")

	// Участие
	ErrAlreadyHasActiveMatch = errors.New("user already has an active match")
	ErrSlotUnavailable       = errors.New("no free slot on the requested side")
	ErrWrongPassword         = errors.New("wrong match password")
	ErrMatchNotJoinable      = errors.New("match is no longer accepting players")

	// Результат и выплаты
	ErrMatchNotInProgress  = errors.New("match is not in progress")
	ErrAlreadySubmitted    = errors.New("result proof was already submitted")
	ErrNotInReview         = errors.New("match is not awaiting human review")
	ErrAdjudicationTimeout = errors.New("adjudicator did not answer in time")
	ErrInvalidTransition   = errors.New("invalid match state transition")

	// Отмена
	ErrNotCancelable = errors.New("match can no longer be canceled")

	// Доступ
	ErrUnauthorized = errors.New("operation not allowed for the current user")

	// Валидация
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidMode      = errors.New("invalid match mode")
	ErrInvalidSide      = errors.New("invalid match side")
	ErrProofRequired    = errors.New("proof reference is required")
	ErrUnsupportedProof = errors.New("proof must be an image")
	ErrProofStorageOff  = errors.New("proof storage is not configured")

	// Не найдено
	ErrMatchNotFound   = errors.New("match not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)
