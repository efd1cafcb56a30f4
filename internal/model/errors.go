package model

import "errors"

var (
	// Store related errors
	ErrKeyNotFound = errors.New("key not found")

	// Registry related errors
	ErrFileNotFound  = errors.New("file not found")
	ErrGrantNotFound = errors.New("grant not found")

	// Transfer related errors
	ErrTransferNotFound = errors.New("transfer not found")

	// Ledger related errors
	ErrRecordNotFound = errors.New("audit record not found")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
