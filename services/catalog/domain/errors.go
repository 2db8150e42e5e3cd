// Package domain holds the catalog error taxonomy and is the root of the
// bounded context. Use errors.Is() against the class sentinels to decide how
// a failure is reported; every specific error below wraps exactly one class.
package domain

import (
	"errors"
	"fmt"
)

// Error classes. All of them are recoverable at the session level: the
// failure is reported to the client and the connection stays open.
var (
	// ErrValidation indicates a malformed or out-of-range argument.
	ErrValidation = errors.New("validation failed")

	// ErrPermission indicates a missing authentication or an ownership violation.
	ErrPermission = errors.New("permission denied")

	// ErrNotFound indicates a referenced identity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPersistence indicates a backend transaction failure. The in-memory
	// collection must be left untouched when this is returned.
	ErrPersistence = errors.New("persistence failure")

	// ErrProtocol indicates a malformed or unknown wire request.
	ErrProtocol = errors.New("protocol error")

	// ErrUnknownCommand indicates a command name absent from the registry.
	ErrUnknownCommand = errors.New("unknown command")
)

// Specific sentinels. Each wraps its class so errors.Is matches both.
var (
	ErrNotAuthenticated   = fmt.Errorf("%w: authentication required", ErrPermission)
	ErrNotOwner           = fmt.Errorf("%w: only the creator may modify this product", ErrPermission)
	ErrAlreadyAuthorized  = fmt.Errorf("%w: user already authorized on another connection", ErrPermission)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrPermission)
	ErrStaleCredentials   = fmt.Errorf("%w: credential hash does not match the active session", ErrPermission)

	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("%w: product", ErrNotFound)

	ErrUsernameTaken         = fmt.Errorf("%w: username already exists", ErrValidation)
	ErrPartNumberTaken       = fmt.Errorf("%w: part number already exists", ErrValidation)
	ErrOrganizationNameTaken = fmt.Errorf("%w: organization full name already exists", ErrValidation)

	ErrScriptRecursion  = fmt.Errorf("%w: script is already executing (recursion detected)", ErrValidation)
	ErrScriptNotAllowed = fmt.Errorf("%w: command is not permitted inside a script", ErrValidation)
)
