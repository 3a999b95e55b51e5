package session

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/gocql/gocql"
)

// Error classes reported in metrics and logs.
const (
	ClassWriteTimeout = "write_timeout"
	ClassReadTimeout  = "read_timeout"
	ClassUnavailable  = "unavailable"
	ClassOverloaded   = "overloaded"
	ClassSyntax       = "syntax"
	ClassInvalid      = "invalid"
	ClassUnauthorized = "unauthorized"
	ClassUnprepared   = "unprepared"
	ClassTimeout      = "timeout"
	ClassConnection   = "connection"
	ClassOther        = "other"
)

// ClassifyError maps a driver error to a short class. It returns "" for nil.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	var reqErr gocql.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.Code() {
		case gocql.ErrCodeWriteTimeout, gocql.ErrCodeWriteFailure, gocql.ErrCodeCASWriteUnknown:
			return ClassWriteTimeout
		case gocql.ErrCodeReadTimeout, gocql.ErrCodeReadFailure:
			return ClassReadTimeout
		case gocql.ErrCodeUnavailable:
			return ClassUnavailable
		case gocql.ErrCodeOverloaded, gocql.ErrCodeBootstrapping:
			return ClassOverloaded
		case gocql.ErrCodeSyntax:
			return ClassSyntax
		case gocql.ErrCodeInvalid, gocql.ErrCodeConfig, gocql.ErrCodeAlreadyExists:
			return ClassInvalid
		case gocql.ErrCodeUnauthorized, gocql.ErrCodeCredentials:
			return ClassUnauthorized
		case gocql.ErrCodeUnprepared:
			return ClassUnprepared
		}
		return ClassOther
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, gocql.ErrTimeoutNoResponse) {
		return ClassTimeout
	}
	if errors.Is(err, gocql.ErrNoConnections) || errors.Is(err, gocql.ErrConnectionClosed) ||
		errors.Is(err, gocql.ErrNoConnectionsStarted) {
		return ClassConnection
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassConnection
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"connection reset by peer", "broken pipe", "connection refused", "no connections available"} {
		if strings.Contains(msg, fragment) {
			return ClassConnection
		}
	}
	return ClassOther
}

// IsTransient reports whether a connect attempt failing with err is worth retrying.
func IsTransient(err error) bool {
	switch ClassifyError(err) {
	case ClassSyntax, ClassInvalid, ClassUnauthorized, "":
		return false
	}
	return true
}
