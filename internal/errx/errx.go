package errx

import (
	"errors"
	"fmt"
)

// Kind classifies failures by how the core recovers from them.
type Kind int

const (
	KindUnknown Kind = iota
	// KindSource is a network, timeout or document-structure failure of one adapter.
	KindSource
	// KindRecord is one malformed catalog row or product tile.
	KindRecord
	// KindConfiguration is a shop config that fails to parse or validate.
	KindConfiguration
	// KindRateProvider is a failed live exchange-rate lookup.
	KindRateProvider
	// KindNotFound covers unknown shop ids and absent products.
	KindNotFound
)

var (
	ErrSource        = errors.New("source failure")
	ErrRecord        = errors.New("malformed record")
	ErrConfiguration = errors.New("invalid configuration")
	ErrRateProvider  = errors.New("rate provider failure")
	ErrNotFound      = errors.New("not found")
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindRecord:
		return "record"
	case KindConfiguration:
		return "configuration"
	case KindRateProvider:
		return "rate_provider"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindSource:
		return ErrSource
	case KindRecord:
		return ErrRecord
	case KindConfiguration:
		return ErrConfiguration
	case KindRateProvider:
		return ErrRateProvider
	case KindNotFound:
		return ErrNotFound
	}
	return nil
}

// Error wraps an underlying error with its kind and the shop/operation it came from.
type Error struct {
	Kind Kind
	Shop string
	Op   string
	Err  error
}

func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Shop != "" {
		prefix += " [" + e.Shop + "]"
	}
	if e.Op != "" {
		prefix += " " + e.Op
	}
	if e.Err == nil {
		return prefix
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind's sentinel, so errors.Is(err, errx.ErrNotFound) works on any wrapped Error.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func newError(kind Kind, shop, op string, err error) error {
	return &Error{Kind: kind, Shop: shop, Op: op, Err: err}
}

func Source(shop, op string, err error) error {
	return newError(KindSource, shop, op, err)
}

func Record(shop, op string, err error) error {
	return newError(KindRecord, shop, op, err)
}

func Configuration(shop, op string, err error) error {
	return newError(KindConfiguration, shop, op, err)
}

func RateProvider(op string, err error) error {
	return newError(KindRateProvider, "", op, err)
}

func NotFound(shop, what string) error {
	return newError(KindNotFound, shop, what, nil)
}

// KindOf returns the kind of the first Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
