package soroban

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"
)

// ErrUnexpectedFormat is returned when a return value is neither a number nor an error.
var ErrUnexpectedFormat = errors.New("Unexpected response format")

// Raw is what an invocation hands back before decoding: either a return value or a failure
// reported by the node. Hash is set for submitted transactions.
type Raw struct {
	Value   *xdr.ScVal
	Failure string
	Hash    string
}

// Result is the decoded outcome of a contract call: a numeric value or a contract error.
type Result struct {
	err   *ContractError
	value uint64
}

// Ok wraps a successful value.
func Ok(v uint64) Result { return Result{value: v} }

// Err wraps a contract error.
func Err(e *ContractError) Result { return Result{err: e} }

// IsErr reports whether the call failed on chain.
func (r Result) IsErr() bool { return r.err != nil }

// Unwrap returns the value; it is zero for error results.
func (r Result) Unwrap() uint64 { return r.value }

// UnwrapErr returns the contract error, or nil for successful results.
func (r Result) UnwrapErr() *ContractError { return r.err }

// ContractError is a failure reported by the contract or the host while running it.
type ContractError struct {
	// Code is the contract-defined error number when one could be recovered.
	Code    *uint32
	Message string
}

func (e *ContractError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != nil {
		return fmt.Sprintf("contract error #%d", *e.Code)
	}
	return "contract call failed"
}

var contractCodePattern = regexp.MustCompile(`Error\(Contract, #(\d+)\)`)

// Decode turns Raw into a Result. Both the read and the write path go through here.
func Decode(raw Raw) (Result, error) {
	if raw.Value == nil {
		if raw.Failure == "" {
			return Result{}, ErrUnexpectedFormat
		}
		return Err(failureError(raw.Failure)), nil
	}

	v := raw.Value
	switch v.Type {
	case xdr.ScValTypeScvU32:
		return Ok(uint64(*v.U32)), nil
	case xdr.ScValTypeScvI32:
		if *v.I32 < 0 {
			return Result{}, ErrUnexpectedFormat
		}
		return Ok(uint64(*v.I32)), nil
	case xdr.ScValTypeScvU64:
		return Ok(uint64(*v.U64)), nil
	case xdr.ScValTypeScvI64:
		if *v.I64 < 0 {
			return Result{}, ErrUnexpectedFormat
		}
		return Ok(uint64(*v.I64)), nil
	case xdr.ScValTypeScvError:
		return Err(scError(v.Error)), nil
	default:
		return Result{}, ErrUnexpectedFormat
	}
}

func failureError(failure string) *ContractError {
	e := &ContractError{Message: failure}
	if m := contractCodePattern.FindStringSubmatch(failure); len(m) == 2 {
		if n, err := strconv.ParseUint(m[1], 10, 32); err == nil {
			code := uint32(n)
			e.Code = &code
		}
	}
	return e
}

func scError(se *xdr.ScError) *ContractError {
	if se == nil {
		return &ContractError{}
	}
	if se.Type == xdr.ScErrorTypeSceContract && se.ContractCode != nil {
		code := uint32(*se.ContractCode)
		return &ContractError{Code: &code}
	}
	if se.Code != nil {
		return &ContractError{Message: fmt.Sprintf("host error %s: %s", se.Type, *se.Code)}
	}
	return &ContractError{Message: fmt.Sprintf("host error %s", se.Type)}
}
