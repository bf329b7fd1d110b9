package solana

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// TransactionErrorKey identifies a transaction level failure. The values
// match the RPC "err" field.
type TransactionErrorKey string

const (
	TransactionErrorAccountLoadedTwice     TransactionErrorKey = "AccountLoadedTwice"
	TransactionErrorDuplicateSignature     TransactionErrorKey = "DuplicateSignature"
	TransactionErrorAccountNotFound        TransactionErrorKey = "AccountNotFound"
	TransactionErrorProgramAccountNotFound TransactionErrorKey = "ProgramAccountNotFound"
	TransactionErrorInvalidAccountIndex    TransactionErrorKey = "InvalidAccountIndex"
	TransactionErrorSignatureFailure       TransactionErrorKey = "SignatureFailure"
	TransactionErrorSanitizeFailure        TransactionErrorKey = "SanitizeFailure"

	// TransactionErrorInstructionError wraps the failure of a single
	// instruction. See InstructionError.
	TransactionErrorInstructionError TransactionErrorKey = "InstructionError"
)

// InstructionErrorKey is a program failure. Keys are errors themselves, so a
// program returns InstructionErrorInvalidSeeds directly.
//
// Values follow sdk/program/src/instruction.rs in the Solana repo.
type InstructionErrorKey string

const (
	InstructionErrorGenericError              InstructionErrorKey = "GenericError"
	InstructionErrorInvalidArgument           InstructionErrorKey = "InvalidArgument"
	InstructionErrorInvalidInstructionData    InstructionErrorKey = "InvalidInstructionData"
	InstructionErrorInvalidAccountData        InstructionErrorKey = "InvalidAccountData"
	InstructionErrorAccountDataTooSmall       InstructionErrorKey = "AccountDataTooSmall"
	InstructionErrorInsufficientFunds         InstructionErrorKey = "InsufficientFunds"
	InstructionErrorIncorrectProgramID        InstructionErrorKey = "IncorrectProgramId"
	InstructionErrorMissingRequiredSignature  InstructionErrorKey = "MissingRequiredSignature"
	InstructionErrorAccountAlreadyInitialized InstructionErrorKey = "AccountAlreadyInitialized"
	InstructionErrorUninitializedAccount      InstructionErrorKey = "UninitializedAccount"
	InstructionErrorUnbalancedInstruction     InstructionErrorKey = "UnbalancedInstruction"
	InstructionErrorModifiedProgramID         InstructionErrorKey = "ModifiedProgramId"
	InstructionErrorReadonlyLamportChange     InstructionErrorKey = "ReadonlyLamportChange"
	InstructionErrorReadonlyDataModified      InstructionErrorKey = "ReadonlyDataModified"
	InstructionErrorNotEnoughAccountKeys      InstructionErrorKey = "NotEnoughAccountKeys"
	InstructionErrorAccountNotExecutable      InstructionErrorKey = "AccountNotExecutable"
	InstructionErrorCustom                    InstructionErrorKey = "Custom"
	InstructionErrorUnsupportedProgramID      InstructionErrorKey = "UnsupportedProgramId"
	InstructionErrorCallDepth                 InstructionErrorKey = "CallDepth"
	InstructionErrorMissingAccount            InstructionErrorKey = "MissingAccount"
	InstructionErrorReentrancyNotAllowed      InstructionErrorKey = "ReentrancyNotAllowed"
	InstructionErrorMaxSeedLengthExceeded     InstructionErrorKey = "MaxSeedLengthExceeded"
	InstructionErrorInvalidSeeds              InstructionErrorKey = "InvalidSeeds"
	InstructionErrorInvalidRealloc            InstructionErrorKey = "InvalidRealloc"
	InstructionErrorPrivilegeEscalation       InstructionErrorKey = "PrivilegeEscalation"
	InstructionErrorIllegalOwner              InstructionErrorKey = "IllegalOwner"
	InstructionErrorArithmeticOverflow        InstructionErrorKey = "ArithmeticOverflow"
	InstructionErrorInvalidAccountOwner       InstructionErrorKey = "InvalidAccountOwner"

	InstructionErrorExternalAccountDataModified InstructionErrorKey = "ExternalAccountDataModified"
	InstructionErrorExternalAccountLamportSpend InstructionErrorKey = "ExternalAccountLamportSpend"
)

func (k InstructionErrorKey) Error() string {
	return string(k)
}

// CustomError is the numerical error returned by a non-system program.
type CustomError int

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: %x", int(c))
}

// ProgramErrorOf resolves the typed program failure behind err. Context
// added with errors.Wrap is stripped. Untyped failures collapse into
// InstructionErrorGenericError.
func ProgramErrorOf(err error) error {
	if err == nil {
		return nil
	}

	switch cause := errors.Cause(err).(type) {
	case InstructionErrorKey:
		return cause
	case CustomError:
		return cause
	default:
		return InstructionErrorGenericError
	}
}

// InstructionError is the failure of the instruction at Index.
type InstructionError struct {
	Index int
	Err   error
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", i.Index, i.Err)
}

// ErrorKey returns the key of Err, which is InstructionErrorCustom for
// program specific codes.
func (i InstructionError) ErrorKey() InstructionErrorKey {
	switch err := i.Err.(type) {
	case nil:
		return ""
	case CustomError:
		return InstructionErrorCustom
	default:
		return InstructionErrorKey(err.Error())
	}
}

// CustomError returns the program specific code, if Err is one.
func (i InstructionError) CustomError() *CustomError {
	if code, ok := i.Err.(CustomError); ok {
		return &code
	}
	return nil
}

// JSONString renders the error as the RPC tuple, e.g. [0, "InvalidSeeds"].
func (i InstructionError) JSONString() string {
	if code := i.CustomError(); code != nil {
		return fmt.Sprintf(`[%d, {"%s": %d}]`, i.Index, InstructionErrorCustom, int(*code))
	}
	return fmt.Sprintf(`[%d, "%s"]`, i.Index, i.Err.Error())
}

// raw returns the error in its decoded RPC JSON form.
func (i InstructionError) raw() interface{} {
	var detail interface{} = string(i.ErrorKey())
	if code := i.CustomError(); code != nil {
		detail = map[string]interface{}{string(InstructionErrorCustom): float64(*code)}
	}
	return []interface{}{float64(i.Index), detail}
}

// TransactionError is a failed transaction, as reported over RPC in the "err"
// field of a transaction status.
type TransactionError struct {
	key              TransactionErrorKey
	instructionError *InstructionError
	raw              interface{}
}

// NewTransactionError returns a transaction level error.
func NewTransactionError(key TransactionErrorKey) *TransactionError {
	return &TransactionError{key: key, raw: string(key)}
}

// TransactionErrorFromInstructionError returns the transaction error for a
// failed instruction.
func TransactionErrorFromInstructionError(err *InstructionError) *TransactionError {
	return &TransactionError{
		key:              TransactionErrorInstructionError,
		instructionError: err,
		raw: map[string]interface{}{
			string(TransactionErrorInstructionError): err.raw(),
		},
	}
}

// ParseTransactionError parses a decoded "err" field. A nil value is no error.
//
// Unknown shapes yield a best-effort error along with the parse failure.
func ParseTransactionError(raw interface{}) (*TransactionError, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &TransactionError{key: TransactionErrorKey(v), raw: raw}, nil
	case map[string]interface{}:
		unhandled := &TransactionError{key: "unhandled transaction error", raw: raw}

		key, value, err := soleEntry(v)
		if err != nil {
			return unhandled, errors.Wrap(err, "invalid transaction error")
		}
		if key != string(TransactionErrorInstructionError) {
			return &TransactionError{key: TransactionErrorKey(key), raw: raw}, nil
		}

		ie, err := parseInstructionError(value)
		if err != nil {
			return unhandled, errors.Wrap(err, "failed to parse instruction error")
		}
		return &TransactionError{
			key:              TransactionErrorInstructionError,
			instructionError: ie,
			raw:              raw,
		}, nil
	default:
		return nil, errors.Errorf("unhandled error type %T", raw)
	}
}

func (t TransactionError) Error() string {
	if t.instructionError != nil {
		return t.instructionError.Error()
	}
	return string(t.key)
}

func (t TransactionError) ErrorKey() TransactionErrorKey {
	return t.key
}

// InstructionError returns the failed instruction, or nil for transaction
// level errors.
func (t TransactionError) InstructionError() *InstructionError {
	return t.instructionError
}

func (t TransactionError) JSONString() (string, error) {
	b, err := json.Marshal(t.raw)
	return string(b), err
}

// parseInstructionError parses an [index, detail] tuple, where detail is a
// key or {"Custom": code}.
func parseInstructionError(v interface{}) (*InstructionError, error) {
	tuple, ok := v.([]interface{})
	if !ok || len(tuple) != 2 {
		return nil, errors.Errorf("malformed instruction error tuple: %v", v)
	}

	index, err := parseJSONNumber(tuple[0])
	if err != nil {
		return nil, err
	}
	ie := &InstructionError{Index: index}

	switch detail := tuple[1].(type) {
	case string:
		ie.Err = InstructionErrorKey(detail)
	case map[string]interface{}:
		key, value, err := soleEntry(detail)
		if err != nil {
			return nil, err
		}
		if key != string(InstructionErrorCustom) {
			ie.Err = InstructionErrorKey(key)
			break
		}

		code, err := parseJSONNumber(value)
		if err != nil {
			return nil, errors.Wrap(err, "invalid custom error code")
		}
		ie.Err = CustomError(code)
	default:
		return nil, errors.Errorf("unhandled instruction error detail: %v", detail)
	}

	return ie, nil
}

func soleEntry(m map[string]interface{}) (string, interface{}, error) {
	if len(m) != 1 {
		return "", nil, errors.Errorf("expected a single entry, got %d", len(m))
	}
	for k, v := range m {
		return k, v, nil
	}
	panic("unreachable")
}

// parseJSONNumber accepts the number encodings produced by the various json
// decoders, and numeric strings.
func parseJSONNumber(v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, errors.Wrapf(err, "non integer value %v", v)
		}
		return int(i), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "non numeric value %v", v)
		}
		return int(i), nil
	default:
		return 0, errors.Errorf("non numeric value %v", v)
	}
}
