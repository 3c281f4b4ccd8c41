package dwf

/*
#cgo CFLAGS: -I/usr/include -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -ldwf
#include <dwf.h>
*/
import "C"

import "fmt"

// ERC is an SDK error code
type ERC int

// ErrCodes maps SDK error codes to their names
var ErrCodes = map[ERC]string{
	0:  "DWFERC_NO_ERC",
	1:  "DWFERC_UNKNOWN_ERROR",
	2:  "DWFERC_API_LOCK_TIMEOUT",
	3:  "DWFERC_ALREADY_OPENED",
	4:  "DWFERC_NOT_SUPPORTED",
	16: "DWFERC_INVALID_PARAMETER_0",
	17: "DWFERC_INVALID_PARAMETER_1",
	18: "DWFERC_INVALID_PARAMETER_2",
	19: "DWFERC_INVALID_PARAMETER_3",
	20: "DWFERC_INVALID_PARAMETER_4",
}

func (e ERC) String() string {
	if s, ok := ErrCodes[e]; ok {
		return fmt.Sprintf("%d - %s", int(e), s)
	}
	return fmt.Sprintf("%d - UNKNOWN_ERROR_CODE", int(e))
}

// SDKError is a failed SDK call with the vendor's last-error code and message
type SDKError struct {
	Code    ERC
	Message string
}

// Error satisfies the error interface
func (e SDKError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// lastError pulls the error code and message for the most recent failed call
// out of the SDK
func lastError() error {
	var erc C.DWFERC
	C.FDwfGetLastError(&erc)
	var buf [512]C.char
	C.FDwfGetLastErrorMsg(&buf[0])
	msg := C.GoString(&buf[0])
	if msg == "" {
		msg = "no error message available"
	}
	return SDKError{Code: ERC(erc), Message: msg}
}

// enrich wraps an error in the name of the SDK function that produced it
func enrich(err error, fn string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fn, err)
}
