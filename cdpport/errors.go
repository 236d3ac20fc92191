package cdpport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto"

	"github.com/pagewait/pagewait"
)

// staleMessages are the protocol error messages reported for node ids and
// objects that no longer belong to the live document.
var staleMessages = []string{
	"Could not find node with given id",
	"No node with given id found",
	"Node with given id does not belong to the document",
	"Node is detached from document",
	"Cannot find context with specified id",
	"Could not find object with given id",
}

// isStale reports whether err is a protocol error about a node that left
// the document.
func isStale(err error) bool {
	var e *cdproto.Error
	if !errors.As(err, &e) {
		return false
	}
	for _, m := range staleMessages {
		if strings.Contains(e.Message, m) {
			return true
		}
	}
	return false
}

// isCouldNotComputeBoxModelError unwraps err as a MessageError and determines
// if it is a compute box model error.
func isCouldNotComputeBoxModelError(err error) bool {
	var e *cdproto.Error
	return errors.As(err, &e) && e.Code == -32000 && e.Message == "Could not compute box model."
}

// wrap annotates err with op, marking stale node errors with
// pagewait.ErrStaleReference.
func wrap(op string, err error) error {
	if isStale(err) {
		return fmt.Errorf("cdpport: %s: %w: %w", op, pagewait.ErrStaleReference, err)
	}
	return fmt.Errorf("cdpport: %s: %w", op, err)
}
