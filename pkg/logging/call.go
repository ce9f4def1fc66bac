// pkg/logging/call.go
package logging

// callKind tags the accepted argument shapes of a severity operation.
type callKind int

const (
	callInvalid callKind = iota
	callMessage
	callContext
)

// call is a normalized severity-operation argument list.
type call struct {
	kind callKind
	msg  string
	ctx  Fields
}

// resolveCall maps an argument list onto one of the accepted shapes:
//
//	(msg string, ...)
//	(ctx Fields)
//	(ctx Fields, msg string, ...)
//
// Arguments after the message are ignored. Anything else is callInvalid and
// produces no record.
func resolveCall(args []any) call {
	if len(args) == 0 {
		return call{}
	}
	if msg, ok := args[0].(string); ok {
		return call{kind: callMessage, msg: msg}
	}
	ctx, ok := asFields(args[0])
	if !ok {
		return call{}
	}
	if len(args) == 1 {
		return call{kind: callContext, ctx: ctx}
	}
	msg, ok := args[1].(string)
	if !ok {
		return call{}
	}
	return call{kind: callContext, msg: msg, ctx: ctx}
}
