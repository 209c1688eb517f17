package errs

import "errors"

// Error kinds for the analysis pipeline. Call sites wrap these with
// fmt.Errorf("...: %w", ...) so the HTTP layer can classify with errors.Is
// without seeing upstream detail.
var (
	// ErrUpstreamUnavailable covers network failures and non-2xx responses
	// from the exchange, news, or model endpoints.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedPayload covers upstream responses with an unexpected shape.
	ErrMalformedPayload = errors.New("malformed upstream payload")

	// ErrModelOutputUnparseable means no JSON was found in the model output,
	// or the candidate failed strict parsing.
	ErrModelOutputUnparseable = errors.New("model output unparseable")

	// ErrInsufficientHistory is non-fatal; indicator code substitutes
	// neutral defaults instead of returning it for short series.
	ErrInsufficientHistory = errors.New("insufficient candle history")

	// ErrInvalidRequest marks bad input at the inbound API boundary.
	ErrInvalidRequest = errors.New("invalid request")
)
