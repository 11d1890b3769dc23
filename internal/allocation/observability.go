package allocation

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mintgate/internal/allocation/models"
	"mintgate/internal/ledger"
	dErrors "mintgate/pkg/domain-errors"
)

func (e *Engine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (e *Engine) endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("mintgate.error_code", string(codeOf(err))))
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
	}
	span.End()
}

func codeOf(err error) dErrors.Code {
	return dErrors.CodeOf(err)
}

// translateLedgerError gives ledger failures a rejection code while keeping
// the ledger's error in the chain for errors.Is.
func translateLedgerError(err error) error {
	var coded *dErrors.Error
	switch {
	case errors.Is(err, ledger.ErrDuplicateIdentifier):
		return dErrors.Wrap(err, models.CodeDuplicateIdentifier, "identifier already allocated")
	case errors.Is(err, ledger.ErrInvalidRecipient):
		return dErrors.Wrap(err, models.CodeInvalidRecipient, "invalid recipient")
	case errors.Is(err, ledger.ErrUnknownIdentifier):
		return dErrors.Wrap(err, models.CodeUnknownIdentifier, "unknown identifier")
	case errors.As(err, &coded):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "ledger call failed")
	}
}
