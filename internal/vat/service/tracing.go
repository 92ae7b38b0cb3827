package service

import (
	vatdomain "github.com/smallbiznis/vatledger/internal/vat/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("vatledger/vat")

// endSpan marks the span failed for errors other than caller mistakes.
func endSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	if !vatdomain.IsValidation(err) {
		span.SetStatus(codes.Error, err.Error())
	}
}
