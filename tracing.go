package docexport

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/porticus-lab/go-docexport"

// Span attribute keys.
var (
	attrBackend = attribute.Key("docexport.backend")
	attrRunID   = attribute.Key("docexport.run_id")
	attrURL     = attribute.Key("docexport.url")
	attrPath    = attribute.Key("docexport.path")
	attrBytes   = attribute.Key("docexport.bytes")
	attrPages   = attribute.Key("docexport.pages")
)

// endSpan records err, if any, and ends span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
