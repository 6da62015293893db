package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/go-faster/sdk/zctx"
)

// writeJSON renders the encoder's buffer with the given status code. Encoding
// happens fully in memory first, so a handler can never emit a half-written
// body.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError renders the standard error envelope {"code": ..., "message": ...}.
func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, &e)
}

// writeInternalError logs the cause and hides it from the client.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// money encodes a decimal amount as a JSON number with two fractional digits.
// Amounts are rounded before they reach the handlers, so the float round-trip
// is exact for any realistic price.
func money(e *jx.Encoder, field string, d decimal.Decimal) {
	e.FieldStart(field)
	e.Float64(d.InexactFloat64())
}

func timestamp(e *jx.Encoder, field string, t time.Time) {
	e.FieldStart(field)
	e.Str(t.UTC().Format(time.RFC3339))
}
