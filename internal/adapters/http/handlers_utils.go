package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/viralforge/sala-escrow/internal/application"
)

const maxBodyBytes = 1 << 20

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("request body must contain a single JSON object")
	}
	return nil
}

func writeDecodeError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	logHTTPOperationError(ctx, operation, http.StatusBadRequest, "INVALID_JSON", "invalid request body", err)
	writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
}

func writeMissingBearerError(ctx context.Context, w http.ResponseWriter, operation string) {
	logHTTPOperationError(ctx, operation, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, message := mapDomainError(err)
	logHTTPOperationError(ctx, operation, status, code, message, err)
	writeError(w, status, code, message)
}

func actorFromRequest(r *http.Request) application.Actor {
	principal, _ := principalFromContext(r.Context())
	return application.Actor{
		SubjectID:      principal.SubjectID,
		Role:           principal.Role,
		RequestID:      requestIDFromContext(r.Context()),
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	}
}
