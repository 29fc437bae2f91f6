package bemis

import (
	"context"
	"fmt"
	"log/slog"

	"bemisreg-backend/lib/htmlutil"

	"go.opentelemetry.io/otel/codes"
)

// FetchFormToken retrieves the one-time anti-forgery token embedded as a
// hidden input in the portal's "create student" modal. The portal may
// rotate or single-use this token, so a fresh fetch is required before
// every submission.
func (c *Client) FetchFormToken(ctx context.Context, session, headerToken, schoolId string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:FetchFormToken")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("schoolid", schoolId).
		SetHeader("cookie", session).
		SetHeader(headerVerificationToken, headerToken).
		Get(studentCreateModalPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch create student modal")
		return "", err
	}
	if !res.IsSuccess() {
		err := fmt.Errorf(
			"failed to fetch create student modal: status %d, url %s",
			res.StatusCode(), res.Request.URL,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return "", err
	}

	token, ok := c.ExtractToken(res.Body(), VerificationTokenField)
	if !ok {
		// usually a malformed/expired session or a markup schema change
		// upstream; keep a snippet around for operators
		slog.WarnContext(
			ctx, "verification token missing from modal markup",
			"field", VerificationTokenField,
			"snippet", htmlutil.Snippet(res.Body(), 1000),
		)
		err := fmt.Errorf(
			"could not extract %q from the modal markup, url %s",
			VerificationTokenField, res.Request.URL,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "token not found")
		return "", err
	}

	return token, nil
}
