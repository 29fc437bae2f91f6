package bemis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"bemisreg-backend/lib/cookieutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const contentTypeFormUrlencoded = "application/x-www-form-urlencoded"

var submitMeter = otel.Meter("scrapers/bemis")
var submitCounter, _ = submitMeter.Int64Counter("student_submissions")

// Result is the normalized verdict of one submission attempt. The
// portal's raw HTTP outcome is ambiguous (302 can mean either success or
// an expired session), so callers only ever see this shape.
type Result struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func failure(status int, message string) Result {
	return Result{Success: false, Status: status, Message: message}
}

// Submit replays the portal's student creation form for one record. It
// never returns an error: every failure mode, including unexpected ones,
// is folded into a failure Result. Nothing is retried and no local state
// is mutated.
func (c *Client) Submit(ctx context.Context, record StudentRecord, schoolId string) Result {
	ctx, span := tracer.Start(ctx, "client:Submit")
	defer span.End()
	span.SetAttributes(attribute.String("school_id", schoolId))

	result := c.submit(ctx, record, schoolId)

	submitCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", result.Success),
		attribute.Int("status", result.Status),
	))
	if !result.Success {
		span.SetStatus(codes.Error, result.Message)
	}
	return result
}

func (c *Client) submit(ctx context.Context, record StudentRecord, schoolId string) Result {
	session, err := c.Sessions.Session(ctx)
	if err != nil {
		return failure(500, err.Error())
	}

	headerToken, ok := cookieutil.Extract(session, XsrfCookieName)
	if !ok {
		return failure(500, fmt.Sprintf(
			"failed to extract %s from the stored session cookie, paste a fresh session cookie in Settings",
			XsrfCookieName,
		))
	}

	// the page-level token is fetched fresh on every attempt, the portal
	// may rotate or single-use it
	formToken, err := c.FetchFormToken(ctx, session, headerToken, schoolId)
	if err != nil {
		return failure(500, err.Error())
	}

	payload := BuildPayload(record, schoolId, formToken)

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("cookie", session).
		SetHeader("content-type", contentTypeFormUrlencoded).
		SetHeader(headerXsrfToken, headerToken).
		SetHeader("accept", acceptJsonTextAny).
		SetBody(payload.Encode()).
		Post(studentCreateModalPath)
	if err != nil {
		return failure(500, fmt.Sprintf("form submission request failed: %s", err))
	}

	return c.classify(ctx, res)
}

func (c *Client) classify(ctx context.Context, res *resty.Response) Result {
	status := res.StatusCode()
	body := res.Body()

	switch status {
	case 200, 204:
		result := Result{
			Success: true,
			Status:  status,
			Message: fmt.Sprintf("student data submitted successfully (%s)", res.Status()),
		}
		if len(body) > 0 {
			result.Data = string(body)
		}
		slog.InfoContext(ctx, "submission accepted", "status", status)
		return result

	case 302:
		location := res.Header().Get("Location")
		success, reason := classifyRedirect(c.Verdicts, location)
		message := fmt.Sprintf("submission redirected (302) to %q: %s", location, reason)
		if !success {
			slog.WarnContext(ctx, "submission redirected to login", "location", location)
			return failure(status, message)
		}
		slog.InfoContext(ctx, "submission redirected", "location", location)
		result := Result{Success: true, Status: status, Message: message}
		if len(body) > 0 {
			result.Data = string(body)
		}
		return result
	}

	contentType := res.Header().Get("Content-Type")
	if status == 400 || strings.Contains(contentType, "application/json") {
		var parsed map[string]any
		err := json.Unmarshal(body, &parsed)
		if err == nil {
			message, _ := parsed["message"].(string)
			if message == "" {
				message, _ = parsed["details"].(string)
			}
			if message == "" {
				message = fmt.Sprintf("form submission failed with status %d", status)
			}
			slog.WarnContext(ctx, "portal rejected submission", "status", status, "message", message)
			result := failure(status, message)
			result.Data = parsed
			return result
		}
		slog.WarnContext(ctx, "expected a JSON error body but could not parse it", "status", status)
	}

	excerpt := string(body)
	if len(excerpt) > 200 {
		excerpt = excerpt[:200]
	}
	slog.ErrorContext(ctx, "unexpected submission response", "status", status, "body", excerpt)
	return failure(status, fmt.Sprintf(
		"form submission failed with status %d: %s", status, excerpt,
	))
}
