package bemis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSession   = ".AspNetCore.Session=sess-value; XSRF-TOKEN=xsrf123; theme=dark"
	testFormToken = "TOK123"
	testSchoolId  = "1001"
)

type staticSession string

func (s staticSession) Session(ctx context.Context) (string, error) {
	return string(s), nil
}

type failingSession struct{}

func (failingSession) Session(ctx context.Context) (string, error) {
	return "", errors.New("no session cookie configured")
}

// newPortal stands up a fake portal that serves the create student modal
// and delegates the form POST to the given handler.
func newPortal(t *testing.T, post http.HandlerFunc) (*Client, *atomic.Int64) {
	t.Helper()

	var requests atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /Students/StudentCreateModal", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		// assert, not require: handlers run off the test goroutine
		assert.Equal(t, testSchoolId, r.URL.Query().Get("schoolid"))
		assert.Equal(t, testSession, r.Header.Get("Cookie"))
		assert.Equal(t, "xsrf123", r.Header.Get("requestverificationtoken"))
		fmt.Fprintf(
			w,
			`<form><input name="__RequestVerificationToken" type="hidden" value="%s" /></form>`,
			testFormToken,
		)
	})
	mux.HandleFunc("POST /Students/StudentCreateModal", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		post(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl:  server.URL,
		Sessions: staticSession(testSession),
	})
	require.NoError(t, err)
	return client, &requests
}

func requirePortalHeaders(t *testing.T, r *http.Request) url.Values {
	t.Helper()
	assert.Equal(t, testSession, r.Header.Get("Cookie"))
	assert.Equal(t, "xsrf123", r.Header.Get("X-XSRF-TOKEN"))
	assert.Equal(t, "application/json, text/plain, */*", r.Header.Get("Accept"))
	assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

	assert.NoError(t, r.ParseForm())
	return r.PostForm
}

func TestSubmitSuccess(t *testing.T) {
	client, _ := newPortal(t, func(w http.ResponseWriter, r *http.Request) {
		form := requirePortalHeaders(t, r)
		assert.Equal(t, testFormToken, form.Get("__RequestVerificationToken"))
		assert.Equal(t, testSchoolId, form.Get("schoolid"))
		assert.Equal(t, "0", form.Get("id"))
		assert.Equal(t, "OKAFOR", form.Get("student.Surname"))
		// every schema field is present even when the record omits it
		assert.True(t, form.Has("student.MotherOccption"))
		assert.True(t, form.Has("student.Notes"))

		fmt.Fprint(w, "saved")
	})

	result := client.Submit(context.Background(), StudentRecord{
		"student.Surname":   "OKAFOR",
		"student.FirstName": "CHINEDU",
	}, testSchoolId)

	require.True(t, result.Success)
	require.Equal(t, 200, result.Status)
	require.Contains(t, result.Message, "submitted successfully")
	require.Equal(t, "saved", result.Data)
}

func TestSubmitNoContent(t *testing.T) {
	client, _ := newPortal(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	result := client.Submit(context.Background(), StudentRecord{"student.Surname": "A"}, testSchoolId)
	require.True(t, result.Success)
	require.Equal(t, 204, result.Status)
	require.Nil(t, result.Data)
}

func TestSubmitRedirectToLoginFails(t *testing.T) {
	client, _ := newPortal(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/Account/Login?ReturnUrl=%2FStudents")
		w.WriteHeader(http.StatusFound)
	})

	result := client.Submit(context.Background(), StudentRecord{"student.Surname": "A"}, testSchoolId)
	require.False(t, result.Success)
	require.Equal(t, 302, result.Status)
	require.Contains(t, result.Message, "session might be expired or invalid")
}

func TestSubmitRedirectElsewhereSucceeds(t *testing.T) {
	client, _ := newPortal(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/Students/List")
		w.WriteHeader(http.StatusFound)
	})

	result := client.Submit(context.Background(), StudentRecord{"student.Surname": "A"}, testSchoolId)
	require.True(t, result.Success)
	require.Equal(t, 302, result.Status)
	require.Contains(t, result.Message, "/Students/List")
}

func TestSubmitValidationError(t *testing.T) {
	client, _ := newPortal(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"Invalid state","errors":{"student.OriginState":["unknown state"]}}`)
	})

	result := client.Submit(context.Background(), StudentRecord{"student.Surname": "A"}, testSchoolId)
	require.False(t, result.Success)
	require.Equal(t, 400, result.Status)
	require.Equal(t, "Invalid state", result.Message)

	parsed, ok := result.Data.(map[string]any)
	require.True(t, ok)
	require.Contains(t, parsed, "errors")
}

func TestSubmitJsonErrorWithDetailsOnly(t *testing.T) {
	client, _ := newPortal(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"details":"duplicate admission number"}`)
	})

	result := client.Submit(context.Background(), StudentRecord{"student.Surname": "A"}, testSchoolId)
	require.False(t, result.Success)
	require.Equal(t, 422, result.Status)
	require.Equal(t, "duplicate admission number", result.Message)
}

func TestSubmitUnexpectedResponseExcerpt(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	client, _ := newPortal(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(long)
	})

	result := client.Submit(context.Background(), StudentRecord{"student.Surname": "A"}, testSchoolId)
	require.False(t, result.Success)
	require.Equal(t, 500, result.Status)
	require.Contains(t, result.Message, "form submission failed with status 500")
	// the body excerpt is capped
	require.LessOrEqual(t, len(result.Message), 300)
}

func TestSubmitWithoutSessionNeverTouchesThePortal(t *testing.T) {
	client, requests := newPortal(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("the portal should not be called without a session")
	})
	client.Sessions = failingSession{}

	result := client.Submit(context.Background(), StudentRecord{"student.Surname": "A"}, testSchoolId)
	require.False(t, result.Success)
	require.Equal(t, 500, result.Status)
	require.Contains(t, result.Message, "no session cookie configured")
	require.Equal(t, int64(0), requests.Load())
}

func TestSubmitWithoutXsrfCookie(t *testing.T) {
	client, requests := newPortal(t, func(w http.ResponseWriter, r *http.Request) {})
	client.Sessions = staticSession(".AspNetCore.Session=sess-value")

	result := client.Submit(context.Background(), StudentRecord{"student.Surname": "A"}, testSchoolId)
	require.False(t, result.Success)
	require.Contains(t, result.Message, "XSRF-TOKEN")
	require.Equal(t, int64(0), requests.Load())
}

func TestSubmitTokenMissingFromModal(t *testing.T) {
	var posts atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /Students/StudentCreateModal", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<form>no token here</form>")
	})
	mux.HandleFunc("POST /Students/StudentCreateModal", func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl:  server.URL,
		Sessions: staticSession(testSession),
	})
	require.NoError(t, err)

	result := client.Submit(context.Background(), StudentRecord{"student.Surname": "A"}, testSchoolId)
	require.False(t, result.Success)
	require.Contains(t, result.Message, "__RequestVerificationToken")
	require.Equal(t, int64(0), posts.Load())
}
