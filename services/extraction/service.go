// Package extraction turns a photographed registration form into a
// StudentRecord via a vision-capable completion service (OpenRouter).
package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"bemisreg-backend/lib/scrapers/bemis"
	"bemisreg-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/extraction")

const (
	DefaultApiUrl = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel  = "qwen/qwen2.5-vl-72b-instruct:free"
)

// KeySource yields interchangeable API keys without strong ordering
// guarantees (satisfied by the keychain service).
type KeySource interface {
	NextKey(ctx context.Context) (string, error)
}

type Config struct {
	ApiUrl string `json:"api_url"`
	Model  string `json:"model"`
}

type Service struct {
	client *resty.Client
	keys   KeySource
	config Config
	// extraction is expensive and operators re-scan the same photo while
	// reviewing, so recent results are kept around briefly
	cache *expirable.LRU[string, bemis.StudentRecord]
}

func NewService(ctx context.Context, keys KeySource, config Config) *Service {
	if config.ApiUrl == "" {
		config.ApiUrl = DefaultApiUrl
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	client := resty.New()
	client.SetTimeout(time.Minute * 2)
	telemetry.InstrumentResty(client, "services/extraction/http")

	return &Service{
		client: client,
		keys:   keys,
		config: config,
		cache:  expirable.NewLRU[string, bemis.StudentRecord](256, nil, time.Minute*15),
	}
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageUrl *imageUrl `json:"image_url,omitempty"`
}

type imageUrl struct {
	Url string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

var jsonFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

func cacheKey(model string, image []byte) string {
	digest := sha256.New()
	digest.Write([]byte(model))
	digest.Write(image)
	return hex.EncodeToString(digest.Sum(nil))
}

// Extract sends the form photo to the completion service and decodes the
// model's answer into a StudentRecord. An empty model selects the
// configured default. The API key comes from the OPENROUTER_API_KEY
// environment variable when set, otherwise from the rotating pool.
func (s *Service) Extract(ctx context.Context, image []byte, mimeType, model string) (bemis.StudentRecord, error) {
	ctx, span := tracer.Start(ctx, "service:Extract")
	defer span.End()

	if model == "" {
		model = s.config.Model
	}
	span.SetAttributes(attribute.String("model", model))

	cached, hit := s.cache.Get(cacheKey(model, image))
	if hit {
		slog.InfoContext(ctx, "extraction cache hit", "model", model)
		return cached, nil
	}

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		var err error
		apiKey, err = s.keys.NextKey(ctx)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	if mimeType == "" {
		mimeType = "image/png"
	}
	dataUri := fmt.Sprintf(
		"data:%s;base64,%s",
		mimeType, base64.StdEncoding.EncodeToString(image),
	)

	res, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetHeader("content-type", "application/json").
		SetBody(chatRequest{
			Model: model,
			Messages: []chatMessage{
				{
					Role: "user",
					Content: []contentPart{
						{Type: "text", Text: extractionPrompt},
						{Type: "image_url", ImageUrl: &imageUrl{Url: dataUri}},
					},
				},
			},
			MaxTokens: 4000,
		}).
		Post(s.config.ApiUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion request failed")
		return nil, err
	}
	if !res.IsSuccess() {
		excerpt := res.String()
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		err := fmt.Errorf(
			"completion request failed with status %d: %s",
			res.StatusCode(), excerpt,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return nil, err
	}

	var parsed chatResponse
	err = json.Unmarshal(res.Body(), &parsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse completion response")
		return nil, err
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		err := fmt.Errorf("completion service returned no content")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	record, err := decodeRecord(ctx, parsed.Choices[0].Message.Content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode extracted record")
		return nil, err
	}

	s.cache.Add(cacheKey(model, image), record)
	return record, nil
}

// decodeRecord parses the model output (optionally wrapped in a markdown
// code fence) and normalizes it into a complete StudentRecord.
func decodeRecord(ctx context.Context, content string) (bemis.StudentRecord, error) {
	raw := content
	groups := jsonFenceRegex.FindStringSubmatch(content)
	if len(groups) >= 2 {
		raw = groups[1]
	}

	var fields map[string]any
	err := json.Unmarshal([]byte(raw), &fields)
	if err != nil {
		return nil, fmt.Errorf("model output is not a JSON object: %w", err)
	}

	record := make(bemis.StudentRecord, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			record[key] = v
		default:
			record[key] = fmt.Sprint(v)
		}
	}

	if record[bemis.FieldId] == "" {
		record[bemis.FieldId] = "0"
	}
	if _, ok := record["student.SchoolId"]; !ok {
		record["student.SchoolId"] = ""
	}
	for _, required := range bemis.RequiredStudentFields {
		_, ok := record[required]
		if !ok {
			slog.WarnContext(
				ctx, "model output missing required field, defaulting to empty",
				"field", required,
			)
			record[required] = ""
		}
	}

	return record, nil
}
