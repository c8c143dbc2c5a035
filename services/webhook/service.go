package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/txwatch/config"
	"github.com/customeros/txwatch/interfaces"
	"github.com/customeros/txwatch/internal/logger"
	"github.com/customeros/txwatch/internal/tracing"
)

type concludeRequest struct {
	Completed bool `json:"completed"`
}

type webhookService struct {
	log        logger.Logger
	cfg        *config.WebhookConfig
	httpClient *http.Client
}

func NewWebhookService(log logger.Logger, cfg *config.WebhookConfig) interfaces.TransactionNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &webhookService{
		log:        log,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ConcludeURL is the downstream endpoint that concludes the transaction identified by code
func ConcludeURL(baseUrl, code string) string {
	return fmt.Sprintf("%s/qrcodes/transaction/%s/conclude", strings.TrimRight(baseUrl, "/"), url.PathEscape(code))
}

// NotifyCompletion reports true only when the webhook answers 200
func (s *webhookService) NotifyCompletion(ctx context.Context, code string) bool {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WebhookService.NotifyCompletion")
	defer span.Finish()
	tracing.SetDefaultExternalApiSpanTags(ctx, span)
	tracing.TagEntity(span, code)

	postUrl := ConcludeURL(s.cfg.BaseUrl, code)
	span.LogFields(log.String("url", postUrl))

	statusCode, err := s.post(ctx, span, postUrl, concludeRequest{Completed: true})
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("Failed to send POST to %s: %v", postUrl, err)
		return false
	}
	span.SetTag("http.status_code", statusCode)

	if statusCode != http.StatusOK {
		s.log.Warnf("POST to %s failed with status %d", postUrl, statusCode)
		return false
	}

	s.log.Infof("POST to %s succeeded", postUrl)
	return true
}

func (s *webhookService) post(ctx context.Context, span opentracing.Span, postUrl string, payload interface{}) (int, error) {
	requestData, err := json.Marshal(payload)
	if err != nil {
		return 0, errors.Wrap(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postUrl, bytes.NewBuffer(requestData))
	if err != nil {
		return 0, errors.Wrap(err, "failed to create HTTP request")
	}
	req.Header.Set("Content-Type", "application/json")
	req = tracing.InjectSpanContextIntoHTTPRequest(req, span)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "failed to make webhook request")
	}
	defer resp.Body.Close()

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
