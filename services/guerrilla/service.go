package guerrilla

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/customeros/txwatch/config"
	"github.com/customeros/txwatch/interfaces"
	txerrors "github.com/customeros/txwatch/internal/errors"
	"github.com/customeros/txwatch/internal/logger"
	"github.com/customeros/txwatch/internal/models"
	"github.com/customeros/txwatch/internal/tracing"
	"github.com/customeros/txwatch/internal/utils"
)

type guerrillaService struct {
	log     logger.Logger
	cfg     *config.ProviderConfig
	session *Session
}

func NewGuerrillaService(log logger.Logger, cfg *config.ProviderConfig, session *Session) interfaces.MailProvider {
	return &guerrillaService{
		log:     log,
		cfg:     cfg,
		session: session,
	}
}

func (s *guerrillaService) SetEmailUser(ctx context.Context, username string) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GuerrillaService.SetEmailUser")
	defer span.Finish()
	tracing.SetDefaultExternalApiSpanTags(ctx, span)
	span.LogFields(log.String("username", username))

	params := s.params(opSetEmailUser)
	params.Set("email_user", username)

	var response setEmailUserResponse
	if err := s.call(ctx, http.MethodPost, params, &response); err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	if response.EmailAddr == "" {
		tracing.TraceErr(span, txerrors.ErrMissingAddress)
		return "", txerrors.ErrMissingAddress
	}

	validation := mailvalidate.ValidateEmailSyntax(response.EmailAddr)
	if !validation.IsValid {
		err := errors.Wrapf(txerrors.ErrInvalidAddress, "address %q", response.EmailAddr)
		tracing.TraceErr(span, err)
		return "", err
	}

	s.session.setAddress(response.EmailAddr)
	s.log.Infof("Mailbox address set: %s", response.EmailAddr)

	return response.EmailAddr, nil
}

func (s *guerrillaService) GetEmailList(ctx context.Context) ([]models.EmailSummary, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GuerrillaService.GetEmailList")
	defer span.Finish()
	tracing.SetDefaultExternalApiSpanTags(ctx, span)

	params := s.params(opGetEmailList)
	params.Set("offset", "0")

	var response emailListResponse
	if err := s.call(ctx, http.MethodGet, params, &response); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	emails := make([]models.EmailSummary, 0, len(response.List))
	for _, item := range response.List {
		emails = append(emails, models.EmailSummary{
			ID:      item.MailID.String(),
			Subject: item.MailSubject,
			From:    item.MailFrom,
			Excerpt: item.MailExcerpt,
			Date:    item.MailDate,
		})
	}
	span.LogFields(log.Int("emails", len(emails)))

	return emails, nil
}

func (s *guerrillaService) FetchEmail(ctx context.Context, mailID string) (string, bool) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GuerrillaService.FetchEmail")
	defer span.Finish()
	tracing.SetDefaultExternalApiSpanTags(ctx, span)
	tracing.TagEntity(span, mailID)

	params := s.params(opFetchEmail)
	params.Set("email_id", mailID)

	var response fetchEmailResponse
	if err := s.call(ctx, http.MethodGet, params, &response); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("Failed to fetch body of email %s: %v", mailID, err)
		return "", false
	}

	if strings.TrimSpace(response.MailBody) == "" {
		s.log.Warnf("Email %s has no content", mailID)
		return "", false
	}

	text, err := utils.HTMLToPlainText(response.MailBody)
	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("Failed to convert body of email %s to text: %v", mailID, err)
		return "", false
	}

	return text, true
}

func (s *guerrillaService) DeleteEmail(ctx context.Context, mailID string) bool {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GuerrillaService.DeleteEmail")
	defer span.Finish()
	tracing.SetDefaultExternalApiSpanTags(ctx, span)
	tracing.TagEntity(span, mailID)

	params := s.params(opDelEmail)
	params.Set("email_ids[]", mailID)

	var response deleteEmailResponse
	if err := s.call(ctx, http.MethodPost, params, &response); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("Failed to delete email %s: %v", mailID, err)
		return false
	}

	if !response.contains(mailID) {
		s.log.Warnf("Email %s was not deleted, provider deleted %v", mailID, response.DeletedIDs)
		return false
	}

	return true
}

func (s *guerrillaService) params(operation string) url.Values {
	params := url.Values{}
	params.Set("f", operation)
	params.Set("lang", s.cfg.Lang)
	params.Set("ip", s.cfg.IP)
	params.Set("agent", s.cfg.Agent)
	return params
}

// call performs one provider operation through the session and decodes the JSON answer
func (s *guerrillaService) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	if err := s.session.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "provider rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.Url+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "failed to create provider request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.cfg.Agent)

	resp, err := s.session.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(txerrors.ErrProvider, "%s request failed: %v", params.Get("f"), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Wrapf(txerrors.ErrProvider, "%s returned HTTP status %d", params.Get("f"), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(txerrors.ErrProvider, "failed to read %s response: %v", params.Get("f"), err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(txerrors.ErrUnexpectedState, "failed to decode %s response: %v", params.Get("f"), err)
	}

	return nil
}
