package processor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/txwatch/config"
	"github.com/customeros/txwatch/services/guerrilla"
	"github.com/customeros/txwatch/services/webhook"
)

// fakeMailbox serves the guerrilla ajax operations for a fixed set of emails
type fakeMailbox struct {
	mu      sync.Mutex
	bodies  map[string]string
	deletes []string
}

func (f *fakeMailbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	query := r.URL.Query()
	switch query.Get("f") {
	case "set_email_user":
		_, _ = w.Write([]byte(`{"email_addr":"nhobzkpo@guerrillamailblock.com"}`))
	case "get_email_list":
		list := make([]map[string]interface{}, 0, len(f.bodies))
		for id := range f.bodies {
			list = append(list, map[string]interface{}{
				"mail_id":      id,
				"mail_subject": "Pagamento",
				"mail_from":    "banco@example.com",
				"mail_excerpt": "Seu pagamento",
				"mail_date":    "12:00:00",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"list": list})
	case "fetch_email":
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"mail_body": f.bodies[query.Get("email_id")]})
	case "del_email":
		id := query.Get("email_ids[]")
		f.deletes = append(f.deletes, id)
		delete(f.bodies, id)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"deleted_ids": []string{id}})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

type concludeCall struct {
	path string
	body string
}

func newPipelineProcessor(t *testing.T, mailbox *fakeMailbox, webhookStatus int) (*processor, *[]concludeCall) {
	t.Helper()

	provider := httptest.NewServer(mailbox)
	t.Cleanup(provider.Close)

	var (
		mu    sync.Mutex
		calls []concludeCall
	)
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, concludeCall{path: r.URL.Path, body: string(body)})
		mu.Unlock()
		w.WriteHeader(webhookStatus)
	}))
	t.Cleanup(downstream.Close)

	providerCfg := &config.ProviderConfig{
		Url:         provider.URL + "/ajax.php",
		MailboxUser: "nhobzkpo",
		Lang:        "pt",
		IP:          "127.0.0.1",
		Agent:       "txwatch-test",
		Timeout:     5 * time.Second,
	}
	session, err := guerrilla.NewSession(providerCfg)
	require.NoError(t, err)

	log := testLogger()
	p := NewProcessor(log, &config.ProcessorConfig{Concurrency: 4}, providerCfg.MailboxUser, Dependencies{
		Provider: guerrilla.NewGuerrillaService(log, providerCfg, session),
		Notifier: webhook.NewWebhookService(log, &config.WebhookConfig{BaseUrl: downstream.URL, Timeout: 5 * time.Second}),
	}).(*processor)

	return p, &calls
}

func TestPipeline_ConcludesAndDeletes(t *testing.T) {
	mailbox := &fakeMailbox{bodies: map[string]string{
		"101": "<html><body><p>Pagamento recebido</p><p>Código da Transação: 987654</p></body></html>",
	}}
	p, calls := newPipelineProcessor(t, mailbox, http.StatusOK)

	report, err := p.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	require.Len(t, *calls, 1)
	assert.Equal(t, "/qrcodes/transaction/987654/conclude", (*calls)[0].path)
	assert.JSONEq(t, `{"completed":true}`, (*calls)[0].body)
	assert.Equal(t, []string{"101"}, mailbox.deletes)
}

func TestPipeline_WebhookErrorKeepsEmail(t *testing.T) {
	mailbox := &fakeMailbox{bodies: map[string]string{
		"101": "Código da Transação: 987654",
	}}
	p, calls := newPipelineProcessor(t, mailbox, http.StatusInternalServerError)

	report, err := p.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Deleted)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, *calls, 1)
	assert.Empty(t, mailbox.deletes)
	assert.Contains(t, mailbox.bodies, "101")
}

func TestPipeline_EmptyMailbox(t *testing.T) {
	p, calls := newPipelineProcessor(t, &fakeMailbox{bodies: map[string]string{}}, http.StatusOK)

	report, err := p.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Listed)
	assert.Empty(t, *calls)
}
