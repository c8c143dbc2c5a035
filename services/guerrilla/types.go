package guerrilla

import (
	"bytes"
	"encoding/json"
)

const (
	opSetEmailUser = "set_email_user"
	opGetEmailList = "get_email_list"
	opFetchEmail   = "fetch_email"
	opDelEmail     = "del_email"
)

// flexString accepts ids the provider sends either as JSON strings or numbers
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string {
	return string(f)
}

type setEmailUserResponse struct {
	EmailAddr      string     `json:"email_addr"`
	EmailTimestamp int64      `json:"email_timestamp"`
	SidToken       string     `json:"sid_token"`
	Alias          flexString `json:"alias"`
}

type emailListItem struct {
	MailID      flexString `json:"mail_id"`
	MailFrom    string     `json:"mail_from"`
	MailSubject string     `json:"mail_subject"`
	MailExcerpt string     `json:"mail_excerpt"`
	MailDate    string     `json:"mail_date"`
}

type emailListResponse struct {
	List  []emailListItem `json:"list"`
	Count flexString      `json:"count"`
}

type fetchEmailResponse struct {
	MailID   flexString `json:"mail_id"`
	MailBody string     `json:"mail_body"`
}

type deleteEmailResponse struct {
	DeletedIDs []flexString `json:"deleted_ids"`
}

func (r deleteEmailResponse) contains(mailID string) bool {
	for _, id := range r.DeletedIDs {
		if id.String() == mailID {
			return true
		}
	}
	return false
}
