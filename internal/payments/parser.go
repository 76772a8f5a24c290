package payments

import (
	"encoding/json"
	"net/url"
	"strings"

	pkgerrors "github.com/BilMam/soccer-spot-reserve-sub002/pkg/errors"
)

// Notification is the normalized shape of a provider webhook payload. The
// reported status is an untrusted hint; the reconciler re-verifies against the
// provider before acting on it.
type Notification struct {
	TransactionID  string
	ReportedStatus string
}

var transactionIDKeys = []string{"cpm_trans_id", "transaction_id", "transactionId"}

var reportedStatusKeys = []string{"cpm_result", "cpm_trans_status", "status", "payment_status"}

// ParseNotification normalizes a webhook body. Two wire shapes are accepted:
// the provider's form-encoded callback and a JSON document. Unknown fields are
// ignored; only a missing transaction id is fatal.
func ParseNotification(contentType string, body []byte) (Notification, error) {
	if len(body) == 0 {
		return Notification{}, pkgerrors.New(pkgerrors.CodeValidation, "empty payload")
	}

	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		return parseForm(body)
	}

	note, err := parseJSON(body)
	if err == nil {
		return note, nil
	}
	// Some providers post form bodies without a content type.
	if formNote, formErr := parseForm(body); formErr == nil {
		return formNote, nil
	}
	return Notification{}, err
}

func parseForm(body []byte) (Notification, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return Notification{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed form payload")
	}

	var note Notification
	for _, key := range transactionIDKeys {
		if value := values.Get(key); value != "" {
			note.TransactionID = value
			break
		}
	}
	for _, key := range reportedStatusKeys {
		if value := values.Get(key); value != "" {
			note.ReportedStatus = value
			break
		}
	}
	if note.TransactionID == "" {
		return Notification{}, pkgerrors.New(pkgerrors.CodeValidation, "payload carries no transaction id")
	}
	return note, nil
}

func parseJSON(body []byte) (Notification, error) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return Notification{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed json payload")
	}

	var note Notification
	for _, key := range transactionIDKeys {
		if value, ok := stringField(fields, key); ok {
			note.TransactionID = value
			break
		}
	}
	for _, key := range reportedStatusKeys {
		if value, ok := stringField(fields, key); ok {
			note.ReportedStatus = value
			break
		}
	}
	if note.TransactionID == "" {
		return Notification{}, pkgerrors.New(pkgerrors.CodeValidation, "payload carries no transaction id")
	}
	return note, nil
}

func stringField(fields map[string]any, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
