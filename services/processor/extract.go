package processor

import "regexp"

var transactionCodeRegex = regexp.MustCompile(`(?i)Código da Transação:\s*(\d+)`)

// ExtractTransactionCode returns the digits following the first "Código da Transação:" label
func ExtractTransactionCode(body string) (string, bool) {
	match := transactionCodeRegex.FindStringSubmatch(body)
	if len(match) < 2 {
		return "", false
	}
	return match[1], true
}
