package core

import "strings"

// FilterTransactions keeps transactions whose category, description or
// merchant contains search (case-insensitive) and whose type matches
// typeFilter. AllTypes disables the type check.
func FilterTransactions(txs []Transaction, search string, typeFilter TransactionType) []Transaction {
	needle := strings.ToLower(search)
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if !matchesSearch(t, needle) {
			continue
		}
		if typeFilter != AllTypes && typeFilter != "" && t.Type != typeFilter {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesSearch(t Transaction, needle string) bool {
	if needle == "" {
		return true
	}
	// A missing category never matches.
	if t.Category != "" && strings.Contains(strings.ToLower(t.Category), needle) {
		return true
	}
	return strings.Contains(strings.ToLower(t.Description), needle) ||
		strings.Contains(strings.ToLower(t.Merchant), needle)
}
