package instrumentation

import "strings"

// ExtractUserDomain reduces an address, bare or in "Name <addr>" form,
// to its lower-cased domain so metrics and audit logs never carry full
// addresses. It returns "unknown" when there is no domain.
func ExtractUserDomain(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.LastIndex(email, "<"); i >= 0 {
		email = strings.TrimSpace(strings.TrimSuffix(email[i+1:], ">"))
	}
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "unknown"
	}
	return strings.ToLower(email[at+1:])
}

// Operation types for Google API metrics.
const (
	OperationList     = "list"
	OperationGet      = "get"
	OperationCreate   = "create"
	OperationModify   = "modify"
	OperationDraft    = "draft"
	OperationFreeBusy = "freebusy"
)
