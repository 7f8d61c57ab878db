package sqlgen

import (
	"strings"

	"github.com/doeshing/askdb-go/internal/domain"
)

// deniedTokens are rejected as uppercase substrings anywhere in the
// statement. The scan is deliberately coarse: a false positive costs one
// retrieval, a false negative could mutate the database.
var deniedTokens = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "CREATE", "TRUNCATE", "--", ";",
}

// Validate enforces the read-only guardrail on a generated statement. Only
// plain SELECT statements with none of the denied tokens pass.
func Validate(statement string) error {
	upper := strings.ToUpper(statement)

	for _, token := range deniedTokens {
		if strings.Contains(upper, token) {
			return &domain.ValidationError{
				Statement: statement,
				Reason:    "forbidden token " + token,
			}
		}
	}

	if !strings.HasPrefix(strings.TrimSpace(upper), "SELECT") {
		return &domain.ValidationError{
			Statement: statement,
			Reason:    "only SELECT statements are allowed",
		}
	}
	return nil
}
