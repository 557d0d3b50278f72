// internal/workers/ai-conversation/smart-query/models.go
package smartquery

import "agriserve-query/internal/models"

type Input struct {
	Message string                `json:"message"`
	Caller  *models.CallerContext `json:"caller,omitempty"`
}

type Output struct {
	QueryResult models.QueryResult `json:"queryResult"`
}
