package api

import "datalens/internal/assistant"

type askRequest struct {
	Question string `json:"question"`
}

type filmsAskResponse struct {
	Question  string   `json:"question"`
	SQL       string   `json:"sql"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
}

type explorerAskResponse struct {
	Answer string                    `json:"answer"`
	Tools  []assistant.ToolExecution `json:"tools,omitempty"`
}

type createTicketRequest struct {
	Issue    string `json:"issue"`
	Question string `json:"question"`
}

type samplesResponse struct {
	Dataset   string   `json:"dataset"`
	Questions []string `json:"questions"`
}

type schemaResponse struct {
	Dataset string `json:"dataset"`
	Schema  string `json:"schema"`
}
