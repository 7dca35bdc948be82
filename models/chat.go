package models

type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type QueryResponse struct {
	Response   string `json:"response"`
	SessionID  string `json:"session_id"`
	NewSession bool   `json:"new_session"`
	Message    string `json:"message"`
}
