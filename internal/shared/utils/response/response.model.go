package response

// StandardApiResponse is the envelope every endpoint writes. Success mirrors
// Status so clients can branch on a boolean.
type StandardApiResponse struct {
	Success    bool        `json:"success"`
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Errors     interface{} `json:"errors,omitempty"`
}
