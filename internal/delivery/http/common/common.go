package http_common

type ErrorResponse struct {
	Error string `json:"error"`
}
