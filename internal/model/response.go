package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}
