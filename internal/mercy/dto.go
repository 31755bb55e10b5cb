package mercy

// CreateMercyRequest represents the request to open a mercy petition
type CreateMercyRequest struct {
	Message string `json:"message" example:"I was on a boar hunt, have mercy"`
}

// RespondRequest represents the counterparty's response to a petition.
// Condition is required when the response is COUNTERED.
type RespondRequest struct {
	Response  Status  `json:"response" validate:"required" example:"GRANTED"`
	Condition *string `json:"condition,omitempty" example:"buy me dinner first"`
}
