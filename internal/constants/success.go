package constants

import "net/http"

// APISuccess represents a standardized API success response with code and HTTP status.
type APISuccess struct {
	Code   string
	Status int
}

var (
	SuccessLinkIssued = APISuccess{
		Code:   CodeLinkIssued,
		Status: http.StatusCreated,
	}
	SuccessLinksListed = APISuccess{
		Code:   CodeLinksListed,
		Status: http.StatusOK,
	}
)
