package models

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type ApiResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	Total       int64 `json:"total"`
	Limit       int   `json:"limit"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination derives page counts the same way for every listing.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		Total:       total,
		Limit:       limit,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

func SuccessResponse(data interface{}, message string) ApiResponse {
	return ApiResponse{
		Status:  StatusSuccess,
		Data:    data,
		Message: message,
	}
}

func ErrorResponse(message string, detail string) ApiResponse {
	return ApiResponse{
		Status:  StatusError,
		Message: message,
		Error:   detail,
	}
}
