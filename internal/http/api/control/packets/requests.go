package packets

type PlayRequest struct {
	Prayer string `json:"prayer" binding:"required"`
}
