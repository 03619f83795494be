package dto

// ReviewRequest 提交评价
type ReviewRequest struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5" example:"5"`
	Text   string `json:"text" binding:"max=1000" example:"非常好看"`
}
