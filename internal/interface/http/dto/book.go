package dto

// BookRequest 创建/编辑图书
// 价格单位为分,评分0-5
type BookRequest struct {
	Title       string  `json:"title" binding:"required,max=200" example:"三体"`
	Author      string  `json:"author" binding:"required,max=100" example:"刘慈欣"`
	Category    string  `json:"category" binding:"max=50" example:"科幻"`
	Price       int64   `json:"price" binding:"required,min=1,max=99999999" example:"5900"`
	Rating      float64 `json:"rating" binding:"min=0,max=5" example:"4.5"`
	Stock       int     `json:"stock" binding:"min=0" example:"100"`
	CoverURL    string  `json:"cover" binding:"omitempty,url,max=500" example:"https://example.com/cover.jpg"`
	Description string  `json:"description" binding:"max=5000"`
}

// ListBooksRequest 图书列表查询
type ListBooksRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
	Keyword  string `form:"keyword" binding:"omitempty,max=100" example:"三体"`
	Category string `form:"category" binding:"omitempty,max=50" example:"科幻"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=price_asc price_desc rating_desc created_at_desc" example:"created_at_desc"`
}
