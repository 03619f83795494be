package dto

// AddCartItemRequest 加入购物车,已有时累加数量
type AddCartItemRequest struct {
	BookID   uint `json:"book_id" binding:"required" example:"1"`
	Quantity int  `json:"qty" binding:"required,min=1,max=999" example:"1"`
}

// SetCartQuantityRequest 修改数量,0表示移除
type SetCartQuantityRequest struct {
	Quantity int `json:"qty" binding:"min=0,max=999" example:"2"`
}
