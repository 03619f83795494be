package handler

import (
	"github.com/gin-gonic/gin"

	appbook "github.com/xiebiao/bookstore-orders/internal/application/book"
	appreview "github.com/xiebiao/bookstore-orders/internal/application/review"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/dto"
	"github.com/xiebiao/bookstore-orders/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-orders/pkg/response"
)

// BookHandler 图书目录和评价
type BookHandler struct {
	listBooks  *appbook.ListBooksUseCase
	getBook    *appbook.GetBookUseCase
	manageBook *appbook.ManageBookUseCase
	reviews    *appreview.ReviewUseCase
}

// NewBookHandler 创建图书处理器
func NewBookHandler(
	listBooks *appbook.ListBooksUseCase,
	getBook *appbook.GetBookUseCase,
	manageBook *appbook.ManageBookUseCase,
	reviews *appreview.ReviewUseCase,
) *BookHandler {
	return &BookHandler{
		listBooks:  listBooks,
		getBook:    getBook,
		manageBook: manageBook,
		reviews:    reviews,
	}
}

func toBookRequest(r dto.BookRequest) appbook.BookRequest {
	return appbook.BookRequest{
		Title:       r.Title,
		Author:      r.Author,
		Category:    r.Category,
		Price:       r.Price,
		Rating:      r.Rating,
		Stock:       r.Stock,
		CoverURL:    r.CoverURL,
		Description: r.Description,
	}
}

// ListBooks 图书列表
// @Summary      图书列表
// @Description  按书名/作者关键字和分类筛选,列表不含简介
// @Tags         图书
// @Produce      json
// @Param        page      query int    false "页码"
// @Param        page_size query int    false "每页数量"
// @Param        keyword   query string false "关键字"
// @Param        category  query string false "分类"
// @Param        sort_by   query string false "排序" Enums(price_asc, price_desc, rating_desc, created_at_desc)
// @Success      200 {object} response.Response{data=response.PageData{list=[]appbook.BookDTO}}
// @Router       /api/v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var req dto.ListBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.listBooks.Execute(c.Request.Context(), appbook.ListBooksRequest{
		Page:     req.Page,
		PageSize: req.PageSize,
		Keyword:  req.Keyword,
		Category: req.Category,
		SortBy:   req.SortBy,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.List, result.Total, result.Page, result.PageSize)
}

// GetBook 图书详情
// @Summary      图书详情
// @Tags         图书
// @Produce      json
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=appbook.BookDTO}
// @Router       /api/v1/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.getBook.Execute(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CreateBook 上架图书
// @Summary      上架图书
// @Description  管理员创建图书,写入审计日志
// @Tags         后台-图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.BookRequest true "图书信息"
// @Success      200 {object} response.Response{data=appbook.BookDTO}
// @Router       /api/v1/admin/books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req dto.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	result, err := h.manageBook.Create(c.Request.Context(), middleware.GetActor(c), toBookRequest(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// UpdateBook 编辑图书
// @Summary      编辑图书
// @Tags         后台-图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int             true "图书ID"
// @Param        request body dto.BookRequest true "图书信息"
// @Success      200 {object} response.Response{data=appbook.BookDTO}
// @Router       /api/v1/admin/books/{id} [put]
func (h *BookHandler) UpdateBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	result, err := h.manageBook.Update(c.Request.Context(), middleware.GetActor(c), id, toBookRequest(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteBook 下架图书
// @Summary      删除图书
// @Tags         后台-图书
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/admin/books/{id} [delete]
func (h *BookHandler) DeleteBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.manageBook.Delete(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// ListReviews 图书评价
// @Summary      图书评价列表
// @Tags         评价
// @Produce      json
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=appreview.ListResponse}
// @Router       /api/v1/books/{id}/reviews [get]
func (h *BookHandler) ListReviews(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.reviews.List(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// SubmitReview 发表或修改评价
// @Summary      发表评价
// @Description  只有购买过该书(已支付订单)的用户可以评价,重复提交视为修改
// @Tags         评价
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int               true "图书ID"
// @Param        request body dto.ReviewRequest true "评价"
// @Success      200 {object} response.Response{data=appreview.ReviewDTO}
// @Router       /api/v1/books/{id}/reviews [post]
func (h *BookHandler) SubmitReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	result, err := h.reviews.Submit(c.Request.Context(), appreview.SubmitRequest{
		UserID: middleware.MustGetUserID(c),
		BookID: id,
		Rating: req.Rating,
		Text:   req.Text,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DeleteReview 删除自己的评价
// @Summary      删除评价
// @Tags         评价
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "评价ID"
// @Success      200 {object} response.Response
// @Router       /api/v1/reviews/{id} [delete]
func (h *BookHandler) DeleteReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.reviews.Delete(c.Request.Context(), middleware.MustGetUserID(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
