package cart

// Item 购物车条目,价格和标题是加入时的快照
type Item struct {
	BookID   uint   `json:"book_id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	CoverURL string `json:"cover"`
	Price    int64  `json:"price"`
	Quantity int    `json:"qty"`
}

// Cart 用户购物车
type Cart struct {
	UserID uint   `json:"user_id"`
	Items  []Item `json:"items"`
}

// Add 加入图书,已存在时累加数量
func (c *Cart) Add(item Item) error {
	if item.BookID == 0 {
		return ErrBookIDRequired
	}
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].BookID == item.BookID {
			c.Items[i].Quantity += item.Quantity
			return nil
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

// SetQuantity 设置数量,<=0时移除
func (c *Cart) SetQuantity(bookID uint, qty int) error {
	for i := range c.Items {
		if c.Items[i].BookID != bookID {
			continue
		}
		if qty <= 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = qty
		}
		return nil
	}
	return ErrItemNotFound
}

// Remove 移除图书,不存在时无副作用
func (c *Cart) Remove(bookID uint) {
	for i := range c.Items {
		if c.Items[i].BookID == bookID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// IsEmpty 是否为空
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Subtotal 按快照价格计算
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}
