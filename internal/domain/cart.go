package domain

// ProductSnapshot — кэш каталожных данных на момент обращения к каталогу.
// Снимок сохраняется внутри позиции корзины и не перепроверяется до следующей
// операции, которой нужны актуальные границы.
type ProductSnapshot struct {
	ProductID  string
	Name       string
	PriceMinor int64
	ImageRef   string
	Stock      int32
}

// CartLine — одна позиция корзины. Поля Name/PriceMinor/ImageRef — снимок
// каталога на момент добавления, KnownStock — последний наблюдаемый сток,
// используется только для локальной проверки границ.
type CartLine struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceMinor int64  `json:"price_minor"`
	ImageRef   string `json:"image_ref,omitempty"`
	Qty        int32  `json:"qty"`
	KnownStock int32  `json:"known_stock"`
}

// Cart — упорядоченный набор позиций, уникальных по ProductID.
type Cart struct {
	Lines []CartLine
}

// Find возвращает индекс позиции по ProductID.
func (c *Cart) Find(productID string) (int, bool) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

// Upsert вставляет позицию или замещает существующую (количество не суммируется).
// Возвращает true, если позиция уже была в корзине.
func (c *Cart) Upsert(line CartLine) bool {
	if idx, ok := c.Find(line.ProductID); ok {
		c.Lines[idx] = line
		return true
	}
	c.Lines = append(c.Lines, line)
	return false
}

// Remove удаляет позицию, если она есть. Возвращает true при фактическом удалении.
func (c *Cart) Remove(productID string) bool {
	idx, ok := c.Find(productID)
	if !ok {
		return false
	}
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	return true
}

// TotalMinor возвращает сумму корзины в минимальных денежных единицах.
func (c *Cart) TotalMinor() int64 {
	var total int64
	for i := range c.Lines {
		total += c.Lines[i].PriceMinor * int64(c.Lines[i].Qty)
	}
	return total
}

// TotalQuantity возвращает суммарное количество единиц товара.
func (c *Cart) TotalQuantity() int32 {
	var total int32
	for i := range c.Lines {
		total += c.Lines[i].Qty
	}
	return total
}

// IsEmpty сообщает, пуста ли корзина.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// CloneLines возвращает копию позиций, чтобы избежать мутаций извне.
func (c *Cart) CloneLines() []CartLine {
	if len(c.Lines) == 0 {
		return nil
	}
	out := make([]CartLine, len(c.Lines))
	copy(out, c.Lines)
	return out
}
