package model

// Category - название категории из закрытого списка
type Category string

// DefaultCategories - категории по умолчанию
var DefaultCategories = []Category{"Бытовая техника", "Мебель", "Одежда", "Другое"}

// Catalog - закрытый упорядоченный набор категорий, фиксируется при развертывании
type Catalog struct {
	categories []Category
}

func NewCatalog(categories []Category) Catalog {
	c := make([]Category, len(categories))
	copy(c, categories)
	return Catalog{categories: c}
}

// Categories возвращает копию списка категорий
func (c Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

func (c Catalog) Len() int {
	return len(c.categories)
}

func (c Catalog) Contains(category Category) bool {
	return c.Index(category) >= 0
}

// Index возвращает позицию категории или -1
func (c Catalog) Index(category Category) int {
	for i, cat := range c.categories {
		if cat == category {
			return i
		}
	}
	return -1
}

// At возвращает категорию по позиции
func (c Catalog) At(i int) (Category, bool) {
	if i < 0 || i >= len(c.categories) {
		return "", false
	}
	return c.categories[i], true
}
