package bot

import (
	"strconv"
	"strings"
)

type action int

const (
	actBuy action = iota + 1
	actSell
	actMyItems
	actPurchasedItems
	actProfile
	actCategory
	actSellCategory
	actConfirmBuy
	actBuyItem
	actMyItemsCategory
	actDelete
	actBackToCategories
	actBackToMyItems
)

const (
	dataBuy               = "buy"
	dataSell              = "sell"
	dataMyItems           = "my_items"
	dataPurchasedItems    = "purchased_items"
	dataProfile           = "profile"
	dataBackToCategories  = "back_to_categories"
	dataBackToMyItems     = "back_to_my_items"
	prefixCategory        = "category_"
	prefixSellCategory    = "sell_category_"
	prefixConfirmBuy      = "confirm_buy_"
	prefixBuyItem         = "buy_"
	prefixMyItemsCategory = "my_items_category_"
	prefixDelete          = "delete_"
)

// callback - разобранные данные inline-кнопки
type callback struct {
	action action
	index  int    // индекс категории в каталоге
	id     string // идентификатор объявления
}

var exactActions = map[string]action{
	dataBuy:              actBuy,
	dataSell:             actSell,
	dataMyItems:          actMyItems,
	dataPurchasedItems:   actPurchasedItems,
	dataProfile:          actProfile,
	dataBackToCategories: actBackToCategories,
	dataBackToMyItems:    actBackToMyItems,
}

func parseCallback(data string) (callback, bool) {
	if a, ok := exactActions[data]; ok {
		return callback{action: a}, true
	}

	// Более длинные префиксы проверяются раньше: my_items_category_ перед category_
	indexed := []struct {
		prefix string
		action action
	}{
		{prefixMyItemsCategory, actMyItemsCategory},
		{prefixSellCategory, actSellCategory},
		{prefixCategory, actCategory},
	}
	for _, p := range indexed {
		if rest, ok := strings.CutPrefix(data, p.prefix); ok {
			idx, err := strconv.Atoi(rest)
			if err != nil || idx < 0 {
				return callback{}, false
			}
			return callback{action: p.action, index: idx}, true
		}
	}

	byID := []struct {
		prefix string
		action action
	}{
		{prefixConfirmBuy, actConfirmBuy},
		{prefixBuyItem, actBuyItem},
		{prefixDelete, actDelete},
	}
	for _, p := range byID {
		if id, ok := strings.CutPrefix(data, p.prefix); ok {
			if id == "" {
				return callback{}, false
			}
			return callback{action: p.action, id: id}, true
		}
	}

	return callback{}, false
}

func categoryData(idx int) string { return prefixCategory + strconv.Itoa(idx) }
func sellCategoryData(idx int) string { return prefixSellCategory + strconv.Itoa(idx) }
func myItemsCategoryData(idx int) string { return prefixMyItemsCategory + strconv.Itoa(idx) }
func confirmBuyData(id string) string { return prefixConfirmBuy + id }
func buyItemData(id string) string { return prefixBuyItem + id }
func deleteData(id string) string { return prefixDelete + id }
