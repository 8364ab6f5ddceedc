package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ivanoskov/market_bot/internal/model"
)

const (
	btnBuy       = "🛒 Купить товары"
	btnSell      = "➕ Продать товар"
	btnMyItems   = "📦 Мои товары"
	btnPurchased = "🛍 Купленные товары"
	btnProfile   = "👤 Профиль"
	btnHelp      = "❓ Помощь"
	btnStats     = "📊 Статистика"
)

type menuAction int

const (
	menuBuy menuAction = iota + 1
	menuSell
	menuMyItems
	menuPurchased
	menuProfile
	menuHelp
	menuStats
)

var menuButtons = map[string]menuAction{
	btnBuy:       menuBuy,
	btnSell:      menuSell,
	btnMyItems:   menuMyItems,
	btnPurchased: menuPurchased,
	btnProfile:   menuProfile,
	btnHelp:      menuHelp,
	btnStats:     menuStats,
}

// parseMenu распознает кнопку главного меню. Подпись без эмодзи принимается
// только при plain: внутри мастера "Профиль" может быть названием товара.
func parseMenu(text string, plain bool) (menuAction, bool) {
	if a, ok := menuButtons[text]; ok {
		return a, true
	}
	if !plain {
		return 0, false
	}
	text = strings.TrimSpace(text)
	for label, a := range menuButtons {
		if label == text {
			return a, true
		}
		if _, bare, ok := strings.Cut(label, " "); ok && bare == text {
			return a, true
		}
	}
	return 0, false
}

func (b *Bot) getMainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnBuy),
			tgbotapi.NewKeyboardButton(btnSell),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMyItems),
			tgbotapi.NewKeyboardButton(btnPurchased),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnProfile),
			tgbotapi.NewKeyboardButton(btnHelp),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnStats),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// getCategoriesKeyboard строит по кнопке на категорию; data получает индекс в каталоге
func (b *Bot) getCategoriesKeyboard(categories []model.Category, data func(idx int) string) tgbotapi.InlineKeyboardMarkup {
	var buttons [][]tgbotapi.InlineKeyboardButton

	catalog := b.market.Catalog()
	for _, category := range categories {
		idx := catalog.Index(category)
		if idx < 0 {
			continue
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(string(category), data(idx)),
		))
	}

	return tgbotapi.NewInlineKeyboardMarkup(buttons...)
}

func backKeyboard(text, data string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(text, data),
		),
	)
}

func browseCardKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 Купить сейчас", confirmBuyData(id)),
			tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", dataBuy),
		),
	)
}

func confirmBuyKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", buyItemData(id)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отменить", dataBuy),
		),
	)
}

func purchaseDoneKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Просмотреть купленные товары", dataPurchasedItems),
			tgbotapi.NewInlineKeyboardButtonData("Продолжить покупки", dataBuy),
		),
	)
}

func myCardKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Удалить", deleteData(id)),
			tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", dataMyItems),
		),
	)
}
