package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ivanoskov/market_bot/internal/charts"
	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/ivanoskov/market_bot/internal/service"
	"github.com/ivanoskov/market_bot/internal/wizard"
	"go.uber.org/zap"
)

const textNoPhoto = "(Фото не доступно)"

func (b *Bot) handleCallback(ctx context.Context, userID int64, sess *session, cb *tgbotapi.CallbackQuery) {
	// Отвечаем на callback, чтобы убрать loading indicator
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Debug("failed to answer callback", zap.Error(err))
	}

	chatID := cb.Message.Chat.ID
	parsed, ok := parseCallback(cb.Data)
	if !ok {
		b.logger.Warn("unknown callback data", zap.Int64("user_id", userID), zap.String("data", cb.Data))
		return
	}

	switch parsed.action {
	case actBuy, actBackToCategories:
		sess.state = wizard.Reset(sess.state)
		b.showBuyCategories(chatID, cb)
	case actSell:
		sess.state = wizard.Reset(sess.state)
		b.startSell(sess, chatID, cb)
	case actMyItems, actBackToMyItems:
		sess.state = wizard.Reset(sess.state)
		b.showMyCategories(ctx, userID, chatID)
	case actPurchasedItems:
		sess.state = wizard.Reset(sess.state)
		b.showPurchased(ctx, userID, chatID)
	case actProfile:
		sess.state = wizard.Reset(sess.state)
		b.showProfile(ctx, userID, chatID)
	case actSellCategory:
		category, ok := b.market.Catalog().At(parsed.index)
		if !ok {
			b.sendText(chatID, b.hintText(wizard.HintChooseCategory))
			return
		}
		b.advance(ctx, userID, sess, chatID, wizard.Choose(category), "")
	case actCategory:
		b.showCategory(ctx, cb, parsed.index)
	case actConfirmBuy:
		markup := confirmBuyKeyboard(parsed.id)
		b.replace(cb, "Вы уверены, что хотите купить этот товар?", &markup)
	case actBuyItem:
		b.buyItem(ctx, userID, cb, parsed.id)
	case actMyItemsCategory:
		b.showMyItemsInCategory(ctx, userID, cb, parsed.index)
	case actDelete:
		b.deleteItem(ctx, userID, cb, parsed.id)
	}
}

func (b *Bot) showBuyCategories(chatID int64, cb *tgbotapi.CallbackQuery) {
	const text = "Выберите категорию для просмотра:"
	markup := b.getCategoriesKeyboard(b.market.Catalog().Categories(), categoryData)
	if cb != nil {
		b.replace(cb, text, &markup)
		return
	}
	b.sendWithMarkup(chatID, text, markup)
}

func (b *Bot) showCategory(ctx context.Context, cb *tgbotapi.CallbackQuery, idx int) {
	chatID := cb.Message.Chat.ID
	category, ok := b.market.Catalog().At(idx)
	if !ok {
		b.showBuyCategories(chatID, cb)
		return
	}

	entries, err := b.market.Browse(ctx, category)
	if err != nil {
		b.logger.Error("failed to browse category", zap.String("category", string(category)), zap.Error(err))
		b.sendErrorMessage(chatID, textGenericError)
		return
	}

	if len(entries) == 0 {
		markup := backKeyboard("◀️ Назад к категориям", dataBackToCategories)
		b.replace(cb, fmt.Sprintf("Товары в категории %s не найдены.", category), &markup)
		return
	}

	b.replace(cb, fmt.Sprintf("Загрузка товаров в категории %s...", category), nil)
	for _, e := range entries {
		text := fmt.Sprintf("*%s*\nЦена: %s ₽\nКонтакт: %s",
			escape(e.Listing.Name), e.Listing.Price.String(), escape(contactText(e.Listing.Contact)))
		markup := browseCardKeyboard(e.Listing.ID)
		b.sendCard(chatID, e.Listing, text, &markup)
	}
}

func (b *Bot) buyItem(ctx context.Context, userID int64, cb *tgbotapi.CallbackQuery, id string) {
	_, err := b.market.Purchase(ctx, userID, id)
	switch {
	case errors.Is(err, service.ErrItemUnavailable):
		markup := backKeyboard("◀️ Назад к категориям", dataBuy)
		b.replace(cb, "Извините, этот товар больше недоступен.", &markup)
	case err != nil:
		b.logger.Error("purchase failed", zap.Int64("user_id", userID), zap.String("listing_id", id), zap.Error(err))
		b.sendErrorMessage(cb.Message.Chat.ID, textGenericError)
	default:
		markup := purchaseDoneKeyboard()
		b.replace(cb, "✅ Покупка успешно завершена! Вы можете просмотреть этот товар в разделе купленных товаров.", &markup)
	}
}

func (b *Bot) showMyCategories(ctx context.Context, userID, chatID int64) {
	categories, err := b.market.MyCategories(ctx, userID)
	if err != nil {
		b.logger.Error("failed to load own listings", zap.Int64("user_id", userID), zap.Error(err))
		b.sendErrorMessage(chatID, textGenericError)
		return
	}

	if len(categories) == 0 {
		b.sendWithMarkup(chatID, "Вы еще не добавили ни одного товара.", b.getMainKeyboard())
		return
	}

	b.sendWithMarkup(chatID, "Выберите категорию, чтобы просмотреть ваши товары:",
		b.getCategoriesKeyboard(categories, myItemsCategoryData))
}

func (b *Bot) showMyItemsInCategory(ctx context.Context, userID int64, cb *tgbotapi.CallbackQuery, idx int) {
	chatID := cb.Message.Chat.ID
	category, ok := b.market.Catalog().At(idx)
	if !ok {
		b.showMyCategories(ctx, userID, chatID)
		return
	}

	listings, err := b.market.MyListings(ctx, userID, category)
	if err != nil {
		b.logger.Error("failed to load own listings", zap.Int64("user_id", userID), zap.Error(err))
		b.sendErrorMessage(chatID, textGenericError)
		return
	}

	if len(listings) == 0 {
		markup := backKeyboard("◀️ Назад", dataMyItems)
		b.replace(cb, fmt.Sprintf("Товары в категории %s не найдены.", category), &markup)
		return
	}

	b.replace(cb, fmt.Sprintf("Ваши товары в категории %s:", category), nil)
	for _, l := range listings {
		text := fmt.Sprintf("*%s*\nЦена: %s ₽", escape(l.Name), l.Price.String())
		markup := myCardKeyboard(l.ID)
		b.sendCard(chatID, l, text, &markup)
	}
}

func (b *Bot) deleteItem(ctx context.Context, userID int64, cb *tgbotapi.CallbackQuery, id string) {
	_, err := b.market.Delete(ctx, userID, id)
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		markup := backKeyboard("◀️ Назад", dataMyItems)
		b.replace(cb, "Товар не найден.", &markup)
	case err != nil:
		b.logger.Error("delete failed", zap.Int64("user_id", userID), zap.String("listing_id", id), zap.Error(err))
		b.sendErrorMessage(cb.Message.Chat.ID, textGenericError)
	default:
		markup := backKeyboard("◀️ Назад к Моим Товарам", dataBackToMyItems)
		b.replace(cb, "✅ Товар успешно удален!", &markup)
	}
}

func (b *Bot) showPurchased(ctx context.Context, userID, chatID int64) {
	purchased, err := b.market.Purchased(ctx, userID)
	if err != nil {
		b.logger.Error("failed to load purchases", zap.Int64("user_id", userID), zap.Error(err))
		b.sendErrorMessage(chatID, textGenericError)
		return
	}

	if len(purchased) == 0 {
		b.sendWithMarkup(chatID, "Вы еще не купили ни одного товара.", b.getMainKeyboard())
		return
	}

	b.sendText(chatID, "Ваши купленные товары:")
	for _, l := range purchased {
		text := fmt.Sprintf("*%s*\nЦена: %s ₽", escape(l.Name), l.Price.String())
		b.sendCard(chatID, l, text, nil)
	}
}

func (b *Bot) showProfile(ctx context.Context, userID, chatID int64) {
	profile, err := b.market.Profile(ctx, userID)
	if err != nil {
		b.logger.Error("failed to build profile", zap.Int64("user_id", userID), zap.Error(err))
		b.sendErrorMessage(chatID, textGenericError)
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"*Ваш профиль*\nАктивные объявления: %d\nКупленные товары: %d\n",
		profile.Active, profile.Purchased))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = b.getMainKeyboard()
	b.send(msg)
}

func (b *Bot) showStats(ctx context.Context, chatID int64) {
	stats, err := b.market.CategoryStats(ctx)
	if err != nil {
		b.logger.Error("failed to collect stats", zap.Error(err))
		b.sendErrorMessage(chatID, textGenericError)
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 Активные объявления по категориям:\n\n")
	for _, s := range stats {
		fmt.Fprintf(&sb, "• %s: %d\n", s.Category, s.Count)
	}

	png, err := charts.CategoryChart(stats)
	if err != nil {
		b.logger.Warn("failed to render stats chart", zap.Error(err))
	}
	if png == nil {
		b.sendWithMarkup(chatID, sb.String(), b.getMainKeyboard())
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "stats.png", Bytes: png})
	photo.Caption = sb.String()
	photo.ReplyMarkup = b.getMainKeyboard()
	b.send(photo)
}

// sendCard показывает объявление с фото, если оно еще хранится, иначе текстом
func (b *Bot) sendCard(chatID int64, l model.Listing, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if data, ok := b.loadPhoto(l.PhotoRef); ok {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "photo.jpg", Bytes: data})
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeMarkdown
		if markup != nil {
			photo.ReplyMarkup = *markup
		}
		b.send(photo)
		return
	}

	msg := tgbotapi.NewMessage(chatID, text+"\n\n"+textNoPhoto)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	b.send(msg)
}

func (b *Bot) loadPhoto(ref string) ([]byte, bool) {
	if ref == "" || !b.photos.Exists(ref) {
		return nil, false
	}
	rc, err := b.photos.Open(ref)
	if err != nil {
		b.logger.Warn("failed to open photo", zap.String("ref", ref), zap.Error(err))
		return nil, false
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		b.logger.Warn("failed to read photo", zap.String("ref", ref), zap.Error(err))
		return nil, false
	}
	return data, true
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func contactText(contact string) string {
	if contact == "" {
		return "Не указан"
	}
	return contact
}
