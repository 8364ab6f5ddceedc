package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ivanoskov/market_bot/internal/media"
	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/ivanoskov/market_bot/internal/wizard"
	"go.uber.org/zap"
)

const (
	textWelcome = "Добро пожаловать на рынок! Пожалуйста, используйте меню ниже для навигации:"

	textHelp = "Доступные команды:\n" +
		"/start - Открыть главное меню\n" +
		"/help - Показать это сообщение помощи\n" +
		"/stats - Статистика объявлений по категориям\n\n" +
		"Вы также можете использовать постоянные кнопки меню ниже для навигации."

	textSellIntro = "Давайте добавим ваш товар!\n\n" +
		"1️⃣ Выберите категорию\n" +
		"2️⃣ Введите название\n" +
		"3️⃣ Установите цену\n" +
		"4️⃣ Введите контактный номер\n" +
		"5️⃣ Загрузите фото\n\n" +
		"Пожалуйста, выберите категорию:"

	textUseMenu       = "Пожалуйста, используйте кнопки меню для навигации."
	textStartFromMenu = "Пожалуйста, начните процесс продажи с помощью меню."
	textListingAdded  = "✅ Ваш товар успешно добавлен!"
	textGenericError  = "Что-то пошло не так. Пожалуйста, попробуйте позже."
)

func (b *Bot) handleMessage(ctx context.Context, userID int64, sess *session, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if message.IsCommand() {
		b.handleCommand(ctx, userID, sess, message)
		return
	}

	if action, ok := parseMenu(message.Text, sess.state.Step == wizard.Idle); ok {
		sess.state = wizard.Reset(sess.state)
		b.handleMenu(ctx, userID, sess, chatID, action)
		return
	}

	in, fileID, ok := classify(message)
	if !ok {
		b.sendWithMarkup(chatID, textUseMenu, b.getMainKeyboard())
		return
	}
	b.advance(ctx, userID, sess, chatID, in, fileID)
}

func (b *Bot) handleCommand(ctx context.Context, userID int64, sess *session, message *tgbotapi.Message) {
	sess.state = wizard.Reset(sess.state)

	switch message.Command() {
	case "start":
		b.sendWithMarkup(message.Chat.ID, textWelcome, b.getMainKeyboard())
	case "help":
		b.handleMenu(ctx, userID, sess, message.Chat.ID, menuHelp)
	case "stats":
		b.handleMenu(ctx, userID, sess, message.Chat.ID, menuStats)
	default:
		b.sendWithMarkup(message.Chat.ID, textUseMenu, b.getMainKeyboard())
	}
}

func (b *Bot) handleMenu(ctx context.Context, userID int64, sess *session, chatID int64, action menuAction) {
	switch action {
	case menuBuy:
		b.showBuyCategories(chatID, nil)
	case menuSell:
		b.startSell(sess, chatID, nil)
	case menuMyItems:
		b.showMyCategories(ctx, userID, chatID)
	case menuPurchased:
		b.showPurchased(ctx, userID, chatID)
	case menuProfile:
		b.showProfile(ctx, userID, chatID)
	case menuHelp:
		b.sendWithMarkup(chatID, textHelp, b.getMainKeyboard())
	case menuStats:
		b.showStats(ctx, chatID)
	}
}

// classify превращает сообщение в ввод мастера; fileID заполнен для изображений
func classify(message *tgbotapi.Message) (wizard.Input, string, bool) {
	switch {
	case len(message.Photo) > 0:
		largest := message.Photo[len(message.Photo)-1]
		return wizard.Media(true), largest.FileID, true
	case message.Document != nil:
		if isImageMIME(message.Document.MimeType) {
			return wizard.Media(true), message.Document.FileID, true
		}
		return wizard.Media(false), "", true
	case message.Video != nil, message.Animation != nil, message.Audio != nil,
		message.Voice != nil, message.VideoNote != nil, message.Sticker != nil:
		return wizard.Media(false), "", true
	case message.Text != "":
		return wizard.Text(message.Text), "", true
	}
	return wizard.Input{}, "", false
}

func isImageMIME(mime string) bool {
	return mime == "image/jpeg" || mime == "image/png"
}

func (b *Bot) startSell(sess *session, chatID int64, cb *tgbotapi.CallbackQuery) {
	sess.state = wizard.Start()
	markup := b.getCategoriesKeyboard(b.market.Catalog().Categories(), sellCategoryData)
	if cb != nil {
		b.replace(cb, textSellIntro, &markup)
		return
	}
	b.sendWithMarkup(chatID, textSellIntro, markup)
}

// advance передает ввод мастеру и показывает результат шага
func (b *Bot) advance(ctx context.Context, userID int64, sess *session, chatID int64, in wizard.Input, fileID string) {
	next, outcome := b.machine.Advance(sess.state, in)
	sess.state = next

	switch o := outcome.(type) {
	case wizard.StepPrompt:
		b.sendText(chatID, promptText(o.Step))
	case wizard.ValidationError:
		if o.Step == wizard.ChooseCategory {
			markup := b.getCategoriesKeyboard(b.market.Catalog().Categories(), sellCategoryData)
			b.sendWithMarkup(chatID, b.hintText(o.Hint), markup)
			return
		}
		b.sendText(chatID, b.hintText(o.Hint))
	case wizard.UnsupportedMedia:
		b.sendText(chatID, b.hintText(o.Hint))
	case wizard.NotInFlow:
		if in.Kind == wizard.TextInput {
			b.sendWithMarkup(chatID, textUseMenu, b.getMainKeyboard())
			return
		}
		b.sendWithMarkup(chatID, b.hintText(o.Hint), b.getMainKeyboard())
	case wizard.ReadyToCommit:
		b.commit(ctx, userID, sess, chatID, o.Draft, fileID)
	}
}

// commit сохраняет объявление; мастер завершается только после успешной записи
func (b *Bot) commit(ctx context.Context, userID int64, sess *session, chatID int64, draft model.Listing, fileID string) {
	photo, err := b.download.Download(ctx, fileID)
	if err != nil {
		b.logger.Error("photo download failed", zap.Int64("user_id", userID), zap.Error(err))
		b.sendErrorMessage(chatID, "Не удалось получить фото. Пожалуйста, отправьте его еще раз.")
		return
	}

	listing, err := b.market.CreateListing(ctx, userID, draft, photo)
	switch {
	case errors.Is(err, media.ErrUnsupportedMedia):
		b.sendText(chatID, b.hintText(wizard.HintImageOnly))
		return
	case err != nil:
		b.logger.Error("failed to create listing", zap.Int64("user_id", userID), zap.Error(err))
		b.sendErrorMessage(chatID, "Не удалось сохранить товар. Пожалуйста, отправьте фото еще раз.")
		return
	}

	sess.state = wizard.Complete(sess.state)
	b.logger.Debug("wizard completed", zap.Int64("user_id", userID), zap.String("listing_id", listing.ID))
	b.sendWithMarkup(chatID, textListingAdded, b.getMainKeyboard())
}

func promptText(step wizard.Step) string {
	switch step {
	case wizard.AskName:
		return "Отлично! Теперь, пожалуйста, введите название вашего товара."
	case wizard.AskPrice:
		return "Пожалуйста, введите цену в рублях (только цифры):"
	case wizard.AskContact:
		return "Пожалуйста, введите ваш контактный номер, чтобы покупатели могли связаться с вами."
	case wizard.AskPhoto:
		return "Отлично! Теперь, пожалуйста, отправьте фото вашего товара."
	}
	return "Пожалуйста, выберите категорию:"
}

func (b *Bot) hintText(hint wizard.Hint) string {
	switch hint {
	case wizard.HintChooseCategory:
		return "Пожалуйста, выберите категорию с помощью кнопок."
	case wizard.HintEnterName:
		return "Пожалуйста, введите название товара."
	case wizard.HintPriceFormat:
		return "Пожалуйста, введите корректную цену (только цифры)."
	case wizard.HintContactFormat:
		rules := b.machine.Rules()
		return fmt.Sprintf("Пожалуйста, введите корректный контактный номер (%d–%d цифр).",
			rules.ContactMinDigits, rules.ContactMaxDigits)
	case wizard.HintSendPhoto:
		return "Пожалуйста, загрузите фото для добавления товара."
	case wizard.HintImageOnly:
		return "Неподдерживаемый тип файла. Пожалуйста, загрузите фото (JPEG или PNG)."
	case wizard.HintStartFromMenu:
		return textStartFromMenu
	}
	return textUseMenu
}
