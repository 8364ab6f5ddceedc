package wizard

import "github.com/ivanoskov/market_bot/internal/model"

type InputKind int

const (
	TextInput InputKind = iota + 1
	CategoryInput
	MediaInput
)

// Input - классифицированный ввод пользователя
type Input struct {
	Kind     InputKind
	Text     string
	Category model.Category
	IsImage  bool
}

func Text(s string) Input {
	return Input{Kind: TextInput, Text: s}
}

func Choose(category model.Category) Input {
	return Input{Kind: CategoryInput, Category: category}
}

func Media(isImage bool) Input {
	return Input{Kind: MediaInput, IsImage: isImage}
}

// Hint - подсказка о формате ввода; текст формирует слой представления
type Hint int

const (
	HintChooseCategory Hint = iota + 1
	HintEnterName
	HintPriceFormat
	HintContactFormat
	HintSendPhoto
	HintImageOnly
	HintStartFromMenu
)

// Outcome - структурированный результат шага
type Outcome interface {
	outcome()
}

// StepPrompt - шаг пройден, нужно запросить следующее поле
type StepPrompt struct {
	Step Step
	Hint Hint
}

// ValidationError - ввод отклонен, шаг не меняется
type ValidationError struct {
	Step Step
	Hint Hint
}

// UnsupportedMedia - на шаге фото прислали не изображение
type UnsupportedMedia struct {
	Hint Hint
}

// NotInFlow - ввод для мастера пришел вне мастера
type NotInFlow struct {
	Hint Hint
}

// ReadyToCommit - черновик заполнен, его можно записывать
type ReadyToCommit struct {
	Draft model.Listing
}

func (StepPrompt) outcome()       {}
func (ValidationError) outcome()  {}
func (UnsupportedMedia) outcome() {}
func (NotInFlow) outcome()        {}
func (ReadyToCommit) outcome()    {}
