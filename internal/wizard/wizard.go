// Package wizard реализует пошаговое создание объявления.
//
// Состояние - обычное значение, которым владеет сессия пользователя.
// Advance - чистая функция от (состояние, ввод): она ничего не сохраняет
// и не обращается к хранилищу. Последний шаг возвращает ReadyToCommit,
// а в Idle состояние переводит только Complete после успешной записи.
package wizard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/shopspring/decimal"
)

type Step int

const (
	Idle Step = iota
	ChooseCategory
	AskName
	AskPrice
	AskContact
	AskPhoto
)

func (s Step) String() string {
	switch s {
	case Idle:
		return "idle"
	case ChooseCategory:
		return "choose_category"
	case AskName:
		return "ask_name"
	case AskPrice:
		return "ask_price"
	case AskContact:
		return "ask_contact"
	case AskPhoto:
		return "ask_photo"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// State - шаг мастера и частично заполненный черновик
type State struct {
	Step  Step
	Draft model.Listing
}

// Rules - параметры проверки ввода
type Rules struct {
	Catalog          model.Catalog
	ContactMinDigits int
	ContactMaxDigits int
}

type Machine struct {
	rules   Rules
	contact *regexp.Regexp
}

func NewMachine(rules Rules) (*Machine, error) {
	if rules.Catalog.Len() == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	if rules.ContactMinDigits < 1 || rules.ContactMaxDigits < rules.ContactMinDigits {
		return nil, fmt.Errorf("invalid contact length bounds %d..%d", rules.ContactMinDigits, rules.ContactMaxDigits)
	}
	return &Machine{
		rules:   rules,
		contact: regexp.MustCompile(fmt.Sprintf(`^[0-9]{%d,%d}$`, rules.ContactMinDigits, rules.ContactMaxDigits)),
	}, nil
}

func (m *Machine) Rules() Rules {
	return m.rules
}

// Start открывает мастер с пустым черновиком
func Start() State {
	return State{Step: ChooseCategory}
}

// Reset - явный переход any -> idle, черновик отбрасывается
func Reset(State) State {
	return State{Step: Idle}
}

// Complete завершает мастер после успешной записи объявления
func Complete(s State) State {
	if s.Step != AskPhoto {
		return s
	}
	return State{Step: Idle}
}

// Advance применяет ввод к состоянию. При неверном вводе
// возвращается исходное состояние без изменений.
func (m *Machine) Advance(s State, in Input) (State, Outcome) {
	switch s.Step {
	case Idle:
		return s, NotInFlow{Hint: HintStartFromMenu}

	case ChooseCategory:
		if in.Kind != CategoryInput || !m.rules.Catalog.Contains(in.Category) {
			return s, ValidationError{Step: s.Step, Hint: HintChooseCategory}
		}
		next := s
		next.Draft.Category = in.Category
		next.Step = AskName
		return next, StepPrompt{Step: AskName, Hint: HintEnterName}

	case AskName:
		// Пустым считается и имя из одних пробелов, но сохраняется текст как есть
		if in.Kind != TextInput || strings.TrimSpace(in.Text) == "" {
			return s, ValidationError{Step: s.Step, Hint: HintEnterName}
		}
		next := s
		next.Draft.Name = in.Text
		next.Step = AskPrice
		return next, StepPrompt{Step: AskPrice, Hint: HintPriceFormat}

	case AskPrice:
		if in.Kind != TextInput {
			return s, ValidationError{Step: s.Step, Hint: HintPriceFormat}
		}
		price, ok := parsePrice(in.Text)
		if !ok {
			return s, ValidationError{Step: s.Step, Hint: HintPriceFormat}
		}
		next := s
		next.Draft.Price = price
		next.Step = AskContact
		return next, StepPrompt{Step: AskContact, Hint: HintContactFormat}

	case AskContact:
		contact := strings.TrimSpace(in.Text)
		if in.Kind != TextInput || !m.contact.MatchString(contact) {
			return s, ValidationError{Step: s.Step, Hint: HintContactFormat}
		}
		next := s
		next.Draft.Contact = contact
		next.Step = AskPhoto
		return next, StepPrompt{Step: AskPhoto, Hint: HintSendPhoto}

	case AskPhoto:
		switch {
		case in.Kind != MediaInput:
			return s, ValidationError{Step: s.Step, Hint: HintSendPhoto}
		case !in.IsImage:
			return s, UnsupportedMedia{Hint: HintImageOnly}
		}
		return s, ReadyToCommit{Draft: s.Draft}
	}

	return s, NotInFlow{Hint: HintStartFromMenu}
}

// parsePrice принимает неотрицательное десятичное число, запятая допустима как разделитель
func parsePrice(text string) (decimal.Decimal, bool) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if text == "" {
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(text)
	if err != nil || price.IsNegative() {
		return decimal.Decimal{}, false
	}
	return price, true
}
